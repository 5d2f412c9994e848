package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/courtside/tournament-registration/internal/repository"
	"github.com/courtside/tournament-registration/internal/service"
)

// CheckoutHandler turns an active hold into a payment session or a free
// ticket.
type CheckoutHandler struct {
	Checkout *service.CheckoutService
}

func NewCheckoutHandler(checkout *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{Checkout: checkout}
}

type checkoutRequest struct {
	Email        string  `json:"email"`
	DiscountCode string  `json:"discount_code"`
	TeamID       *uint64 `json:"team_id"`
}

// Create prices the registration and opens a hosted payment session.
// Zero-price registrations are settled immediately and return the
// issued ticket instead of a session.
func (h *CheckoutHandler) Create(c echo.Context) error {
	tournamentID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tournament id"})
	}
	holderID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req checkoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
	}

	result, err := h.Checkout.Checkout(c.Request().Context(), service.CheckoutParams{
		TournamentID: tournamentID,
		HolderID:     holderID,
		TeamID:       req.TeamID,
		Email:        req.Email,
		DiscountCode: req.DiscountCode,
	})
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no active reservation"})
	case errors.Is(err, repository.ErrInvalidState):
		return c.JSON(http.StatusConflict, echo.Map{"error": "reservation no longer active"})
	case errors.Is(err, service.ErrGatewayUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "payment gateway unavailable"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "checkout failed"})
	}

	if result.Free {
		return c.JSON(http.StatusCreated, echo.Map{
			"free":        true,
			"ticket_id":   result.Ticket.ID,
			"ticket_code": result.Ticket.Code,
			"quote":       result.Quote,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"free":        false,
		"session_id":  result.SessionID,
		"session_url": result.SessionURL,
		"quote":       result.Quote,
	})
}
