package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/courtside/tournament-registration/internal/repository"
	"github.com/courtside/tournament-registration/internal/service"
)

// TicketHandler exposes ticket lifecycle endpoints.  Check-in, void and
// refund sit behind the staff role gate; resend and listing are for the
// ticket holder.
type TicketHandler struct {
	Tickets *service.TicketService
}

func NewTicketHandler(tickets *service.TicketService) *TicketHandler {
	return &TicketHandler{Tickets: tickets}
}

// CheckIn scans a ticket at the gate.  Double check-in and terminal
// tickets respond 409.
func (h *TicketHandler) CheckIn(c echo.Context) error {
	ticketID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	operatorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	err = h.Tickets.CheckIn(c.Request().Context(), ticketID, operatorID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
	case errors.Is(err, repository.ErrInvalidState):
		return c.JSON(http.StatusConflict, echo.Map{"error": "ticket cannot be checked in"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "check-in failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "checked_in"})
}

// Void invalidates a ticket and releases its registration slot.
func (h *TicketHandler) Void(c echo.Context) error {
	ticketID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	err = h.Tickets.Void(c.Request().Context(), ticketID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
	case errors.Is(err, repository.ErrInvalidState):
		return c.JSON(http.StatusConflict, echo.Map{"error": "ticket already void or refunded"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "void failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "void"})
}

type refundRequest struct {
	// AmountCents of zero refunds the full amount paid.
	AmountCents int64  `json:"amount_cents"`
	Reason      string `json:"reason"`
}

// Refund issues a refund through the payment gateway and then flips the
// ticket state.  An amount above what was paid is rejected before any
// gateway call.
func (h *TicketHandler) Refund(c echo.Context) error {
	ticketID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	var req refundRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	err = h.Tickets.Refund(c.Request().Context(), ticketID, req.AmountCents, req.Reason)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
	case errors.Is(err, service.ErrInvalidAmount):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refund amount exceeds amount paid"})
	case errors.Is(err, repository.ErrInvalidState):
		return c.JSON(http.StatusConflict, echo.Map{"error": "ticket is not refundable"})
	case errors.Is(err, service.ErrGatewayUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "payment gateway unavailable"})
	case err != nil:
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "refund failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "refunded"})
}

// ResendEmail republishes the confirmation mail for the holder's own
// ticket.
func (h *TicketHandler) ResendEmail(c echo.Context) error {
	ticketID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	holderID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	err = h.Tickets.ResendEmail(c.Request().Context(), ticketID, holderID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
	case errors.Is(err, repository.ErrInvalidState):
		return c.JSON(http.StatusConflict, echo.Map{"error": "ticket has no notification address"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "resend failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "sent"})
}

// MyTickets lists the authenticated user's tickets.
func (h *TicketHandler) MyTickets(c echo.Context) error {
	holderID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	details, err := h.Tickets.ListByHolder(c.Request().Context(), holderID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load tickets"})
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": details})
}
