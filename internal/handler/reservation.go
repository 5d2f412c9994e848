package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/courtside/tournament-registration/internal/repository"
	"github.com/courtside/tournament-registration/internal/service"
)

// ReservationHandler exposes the capacity-hold endpoints.
type ReservationHandler struct {
	Reservations *service.ReservationService
}

func NewReservationHandler(reservations *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{Reservations: reservations}
}

type holdRequest struct {
	// PlayerID is who the slot is for; defaults to the holder when a
	// player registers themselves.
	PlayerID uint64 `json:"player_id"`
}

// Hold places a capacity hold on the tournament for the authenticated
// user.  A prior active hold by the same user is replaced.  Responds
// 409 when the tournament is full.
func (h *ReservationHandler) Hold(c echo.Context) error {
	tournamentID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tournament id"})
	}
	holderID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req holdRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	playerID := req.PlayerID
	if playerID == 0 {
		playerID = holderID
	}

	res, err := h.Reservations.Hold(c.Request().Context(), tournamentID, holderID, playerID)
	switch {
	case errors.Is(err, repository.ErrCapacityExceeded):
		return c.JSON(http.StatusConflict, echo.Map{"error": "tournament is full"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "tournament not found"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create reservation"})
	}

	now := time.Now().UTC()
	return c.JSON(http.StatusCreated, echo.Map{
		"reservation_id":    res.ID,
		"tournament_id":     res.TournamentID,
		"player_id":         res.PlayerID,
		"status":            res.Status,
		"expires_at":        res.ExpiresAt.UTC().Format(time.RFC3339),
		"remaining_seconds": res.RemainingSeconds(now),
	})
}

// Cancel releases the authenticated user's active hold on the
// tournament.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	tournamentID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tournament id"})
	}
	holderID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	err = h.Reservations.Cancel(c.Request().Context(), tournamentID, holderID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no active reservation"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not cancel reservation"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "cancelled"})
}

// GetActive returns the authenticated user's active hold on the
// tournament, if one exists.
func (h *ReservationHandler) GetActive(c echo.Context) error {
	tournamentID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tournament id"})
	}
	holderID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	res, err := h.Reservations.GetActive(c.Request().Context(), tournamentID, holderID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no active reservation"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load reservation"})
	}
	now := time.Now().UTC()
	return c.JSON(http.StatusOK, echo.Map{
		"reservation_id":    res.ID,
		"tournament_id":     res.TournamentID,
		"player_id":         res.PlayerID,
		"status":            res.Status,
		"expires_at":        res.ExpiresAt.UTC().Format(time.RFC3339),
		"remaining_seconds": res.RemainingSeconds(now),
	})
}

// Availability returns the capacity projection for a tournament.  The
// route sits behind the response cache, so the numbers may lag by the
// cache TTL.
func (h *ReservationHandler) Availability(c echo.Context) error {
	tournamentID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tournament id"})
	}
	av, err := h.Reservations.Availability(c.Request().Context(), tournamentID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "tournament not found"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load availability"})
	}
	return c.JSON(http.StatusOK, av)
}
