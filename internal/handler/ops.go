package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/courtside/tournament-registration/internal/repository"
)

// OpsHandler exposes operator views of the settlement pipeline.  The
// webhook endpoint acknowledges every verified delivery regardless of
// processing outcome, so failed settlements are invisible from the
// outside; this is where they surface.  Read-only, so it talks to the
// event log repository directly.
type OpsHandler struct {
	Events *repository.EventLogRepo
}

// NewOpsHandler returns an OpsHandler backed by the given event log.
func NewOpsHandler(events *repository.EventLogRepo) *OpsHandler {
	return &OpsHandler{Events: events}
}

// FailedEvents handles GET /v1/ops/failed-events.  The optional hours
// query parameter adjusts the lookback window, defaulting to 24.
func (h *OpsHandler) FailedEvents(c echo.Context) error {
	hours := 24
	if raw := c.QueryParam("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "hours must be a positive integer"})
		}
		hours = n
	}
	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)

	ctx := c.Request().Context()
	count, err := h.Events.CountFailedSince(ctx, since)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not count failed events"})
	}
	rows, err := h.Events.ListFailedSince(ctx, since, 100)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not list failed events"})
	}

	events := make([]echo.Map, 0, len(rows))
	for _, ev := range rows {
		entry := echo.Map{
			"external_event_id": ev.ExternalEventID,
			"kind":              ev.Kind,
			"context":           ev.Context,
			"processed_at":      ev.ProcessedAt.UTC().Format(time.RFC3339),
		}
		if ev.Error != nil {
			entry["error"] = *ev.Error
		}
		events = append(events, entry)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"failed": count,
		"since":  since.Format(time.RFC3339),
		"events": events,
	})
}
