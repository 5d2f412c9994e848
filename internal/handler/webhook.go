package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/courtside/tournament-registration/internal/logger"
	"github.com/courtside/tournament-registration/internal/service"
)

// WebhookHandler receives settlement notifications from the payment
// gateway.  The contract with the gateway is asymmetric: 400 is only
// returned when the signature fails or the payload is structurally
// invalid, because those deliveries are worth retrying or investigating
// at the gateway side.  Everything past verification is acknowledged
// with 200 even when internal processing fails; retries cannot fix
// inconsistent internal state, so failures land in the event log for
// operators instead.
type WebhookHandler struct {
	Settlement *service.SettlementService
	Gateway    service.GatewayProvider
	Log        *logger.Logger
}

func NewWebhookHandler(settlement *service.SettlementService, gateway service.GatewayProvider, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{Settlement: settlement, Gateway: gateway, Log: log}
}

// Handle verifies and processes one webhook delivery.
func (h *WebhookHandler) Handle(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable payload"})
	}
	gw, err := h.Gateway()
	if err != nil {
		// Without credentials there is no way to verify a signature.
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "payment gateway unavailable"})
	}
	ev, err := gw.VerifyWebhook(body, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		h.Log.Warn("webhook rejected", "error", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature or payload"})
	}
	if err := h.Settlement.Process(c.Request().Context(), ev); err != nil {
		// Acknowledged regardless; the failure is already recorded.
		h.Log.Error("webhook processing failed", "event_id", ev.ID, "error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
