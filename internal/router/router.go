package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/courtside/tournament-registration/internal/handler"
	"github.com/courtside/tournament-registration/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterWebhook registers the payment gateway's notification
// endpoint.  It is authenticated by signature, not by JWT, and must
// never sit behind rate limiting or caching: the gateway retries on
// anything but a prompt 200.
func RegisterWebhook(e *echo.Echo, w *handler.WebhookHandler) {
	e.POST("/v1/webhooks/payment", w.Handle)
}

// RegisterPublic registers unauthenticated read endpoints.  The
// availability projection is cheap but hot, so it runs behind the redis
// response cache when one is configured.
func RegisterPublic(e *echo.Echo, r *handler.ReservationHandler, d *handler.DiscountHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/tournaments/:id/availability", r.Availability, cache)
	e.GET("/v1/discounts/:code", d.Validate)
}

// RegisterRegistration registers the authenticated registration
// pipeline.  Hold and checkout are the endpoints a scripted client
// would hammer, so they carry the rate limiter; ticket lifecycle
// mutations require the staff role on top of authentication.
func RegisterRegistration(e *echo.Echo, r *handler.ReservationHandler, ch *handler.CheckoutHandler, t *handler.TicketHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))

	auth.POST("/tournaments/:id/reservations", r.Hold, limit)
	auth.DELETE("/tournaments/:id/reservations", r.Cancel)
	auth.GET("/tournaments/:id/reservations/active", r.GetActive)
	auth.POST("/tournaments/:id/checkout", ch.Create, limit)

	auth.POST("/tickets/:id/resend-email", t.ResendEmail)
	auth.GET("/my-tickets", t.MyTickets)

	staff := auth.Group("/tickets")
	staff.Use(middleware.RequireRole("STAFF", "ADMIN"))
	staff.POST("/:id/checkin", t.CheckIn)
	staff.POST("/:id/void", t.Void)
	staff.POST("/:id/refund", t.Refund)
}

// RegisterOps registers admin-only operational endpoints.
func RegisterOps(e *echo.Echo, o *handler.OpsHandler, jwtSecret string) {
	ops := e.Group("/v1/ops")
	ops.Use(middleware.JWTAuth(jwtSecret))
	ops.Use(middleware.RequireRole("ADMIN"))
	ops.GET("/failed-events", o.FailedEvents)
}
