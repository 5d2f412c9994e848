package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/courtside/tournament-registration/internal/service"
)

// DiscountHandler exposes discount code validation.  Redemption has no
// endpoint; it only happens inside the settlement pipeline.
type DiscountHandler struct {
	Discounts *service.DiscountService
}

func NewDiscountHandler(discounts *service.DiscountService) *DiscountHandler {
	return &DiscountHandler{Discounts: discounts}
}

// Validate checks a code, optionally against a tournament given as the
// tournament_id query parameter.  An unusable code is a 200 with
// usable=false and the reason, not an error.
func (h *DiscountHandler) Validate(c echo.Context) error {
	code := c.Param("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing code"})
	}
	var tournamentID uint64
	if raw := c.QueryParam("tournament_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tournament_id"})
		}
		tournamentID = id
	}
	v, err := h.Discounts.Validate(c.Request().Context(), code, tournamentID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not validate code"})
	}
	resp := echo.Map{"usable": v.Usable}
	if v.Reason != "" {
		resp["reason"] = v.Reason
	}
	return c.JSON(http.StatusOK, resp)
}
