package middleware

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// userID returns a stable identifier for the authenticated user, used
// by middleware that keys per user.  JWTAuth leaves the raw "sub" claim
// in the context, so the value may be a string or a JSON number.
// Requests without a token key as "guest".
func userID(c echo.Context) string {
    switch v := c.Get("user_id").(type) {
    case string:
        if v != "" {
            return v
        }
    case float64:
        return strconv.FormatInt(int64(v), 10)
    case int64:
        return strconv.FormatInt(v, 10)
    case uint64:
        return strconv.FormatUint(v, 10)
    }
    return "guest"
}
