package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/fefejiro/peacepad/pkg/appcontext"
)

// HeaderUserID carries the caller's identity when test auth is active.
const HeaderUserID = "X-User-ID"

// TestAuth extracts the user ID from a header when auth is disabled,
// allowing the API to be exercised without a real identity provider.
//
// WARNING: Only use this when AUTH_ENABLED=false. Do not enable in production.
func TestAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			userID := c.Request().Header.Get(HeaderUserID)
			if userID != "" {
				ctx = appcontext.SetUserID(ctx, userID)
			}

			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}
