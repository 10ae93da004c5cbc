package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "errors"   // errors.Is for mapping auth failures
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/adlooper/signage-server/internal/auth" // principal resolution
)

// PrincipalKey is the echo context key under which BearerAuth stores the
// resolved principal. Handlers read it via c.Get(PrincipalKey).
const PrincipalKey = "principal"

// BearerAuth returns an Echo middleware that resolves a Bearer token into
// a Principal and injects it into the request context. This middleware
// wraps every protected route; handlers access the authenticated actor via
// c.Get(middleware.PrincipalKey).
//
// A missing or malformed Authorization header is a hard 401 here because
// these routes require authentication; routes where anonymous access is
// legitimate simply do not mount this middleware.
func BearerAuth(r *auth.Resolver) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            header := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(header, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(header, "Bearer ")

            p, err := r.ResolveBearer(c.Request().Context(), raw)
            if err != nil {
                switch {
                case errors.Is(err, auth.ErrTokenExpired):
                    return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token expired"})
                case errors.Is(err, auth.ErrInvalidToken):
                    return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
                default:
                    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "auth lookup failed"})
                }
            }

            c.Set(PrincipalKey, p)
            c.Set("user_id", p.User.ID)
            return next(c)
        }
    }
}

// RequireUser returns a middleware that rejects device principals.  All
// management routes (anything that creates, mutates or enumerates
// resources) are user-only; a display device may only read its own
// content endpoint.  It assumes BearerAuth ran earlier in the chain.
func RequireUser() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            v := c.Get(PrincipalKey)
            p, ok := v.(auth.Principal)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
            }
            if p.IsDevice() {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
