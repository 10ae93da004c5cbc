package middleware

// devicelog.go attributes request traffic carried by a device token to the
// display device that sent it. Attribution is best effort: requests
// without a bearer header, or with a token that carries no device claim,
// are anonymous and simply skipped — never failed. Log write errors must
// not affect the response either.

import (
    "context"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/adlooper/signage-server/internal/repository"
    "github.com/adlooper/signage-server/internal/utils"
)

// DeviceActivityLog records one device_logs row per request that presents
// a device token. It decodes the bearer itself so it can run on any route,
// before or without BearerAuth.
func DeviceActivityLog(logs *repository.LogRepo, secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            err := next(c)

            header := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(header, "Bearer ") {
                return err // anonymous request, nothing to attribute
            }
            claims, decErr := utils.DecodeToken(secret, strings.TrimPrefix(header, "Bearer "))
            if decErr != nil || claims.DeviceID == 0 {
                return err // user token or garbage; not device traffic
            }

            // The request context may already be done; log with a small
            // independent deadline.
            ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
            defer cancel()
            status := c.Response().Status
            if err != nil {
                if he, ok := err.(*echo.HTTPError); ok {
                    status = he.Code
                }
            }
            if insErr := logs.Insert(ctx, claims.DeviceID, c.Request().URL.Path, c.Request().Method, status); insErr != nil {
                c.Logger().Warnf("device log insert failed: %v", insErr)
            }
            return err
        }
    }
}
