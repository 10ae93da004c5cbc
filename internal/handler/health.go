package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health answers liveness probes with a plain "ok". It touches no
// dependencies on purpose: the endpoint must stay up even when the
// database, Redis or the broker are down.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
