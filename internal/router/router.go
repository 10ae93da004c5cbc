package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"github.com/adlooper/signage-server/internal/auth"       // bearer token resolution
	"github.com/adlooper/signage-server/internal/config"     // rate limit / cache configuration
	"github.com/adlooper/signage-server/internal/handler"    // import the handlers that implement business logic
	"github.com/adlooper/signage-server/internal/middleware" // bearer auth, device logging, rate limiting
	"github.com/adlooper/signage-server/internal/repository"
)

// Handlers collects every handler the router needs. Built once in main
// and passed in whole so route registration stays in one place.
type Handlers struct {
	Auth      *handler.AuthHandler
	Users     *handler.UserHandler
	Media     *handler.MediaHandler
	Groups    *handler.MediaGroupHandler
	Devices   *handler.DeviceHandler
	Schedules *handler.ScheduleHandler
}

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance. Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and monitoring poll this to verify the service is up.
	e.GET("/healthz", handler.Health)
}

// RegisterAPI wires the whole /v1 surface. Unauthenticated operations
// (register, login, refresh) are rate limited per client; everything else
// sits behind bearer authentication. rdb may be nil, in which case rate
// limiting and response caching are skipped entirely.
func RegisterAPI(e *echo.Echo, h Handlers, resolver *auth.Resolver, logs *repository.LogRepo, jwtSecret string, rdb *redis.Client) {
	// Token bucket on the open endpoints only; authenticated traffic is
	// already attributable and is not throttled.
	var limited []echo.MiddlewareFunc
	var cached []echo.MiddlewareFunc
	if rdb != nil {
		limited = append(limited, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
		cached = append(cached, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	}

	// Open endpoints: account creation and session issuance.
	open := e.Group("", limited...)
	open.POST("/v1/users", h.Users.Register)
	open.POST("/v1/auth/login", h.Auth.Login)
	open.POST("/v1/auth/refresh", h.Auth.Refresh)

	// Everything below requires a resolvable bearer token. Device traffic
	// is recorded by the activity log middleware after each request.
	g := e.Group("/v1",
		middleware.BearerAuth(resolver),
		middleware.DeviceActivityLog(logs, jwtSecret),
	)

	g.GET("/auth/me", h.Auth.Me)
	g.POST("/auth/logout", h.Auth.Logout, middleware.RequireUser())

	// Device token lifecycle. User principals only: a display device can
	// never mint or revoke credentials.
	g.POST("/auth/display_devices/:id/register", h.Auth.RegisterDevice, middleware.RequireUser())
	g.DELETE("/auth/display_devices/:id/unlink", h.Auth.UnlinkDevice, middleware.RequireUser())

	// ---- Users ----
	g.GET("/users", h.Users.List, middleware.RequireUser())
	g.GET("/users/:id", h.Users.Get, middleware.RequireUser())
	g.PATCH("/users/:id", h.Users.Update, middleware.RequireUser())
	g.DELETE("/users/:id", h.Users.Delete, middleware.RequireUser())

	// ---- Media ----
	g.POST("/media", h.Media.Create, middleware.RequireUser())
	g.GET("/media", h.Media.List, middleware.RequireUser())
	g.GET("/media/:id", h.Media.Get, middleware.RequireUser())
	g.PATCH("/media/:id", h.Media.Update, middleware.RequireUser())
	g.DELETE("/media/:id", h.Media.Delete, middleware.RequireUser())
	g.POST("/media/:id/upload", h.Media.Upload, middleware.RequireUser())
	// Download is open to device principals: players fetch files directly.
	g.GET("/media/:id/download", h.Media.Download)

	// ---- Media groups ----
	g.POST("/media_groups", h.Groups.Create, middleware.RequireUser())
	g.GET("/media_groups", h.Groups.List, middleware.RequireUser())
	g.GET("/media_groups/:id", h.Groups.Get, middleware.RequireUser())
	g.PATCH("/media_groups/:id", h.Groups.Update, middleware.RequireUser())
	g.DELETE("/media_groups/:id", h.Groups.Delete, middleware.RequireUser())
	g.POST("/media_groups/:id/media/:media_id", h.Groups.AddMedia, middleware.RequireUser())
	g.DELETE("/media_groups/:id/media/:media_id", h.Groups.RemoveMedia, middleware.RequireUser())

	// ---- Display devices ----
	g.POST("/display_devices", h.Devices.Create, middleware.RequireUser())
	g.GET("/display_devices", h.Devices.List, middleware.RequireUser())
	g.GET("/display_devices/:id", h.Devices.Get, middleware.RequireUser())
	g.PATCH("/display_devices/:id", h.Devices.Update, middleware.RequireUser())
	g.DELETE("/display_devices/:id", h.Devices.Delete, middleware.RequireUser())
	// Content feed: cached briefly because every device polls it. Open to
	// the device principal reading its own feed.
	g.GET("/display_devices/:id/content", h.Devices.Content, cached...)
	g.GET("/display_devices/:id/logs", h.Devices.LogList, middleware.RequireUser())

	// ---- Schedules ----
	g.POST("/schedules", h.Schedules.Create, middleware.RequireUser())
	g.GET("/schedules", h.Schedules.List, middleware.RequireUser())
	g.GET("/schedules/:id", h.Schedules.Get, middleware.RequireUser())
	g.PATCH("/schedules/:id", h.Schedules.Update, middleware.RequireUser())
	g.DELETE("/schedules/:id", h.Schedules.Delete, middleware.RequireUser())
}
