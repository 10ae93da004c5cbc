package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/adlooper/signage-server/internal/auth"
	"github.com/adlooper/signage-server/internal/config"
	"github.com/adlooper/signage-server/internal/queue"
	"github.com/adlooper/signage-server/internal/repository"
	queue_publisher "github.com/adlooper/signage-server/internal/service"
	"github.com/adlooper/signage-server/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints: login/refresh/logout
// for users and register/unlink for display devices.
type AuthHandler struct {
	Cfg          config.Config
	Resolver     *auth.Resolver
	Tokens       *repository.TokenRepo
	DeviceTokens *repository.DeviceTokenRepo
	Devices      *repository.DeviceRepo
	Events       *queue_publisher.Publisher
}

func NewAuthHandler(cfg config.Config, r *auth.Resolver, t *repository.TokenRepo, dt *repository.DeviceTokenRepo, d *repository.DeviceRepo, ev *queue_publisher.Publisher) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Resolver: r, Tokens: t, DeviceTokens: dt, Devices: d, Events: ev}
}

// ----- DTOs -----

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type loginResp struct {
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// Login: verify credentials and return an access/refresh pair. Both tokens
// are stored verbatim so bearer resolution can check activity later.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Resolver.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	access, err := utils.NewUserToken(h.Cfg.JWTSecret, u.Username, time.Duration(h.Cfg.AccessTTLMin)*time.Minute)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	refresh, err := utils.NewUserToken(h.Cfg.JWTSecret, u.Username, time.Duration(h.Cfg.RefreshTTLDays)*24*time.Hour)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
	}
	if err := h.Tokens.Store(ctx, u.ID, access.Token, repository.TokenTypeAccess, access.Exp); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save access failed"})
	}
	if err := h.Tokens.Store(ctx, u.ID, refresh.Token, repository.TokenTypeRefresh, refresh.Exp); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save refresh failed"})
	}

	return c.JSON(http.StatusOK, loginResp{
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Token, Expires: refresh.Exp},
	})
}

// Refresh: exchange a valid refresh token for a new access token. The
// refresh token itself is deliberately NOT rotated or invalidated; it
// stays valid until its own expiry.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// Signature and expiry first; storage state second.
	if _, err := utils.DecodeToken(h.Cfg.JWTSecret, raw); err != nil {
		if errors.Is(err, utils.ErrTokenExpired) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token expired"})
		}
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}
	t, err := h.Tokens.GetByToken(ctx, raw)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !t.IsActive || t.TokenType != repository.TokenTypeRefresh {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}
	if t.Expired(time.Now().UTC()) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token expired"})
	}

	u, err := h.Resolver.Users.GetByID(ctx, t.OwnerID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}
	access, err := utils.NewUserToken(h.Cfg.JWTSecret, u.Username, time.Duration(h.Cfg.AccessTTLMin)*time.Minute)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	if err := h.Tokens.Store(ctx, u.ID, access.Token, repository.TokenTypeAccess, access.Exp); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save access failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"access": tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Logout: delete the caller's active access tokens (protected route,
// user principals only). 404 when there was nothing to revoke.
func (h *AuthHandler) Logout(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tokens.DeleteActiveAccess(ctx, uid); err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no active token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// RegisterDevice: POST /v1/auth/display_devices/:id/register. Issues the
// device's long-lived token. The caller must own the device; a device that
// already carries a token yields 409.
func (h *AuthHandler) RegisterDevice(c echo.Context) error {
	p, err := getPrincipal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	deviceID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	dev, err := h.Devices.GetByIDAndOwner(ctx, deviceID, p.User.ID)
	if err != nil {
		if errors.Is(err, repository.ErrDeviceNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "display device not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}

	tok, err := utils.NewDeviceToken(h.Cfg.JWTSecret, p.User.Username, dev.ID, time.Duration(h.Cfg.DeviceTTLDays)*24*time.Hour)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	if err := h.DeviceTokens.Create(ctx, p.User.ID, dev.ID, tok.Token, tok.Exp); err != nil {
		if errors.Is(err, repository.ErrDeviceRegistered) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "device already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save token failed"})
	}

	// Best effort; registration succeeded regardless of broker health.
	_ = h.Events.PublishDeviceRegistered(ctx, queue.DeviceRegisteredEvent{
		DeviceID:       dev.ID,
		DeviceName:     dev.Name,
		OwnerID:        p.User.ID,
		OwnerUsername:  p.User.Username,
		TokenExpiresAt: tok.Exp.Format(time.RFC3339),
		RegisteredAt:   time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"token":      tok.Token,
		"token_type": repository.TokenTypeDevice,
		"expires":    tok.Exp,
	})
}

// UnlinkDevice: DELETE /v1/auth/display_devices/:id/unlink. Removes the
// device's token so the device can no longer authenticate. 404 when the
// device has no token (or is not the caller's).
func (h *AuthHandler) UnlinkDevice(c echo.Context) error {
	p, err := getPrincipal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	deviceID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Devices.GetByIDAndOwner(ctx, deviceID, p.User.ID); err != nil {
		if errors.Is(err, repository.ErrDeviceNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "display device not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if err := h.DeviceTokens.DeleteByDevice(ctx, deviceID); err != nil {
		if errors.Is(err, repository.ErrDeviceTokenNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "device token not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unlink failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Me: simple protected endpoint describing the caller.
func (h *AuthHandler) Me(c echo.Context) error {
	p, err := getPrincipal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resp := echo.Map{
		"user_id":  p.User.ID,
		"username": p.User.Username,
	}
	if p.IsDevice() {
		resp["display_device_id"] = p.Device.ID
	}
	return c.JSON(http.StatusOK, resp)
}
