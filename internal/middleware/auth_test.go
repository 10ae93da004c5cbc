package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/adlooper/signage-server/internal/auth"
	"github.com/adlooper/signage-server/internal/database"
	"github.com/adlooper/signage-server/internal/repository"
	"github.com/adlooper/signage-server/internal/utils"
)

const secret = "middleware-test-secret"

func newTestResolver(t *testing.T) (*auth.Resolver, *sql.DB) {
	t.Helper()
	db, err := database.Open("sqlite", "", "", "", "", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := database.InitSchema(db, "sqlite"); err != nil {
		t.Fatalf("schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return auth.NewResolver(secret,
		repository.NewUserRepo(db),
		repository.NewTokenRepo(db),
		repository.NewDeviceTokenRepo(db),
		repository.NewDeviceRepo(db),
	), db
}

func issueUserToken(t *testing.T, r *auth.Resolver, username string) string {
	t.Helper()
	ctx := context.Background()
	uid, err := r.Users.Create(ctx, username, username+"@example.com", "pw-123456", 4)
	if err != nil {
		t.Fatal(err)
	}
	st, err := utils.NewUserToken(secret, username, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Tokens.Store(ctx, uid, st.Token, repository.TokenTypeAccess, st.Exp); err != nil {
		t.Fatal(err)
	}
	return st.Token
}

func issueDeviceToken(t *testing.T, r *auth.Resolver, db *sql.DB, username string) string {
	t.Helper()
	ctx := context.Background()
	uid, err := r.Users.Create(ctx, username, username+"@example.com", "pw-123456", 4)
	if err != nil {
		t.Fatal(err)
	}
	dev := &repository.DisplayDevice{OwnerID: uid, Name: "lobby"}
	if err := repository.NewDeviceRepo(db).Create(ctx, dev); err != nil {
		t.Fatal(err)
	}
	st, err := utils.NewDeviceToken(secret, username, dev.ID, 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.DeviceTokens.Create(ctx, uid, dev.ID, st.Token, st.Exp); err != nil {
		t.Fatal(err)
	}
	return st.Token
}

func runProtected(t *testing.T, r *auth.Resolver, token string, extra ...echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	mws := append([]echo.MiddlewareFunc{BearerAuth(r)}, extra...)
	e.GET("/protected", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, mws...)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestBearerAuthMissingHeader(t *testing.T) {
	r, _ := newTestResolver(t)
	if rec := runProtected(t, r, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestBearerAuthGarbageToken(t *testing.T) {
	r, _ := newTestResolver(t)
	if rec := runProtected(t, r, "not-a-token"); rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestBearerAuthValidUser(t *testing.T) {
	r, _ := newTestResolver(t)
	tok := issueUserToken(t, r, "alice")
	if rec := runProtected(t, r, tok); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (%s)", rec.Code, rec.Body)
	}
}

func TestRequireUserBlocksDevices(t *testing.T) {
	r, db := newTestResolver(t)
	devTok := issueDeviceToken(t, r, db, "alice")
	if rec := runProtected(t, r, devTok, RequireUser()); rec.Code != http.StatusForbidden {
		t.Errorf("device on user-only route: status = %d, want 403", rec.Code)
	}

	userTok := issueUserToken(t, r, "bob")
	if rec := runProtected(t, r, userTok, RequireUser()); rec.Code != http.StatusOK {
		t.Errorf("user on user-only route: status = %d, want 200", rec.Code)
	}
}

func TestDeviceActivityLog(t *testing.T) {
	r, db := newTestResolver(t)
	logs := repository.NewLogRepo(db)
	devTok := issueDeviceToken(t, r, db, "alice")

	e := echo.New()
	e.GET("/feed", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, BearerAuth(r), DeviceActivityLog(logs, secret))

	// Device request: one log row.
	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.Header.Set("Authorization", "Bearer "+devTok)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	// User request on the same route: no attribution.
	userTok := issueUserToken(t, r, "bob")
	req = httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.Header.Set("Authorization", "Bearer "+userTok)
	e.ServeHTTP(httptest.NewRecorder(), req)

	entries, err := logs.ListByDevice(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d log rows, want 1", len(entries))
	}
	if entries[0].URL != "/feed" || entries[0].Method != http.MethodGet || entries[0].StatusCode != http.StatusOK {
		t.Errorf("entry = %+v", entries[0])
	}
}
