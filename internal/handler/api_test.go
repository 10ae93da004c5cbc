package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/adlooper/signage-server/internal/auth"
	"github.com/adlooper/signage-server/internal/config"
	"github.com/adlooper/signage-server/internal/database"
	"github.com/adlooper/signage-server/internal/handler"
	"github.com/adlooper/signage-server/internal/repository"
	"github.com/adlooper/signage-server/internal/router"
	queue_publisher "github.com/adlooper/signage-server/internal/service"
	"github.com/adlooper/signage-server/internal/storage"
)

const testSecret = "api-test-secret"

// newTestServer builds the full application over an in-memory database,
// a temp-dir file store, no broker and no redis.
func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	cfg := config.Config{
		Env:            "test",
		JWTSecret:      testSecret,
		AccessTTLMin:   30,
		RefreshTTLDays: 10,
		DeviceTTLDays:  365,
		BcryptCost:     4,
	}

	db, err := database.Open("sqlite", "", "", "", "", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := database.InitSchema(db, "sqlite"); err != nil {
		t.Fatalf("schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	deviceTokens := repository.NewDeviceTokenRepo(db)
	devices := repository.NewDeviceRepo(db)
	media := repository.NewMediaRepo(db)
	groups := repository.NewMediaGroupRepo(db)
	schedules := repository.NewScheduleRepo(db)
	logs := repository.NewLogRepo(db)

	resolver := auth.NewResolver(cfg.JWTSecret, users, tokens, deviceTokens, devices)
	files, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	var events *queue_publisher.Publisher // nil: events disabled

	h := router.Handlers{
		Auth:      handler.NewAuthHandler(cfg, resolver, tokens, deviceTokens, devices, events),
		Users:     handler.NewUserHandler(cfg, users),
		Media:     handler.NewMediaHandler(media, files, events),
		Groups:    handler.NewMediaGroupHandler(groups, media),
		Devices:   handler.NewDeviceHandler(devices, groups, schedules, logs),
		Schedules: handler.NewScheduleHandler(schedules, media, groups),
	}

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAPI(e, h, resolver, logs, cfg.JWTSecret, nil)
	return e
}

// doJSON performs a request with an optional JSON body and bearer token.
func doJSON(e *echo.Echo, method, path, token string, body any) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

// signup registers an account and returns an access token.
func signup(t *testing.T, e *echo.Echo, username string) string {
	t.Helper()
	rec := doJSON(e, http.MethodPost, "/v1/users", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "pw-123456",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: %d %s", username, rec.Code, rec.Body)
	}
	rec = doJSON(e, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"username": username,
		"password": "pw-123456",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", username, rec.Code, rec.Body)
	}
	var resp struct {
		Access struct {
			Token string `json:"token"`
		} `json:"access"`
	}
	decode(t, rec, &resp)
	return resp.Access.Token
}

func createDevice(t *testing.T, e *echo.Echo, token, name string) uint64 {
	t.Helper()
	rec := doJSON(e, http.MethodPost, "/v1/display_devices", token, map[string]string{"name": name})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create device: %d %s", rec.Code, rec.Body)
	}
	var dev struct {
		ID uint64 `json:"id"`
	}
	decode(t, rec, &dev)
	return dev.ID
}

func registerDevice(t *testing.T, e *echo.Echo, token string, id uint64) string {
	t.Helper()
	rec := doJSON(e, http.MethodPost, fmt.Sprintf("/v1/auth/display_devices/%d/register", id), token, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register device: %d %s", rec.Code, rec.Body)
	}
	var resp struct {
		Token string `json:"token"`
	}
	decode(t, rec, &resp)
	return resp.Token
}

func TestLoginFlow(t *testing.T) {
	e := newTestServer(t)
	tok := signup(t, e, "alice")

	rec := doJSON(e, http.MethodGet, "/v1/auth/me", tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: %d %s", rec.Code, rec.Body)
	}
	var me struct {
		Username string `json:"username"`
	}
	decode(t, rec, &me)
	if me.Username != "alice" {
		t.Errorf("me = %s", rec.Body)
	}

	// Wrong password.
	rec = doJSON(e, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"username": "alice", "password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: %d", rec.Code)
	}

	// Duplicate registration.
	rec = doJSON(e, http.MethodPost, "/v1/users", "", map[string]string{
		"username": "alice", "email": "other@example.com", "password": "pw-123456",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate username: %d", rec.Code)
	}
}

func TestRefreshFlow(t *testing.T) {
	e := newTestServer(t)
	signup(t, e, "alice")

	rec := doJSON(e, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"username": "alice", "password": "pw-123456",
	})
	var login struct {
		Access, Refresh struct {
			Token string `json:"token"`
		}
	}
	decode(t, rec, &login)

	rec = doJSON(e, http.MethodPost, "/v1/auth/refresh", "", map[string]string{
		"refresh_token": login.Refresh.Token,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: %d %s", rec.Code, rec.Body)
	}
	var refreshed struct {
		Access struct {
			Token string `json:"token"`
		} `json:"access"`
	}
	decode(t, rec, &refreshed)
	if refreshed.Access.Token == "" {
		t.Fatal("no access token in refresh response")
	}
	if rec := doJSON(e, http.MethodGet, "/v1/auth/me", refreshed.Access.Token, nil); rec.Code != http.StatusOK {
		t.Errorf("refreshed access rejected: %d", rec.Code)
	}

	// A refresh token is not a bearer credential.
	if rec := doJSON(e, http.MethodGet, "/v1/auth/me", login.Refresh.Token, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("refresh token accepted as bearer: %d", rec.Code)
	}
	// An access token cannot be exchanged.
	rec = doJSON(e, http.MethodPost, "/v1/auth/refresh", "", map[string]string{
		"refresh_token": login.Access.Token,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("access token exchanged: %d", rec.Code)
	}
}

func TestLogoutRevokesAccess(t *testing.T) {
	e := newTestServer(t)
	tok := signup(t, e, "alice")

	if rec := doJSON(e, http.MethodPost, "/v1/auth/logout", tok, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("logout: %d %s", rec.Code, rec.Body)
	}
	// The token decodes fine but its row is gone.
	if rec := doJSON(e, http.MethodGet, "/v1/auth/me", tok, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("token survived logout: %d", rec.Code)
	}
}

func TestDeviceLifecycle(t *testing.T) {
	e := newTestServer(t)
	tok := signup(t, e, "alice")
	devID := createDevice(t, e, tok, "lobby")
	devTok := registerDevice(t, e, tok, devID)

	// Device reads its own content feed.
	rec := doJSON(e, http.MethodGet, fmt.Sprintf("/v1/display_devices/%d/content", devID), devTok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("device content: %d %s", rec.Code, rec.Body)
	}

	// Device may not touch management routes.
	if rec := doJSON(e, http.MethodGet, "/v1/media", devTok, nil); rec.Code != http.StatusForbidden {
		t.Errorf("device listed media: %d", rec.Code)
	}
	if rec := doJSON(e, http.MethodPost, "/v1/display_devices", devTok, map[string]string{"name": "x"}); rec.Code != http.StatusForbidden {
		t.Errorf("device created device: %d", rec.Code)
	}

	// Device may not read a sibling device's feed.
	otherID := createDevice(t, e, tok, "hall")
	rec = doJSON(e, http.MethodGet, fmt.Sprintf("/v1/display_devices/%d/content", otherID), devTok, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("device read sibling feed: %d", rec.Code)
	}

	// Second registration without unlink conflicts.
	rec = doJSON(e, http.MethodPost, fmt.Sprintf("/v1/auth/display_devices/%d/register", devID), tok, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("re-register: %d, want 409", rec.Code)
	}

	// Unlink kills the device token.
	rec = doJSON(e, http.MethodDelete, fmt.Sprintf("/v1/auth/display_devices/%d/unlink", devID), tok, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("unlink: %d %s", rec.Code, rec.Body)
	}
	rec = doJSON(e, http.MethodGet, fmt.Sprintf("/v1/display_devices/%d/content", devID), devTok, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unlinked device token still works: %d", rec.Code)
	}
	// And the slot is free again.
	registerDevice(t, e, tok, devID)
}

func TestOwnershipIsolation(t *testing.T) {
	e := newTestServer(t)
	alice := signup(t, e, "alice")
	bob := signup(t, e, "bob")

	rec := doJSON(e, http.MethodPost, "/v1/media", alice, map[string]string{"name": "promo"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create media: %d %s", rec.Code, rec.Body)
	}
	var m struct {
		ID uint64 `json:"id"`
	}
	decode(t, rec, &m)

	// Bob sees neither the item nor its existence.
	if rec := doJSON(e, http.MethodGet, fmt.Sprintf("/v1/media/%d", m.ID), bob, nil); rec.Code != http.StatusNotFound {
		t.Errorf("cross-owner get: %d, want 404", rec.Code)
	}
	if rec := doJSON(e, http.MethodDelete, fmt.Sprintf("/v1/media/%d", m.ID), bob, nil); rec.Code != http.StatusNotFound {
		t.Errorf("cross-owner delete: %d, want 404", rec.Code)
	}
	var list []json.RawMessage
	rec = doJSON(e, http.MethodGet, "/v1/media", bob, nil)
	decode(t, rec, &list)
	if len(list) != 0 {
		t.Errorf("bob's listing contains %d foreign items", len(list))
	}

	// Bob cannot edit or delete alice's account either.
	if rec := doJSON(e, http.MethodDelete, "/v1/users/1", bob, nil); rec.Code != http.StatusForbidden {
		t.Errorf("cross-owner user delete: %d, want 403", rec.Code)
	}
}

func TestMediaUploadDownload(t *testing.T) {
	e := newTestServer(t)
	alice := signup(t, e, "alice")

	rec := doJSON(e, http.MethodPost, "/v1/media", alice, map[string]string{"name": "promo"})
	var m struct {
		ID uint64 `json:"id"`
	}
	decode(t, rec, &m)

	// Download before upload: nothing to serve.
	if rec := doJSON(e, http.MethodGet, fmt.Sprintf("/v1/media/%d/download", m.ID), alice, nil); rec.Code != http.StatusNotFound {
		t.Errorf("download without file: %d, want 404", rec.Code)
	}

	// Multipart upload.
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "ad.mp4")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("fake video bytes"))
	w.Close()

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/v1/media/%d/upload", m.ID), &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+alice)
	up := httptest.NewRecorder()
	e.ServeHTTP(up, req)
	if up.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", up.Code, up.Body)
	}

	// Owner downloads the exact bytes back.
	rec = doJSON(e, http.MethodGet, fmt.Sprintf("/v1/media/%d/download", m.ID), alice, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("download: %d %s", rec.Code, rec.Body)
	}
	if rec.Body.String() != "fake video bytes" {
		t.Errorf("downloaded %q", rec.Body.String())
	}

	// A registered device of the same owner can download too.
	devID := createDevice(t, e, alice, "lobby")
	devTok := registerDevice(t, e, alice, devID)
	rec = doJSON(e, http.MethodGet, fmt.Sprintf("/v1/media/%d/download", m.ID), devTok, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("device download: %d %s", rec.Code, rec.Body)
	}
}

func TestGroupAndScheduleFlow(t *testing.T) {
	e := newTestServer(t)
	alice := signup(t, e, "alice")

	var m1, m2, g1, g2 struct {
		ID uint64 `json:"id"`
	}
	decode(t, doJSON(e, http.MethodPost, "/v1/media", alice, map[string]string{"name": "one"}), &m1)
	decode(t, doJSON(e, http.MethodPost, "/v1/media", alice, map[string]string{"name": "two"}), &m2)
	decode(t, doJSON(e, http.MethodPost, "/v1/media_groups", alice, map[string]string{"name": "morning"}), &g1)
	decode(t, doJSON(e, http.MethodPost, "/v1/media_groups", alice, map[string]string{"name": "evening"}), &g2)

	add := func(g, m uint64) *httptest.ResponseRecorder {
		return doJSON(e, http.MethodPost, fmt.Sprintf("/v1/media_groups/%d/media/%d", g, m), alice, nil)
	}
	if rec := add(g1.ID, m1.ID); rec.Code != http.StatusNoContent {
		t.Fatalf("add media: %d %s", rec.Code, rec.Body)
	}
	if rec := add(g1.ID, m1.ID); rec.Code != http.StatusConflict {
		t.Errorf("duplicate add: %d, want 409", rec.Code)
	}
	add(g1.ID, m2.ID)
	add(g2.ID, m1.ID)

	// Group detail lists members.
	rec := doJSON(e, http.MethodGet, fmt.Sprintf("/v1/media_groups/%d", g1.ID), alice, nil)
	var detail struct {
		Media []struct {
			ID uint64 `json:"id"`
		} `json:"media"`
	}
	decode(t, rec, &detail)
	if len(detail.Media) != 2 {
		t.Errorf("group has %d members, want 2", len(detail.Media))
	}

	// Schedules: invalid time rejected, conflict enforced across groups.
	mk := func(trigger string, media, group uint64) *httptest.ResponseRecorder {
		return doJSON(e, http.MethodPost, "/v1/schedules", alice, map[string]any{
			"trigger_time": trigger, "media_id": media, "media_group_id": group,
		})
	}
	if rec := mk("25:00", m1.ID, g1.ID); rec.Code != http.StatusBadRequest {
		t.Errorf("bad trigger time: %d, want 400", rec.Code)
	}
	if rec := mk("08:00", m1.ID, g1.ID); rec.Code != http.StatusCreated {
		t.Fatalf("create schedule: %d %s", rec.Code, rec.Body)
	}
	if rec := mk("12:00", m1.ID, g2.ID); rec.Code != http.StatusConflict {
		t.Errorf("cross-group schedule: %d, want 409", rec.Code)
	}
	if rec := mk("12:00", m2.ID, g1.ID); rec.Code != http.StatusCreated {
		t.Errorf("second media schedule: %d %s", rec.Code, rec.Body)
	}
}

// Scheduling another user's media or group must fail outright: no row may
// be persisted alongside the 404.
func TestScheduleCrossOwnerRefs(t *testing.T) {
	e := newTestServer(t)
	alice := signup(t, e, "alice")
	bob := signup(t, e, "bob")

	var bobsMedia, bobsGroup, m, g struct {
		ID uint64 `json:"id"`
	}
	decode(t, doJSON(e, http.MethodPost, "/v1/media", bob, map[string]string{"name": "bobs"}), &bobsMedia)
	decode(t, doJSON(e, http.MethodPost, "/v1/media_groups", bob, map[string]string{"name": "bobs"}), &bobsGroup)
	decode(t, doJSON(e, http.MethodPost, "/v1/media", alice, map[string]string{"name": "mine"}), &m)
	decode(t, doJSON(e, http.MethodPost, "/v1/media_groups", alice, map[string]string{"name": "mine"}), &g)

	for _, body := range []map[string]any{
		{"trigger_time": "09:00", "media_id": bobsMedia.ID, "media_group_id": g.ID},
		{"trigger_time": "09:00", "media_id": m.ID, "media_group_id": bobsGroup.ID},
	} {
		rec := doJSON(e, http.MethodPost, "/v1/schedules", alice, body)
		if rec.Code != http.StatusNotFound {
			t.Errorf("cross-owner schedule: %d %s, want 404", rec.Code, rec.Body)
		}
		// The 404 must be the whole response, with no schedule appended.
		var errBody struct {
			Error string `json:"error"`
		}
		decode(t, rec, &errBody)
		if errBody.Error == "" {
			t.Errorf("response body = %q", rec.Body.String())
		}
	}

	var list []json.RawMessage
	decode(t, doJSON(e, http.MethodGet, "/v1/schedules", alice, nil), &list)
	if len(list) != 0 {
		t.Fatalf("%d schedule rows persisted despite 404", len(list))
	}

	// The update path enforces the same rule without changing the row.
	var s struct {
		ID           uint64 `json:"id"`
		MediaGroupID uint64 `json:"media_group_id"`
	}
	decode(t, doJSON(e, http.MethodPost, "/v1/schedules", alice, map[string]any{
		"trigger_time": "10:00", "media_id": m.ID, "media_group_id": g.ID,
	}), &s)
	rec := doJSON(e, http.MethodPatch, fmt.Sprintf("/v1/schedules/%d", s.ID), alice, map[string]any{
		"media_group_id": bobsGroup.ID,
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("cross-owner update: %d %s, want 404", rec.Code, rec.Body)
	}
	var got struct {
		MediaGroupID uint64 `json:"media_group_id"`
	}
	decode(t, doJSON(e, http.MethodGet, fmt.Sprintf("/v1/schedules/%d", s.ID), alice, nil), &got)
	if got.MediaGroupID != g.ID {
		t.Errorf("schedule moved to group %d despite 404", got.MediaGroupID)
	}
}

func TestDeviceContentFeed(t *testing.T) {
	e := newTestServer(t)
	alice := signup(t, e, "alice")

	var m, g struct {
		ID uint64 `json:"id"`
	}
	decode(t, doJSON(e, http.MethodPost, "/v1/media", alice, map[string]string{"name": "promo"}), &m)
	decode(t, doJSON(e, http.MethodPost, "/v1/media_groups", alice, map[string]string{"name": "loop"}), &g)
	doJSON(e, http.MethodPost, fmt.Sprintf("/v1/media_groups/%d/media/%d", g.ID, m.ID), alice, nil)
	doJSON(e, http.MethodPost, "/v1/schedules", alice, map[string]any{
		"trigger_time": "09:00:00", "media_id": m.ID, "media_group_id": g.ID,
	})

	devID := createDevice(t, e, alice, "lobby")

	// Feed before assignment: empty.
	rec := doJSON(e, http.MethodGet, fmt.Sprintf("/v1/display_devices/%d/content", devID), alice, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("content: %d %s", rec.Code, rec.Body)
	}
	var feed struct {
		Group     *json.RawMessage `json:"media_group"`
		Media     []json.RawMessage
		Schedules []json.RawMessage
	}
	decode(t, rec, &feed)
	if feed.Group != nil {
		t.Error("unassigned device has a group in its feed")
	}

	// Assign the group, then the feed carries media and schedules.
	rec = doJSON(e, http.MethodPatch, fmt.Sprintf("/v1/display_devices/%d", devID), alice, map[string]any{
		"media_group_id": g.ID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("assign group: %d %s", rec.Code, rec.Body)
	}

	rec = doJSON(e, http.MethodGet, fmt.Sprintf("/v1/display_devices/%d/content", devID), alice, nil)
	decode(t, rec, &feed)
	if feed.Group == nil || len(feed.Media) != 1 || len(feed.Schedules) != 1 {
		t.Errorf("feed = %s", rec.Body)
	}

	// Device activity shows up in the logs once the device polls.
	devTok := registerDevice(t, e, alice, devID)
	doJSON(e, http.MethodGet, fmt.Sprintf("/v1/display_devices/%d/content", devID), devTok, nil)

	rec = doJSON(e, http.MethodGet, fmt.Sprintf("/v1/display_devices/%d/logs", devID), alice, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logs: %d %s", rec.Code, rec.Body)
	}
	var logs []struct {
		URL    string `json:"url"`
		Method string `json:"method"`
	}
	decode(t, rec, &logs)
	if len(logs) != 1 || logs[0].Method != http.MethodGet {
		t.Errorf("logs = %s", rec.Body)
	}

	// Devices cannot read their own logs.
	rec = doJSON(e, http.MethodGet, fmt.Sprintf("/v1/display_devices/%d/logs", devID), devTok, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("device read logs: %d, want 403", rec.Code)
	}
}

func TestUserListingHidesEmail(t *testing.T) {
	e := newTestServer(t)
	alice := signup(t, e, "alice")
	signup(t, e, "bob")

	rec := doJSON(e, http.MethodGet, "/v1/users", alice, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d %s", rec.Code, rec.Body)
	}
	var list []map[string]any
	decode(t, rec, &list)
	if len(list) != 2 {
		t.Fatalf("got %d users", len(list))
	}
	for _, u := range list {
		if _, leaked := u["email"]; leaked {
			t.Errorf("list leaks email for user %v", u["username"])
		}
		if u["username"] == "" {
			t.Error("username missing from listing")
		}
	}

	// Single-user lookup of another account: same projection.
	rec = doJSON(e, http.MethodGet, "/v1/users/2", alice, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: %d %s", rec.Code, rec.Body)
	}
	var one map[string]any
	decode(t, rec, &one)
	if _, leaked := one["email"]; leaked {
		t.Error("get leaks email")
	}
	if one["username"] != "bob" {
		t.Errorf("username = %v", one["username"])
	}
}

func TestUserUpdateAndDelete(t *testing.T) {
	e := newTestServer(t)
	alice := signup(t, e, "alice")

	rec := doJSON(e, http.MethodPatch, "/v1/users/1", alice, map[string]string{"email": "new@example.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body)
	}
	var u struct {
		Email string `json:"email"`
	}
	decode(t, rec, &u)
	if u.Email != "new@example.com" {
		t.Errorf("email = %q", u.Email)
	}

	if rec := doJSON(e, http.MethodDelete, "/v1/users/1", alice, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body)
	}
	// The account and its session are gone.
	if rec := doJSON(e, http.MethodGet, "/v1/auth/me", alice, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("session survived account delete: %d", rec.Code)
	}
}
