package handler

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/adlooper/signage-server/internal/queue"
	"github.com/adlooper/signage-server/internal/repository"
	queue_publisher "github.com/adlooper/signage-server/internal/service"
	"github.com/adlooper/signage-server/internal/storage"
)

// MediaHandler serves media metadata CRUD plus file upload/download.
type MediaHandler struct {
	Media  *repository.MediaRepo
	Files  *storage.FileStore
	Events *queue_publisher.Publisher
}

func NewMediaHandler(m *repository.MediaRepo, fs *storage.FileStore, ev *queue_publisher.Publisher) *MediaHandler {
	return &MediaHandler{Media: m, Files: fs, Events: ev}
}

// mediaResp flattens the nullable filename for JSON output.
type mediaResp struct {
	ID        uint64 `json:"id"`
	OwnerID   uint64 `json:"owner_id"`
	Name      string `json:"name"`
	Filename  string `json:"filename,omitempty"`
	HasFile   bool   `json:"has_file"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toMediaResp(m *repository.Media) mediaResp {
	return mediaResp{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		Name:      m.Name,
		Filename:  m.Filename.String,
		HasFile:   m.Filename.Valid,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

type mediaReq struct {
	Name string `json:"name"`
}

// Create registers a media item without a file; the file arrives later
// through Upload.
func (h *MediaHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req mediaReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	m := &repository.Media{OwnerID: uid, Name: strings.TrimSpace(req.Name)}
	if err := h.Media.Create(ctx, m); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, toMediaResp(m))
}

// List returns the caller's media items.
func (h *MediaHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Media.ListByOwner(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]mediaResp, 0, len(items))
	for _, m := range items {
		out = append(out, toMediaResp(m))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one of the caller's media items. Other users' media is
// reported as 404, not 403, so ids are not probeable.
func (h *MediaHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	m, err := h.Media.GetByIDAndOwner(ctx, id, uid)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "media not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toMediaResp(m))
}

// Update renames a media item.
func (h *MediaHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req mediaReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Media.UpdateName(ctx, id, uid, strings.TrimSpace(req.Name)); err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "media not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	m, err := h.Media.GetByIDAndOwner(ctx, id, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toMediaResp(m))
}

// Delete removes a media item, its group memberships, its schedules and
// the stored file.
func (h *MediaHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	m, err := h.Media.GetByIDAndOwner(ctx, id, uid)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "media not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if err := h.Media.DeleteByIDAndOwner(ctx, id, uid); err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "media not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	// Row is gone; a leftover file on disk is tolerable, an error here
	// must not fail the request.
	if m.Filename.Valid {
		_ = h.Files.Remove(m.Filename.String)
	}
	return c.NoContent(http.StatusNoContent)
}

// Upload accepts a multipart form with a "file" part and stores it under
// a name derived from the media id, replacing any previous file.
func (h *MediaHandler) Upload(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	m, err := h.Media.GetByIDAndOwner(ctx, id, uid)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "media not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file part required"})
	}
	src, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable file"})
	}
	defer src.Close()

	// Store as "<id><ext>" so uploads cannot clash across media items.
	stored := strconv.FormatUint(id, 10) + strings.ToLower(filepath.Ext(fh.Filename))
	size, err := h.Files.Save(stored, src)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store failed"})
	}
	if m.Filename.Valid && m.Filename.String != stored {
		_ = h.Files.Remove(m.Filename.String)
	}
	if err := h.Media.SetFilename(ctx, id, stored); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	_ = h.Events.PublishMediaUploaded(ctx, queue.MediaUploadedEvent{
		MediaID:    id,
		OwnerID:    uid,
		Filename:   stored,
		SizeBytes:  size,
		UploadedAt: time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusOK, echo.Map{
		"id":       id,
		"filename": stored,
		"size":     size,
	})
}

// Download streams the stored file back. Readable by the owning user and
// by that owner's display devices.
func (h *MediaHandler) Download(c echo.Context) error {
	p, err := getPrincipal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	m, err := h.Media.GetByIDAndOwner(ctx, id, p.User.ID)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "media not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !m.Filename.Valid {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "media has no file"})
	}

	f, err := h.Files.Open(m.Filename.String)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "file missing from storage"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "read failed"})
	}
	defer f.Close()

	ct := mime.TypeByExtension(filepath.Ext(m.Filename.String))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return c.Stream(http.StatusOK, ct, f)
}
