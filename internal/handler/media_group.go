package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/adlooper/signage-server/internal/repository"
)

// MediaGroupHandler serves playlist CRUD and membership management.
type MediaGroupHandler struct {
	Groups *repository.MediaGroupRepo
	Media  *repository.MediaRepo
}

func NewMediaGroupHandler(g *repository.MediaGroupRepo, m *repository.MediaRepo) *MediaGroupHandler {
	return &MediaGroupHandler{Groups: g, Media: m}
}

type mediaGroupReq struct {
	Name string `json:"name"`
}

// groupDetail is a group together with its member media.
type groupDetail struct {
	repository.MediaGroup
	Media []mediaResp `json:"media"`
}

func (h *MediaGroupHandler) detail(ctx context.Context, g *repository.MediaGroup) (groupDetail, error) {
	members, err := h.Groups.ListMedia(ctx, g.ID)
	if err != nil {
		return groupDetail{}, err
	}
	out := groupDetail{MediaGroup: *g, Media: make([]mediaResp, 0, len(members))}
	for _, m := range members {
		out.Media = append(out.Media, toMediaResp(m))
	}
	return out, nil
}

func (h *MediaGroupHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req mediaGroupReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	g := &repository.MediaGroup{OwnerID: uid, Name: strings.TrimSpace(req.Name)}
	if err := h.Groups.Create(ctx, g); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, g)
}

func (h *MediaGroupHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	groups, err := h.Groups.ListByOwner(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, groups)
}

// Get returns a group together with its members.
func (h *MediaGroupHandler) Get(c echo.Context) error {
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

	g, err := h.Groups.GetByIDAndOwner(ctx, id, uid)
	if err != nil {
		if errors.Is(err, repository.ErrMediaGroupNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "media group not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	d, err := h.detail(ctx, g)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, d)
}

func (h *MediaGroupHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req mediaGroupReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Groups.UpdateName(ctx, id, uid, strings.TrimSpace(req.Name)); err != nil {
		if errors.Is(err, repository.ErrMediaGroupNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "media group not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	g, err := h.Groups.GetByIDAndOwner(ctx, id, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, g)
}

// Delete removes a group, its membership rows and its schedules, and
// detaches any display device pointing at it.
func (h *MediaGroupHandler) Delete(c echo.Context) error {
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

	if err := h.Groups.DeleteByIDAndOwner(ctx, id, uid); err != nil {
		if errors.Is(err, repository.ErrMediaGroupNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "media group not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// AddMedia puts one of the caller's media items into one of the caller's
// groups. Both sides must belong to the caller; duplicates yield 409.
func (h *MediaGroupHandler) AddMedia(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	groupID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	mediaID, err := pathID(c, "media_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid media id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Groups.GetByIDAndOwner(ctx, groupID, uid); err != nil {
		if errors.Is(err, repository.ErrMediaGroupNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "media group not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if _, err := h.Media.GetByIDAndOwner(ctx, mediaID, uid); err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "media not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if err := h.Groups.AddMedia(ctx, groupID, mediaID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "media already in group"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "add failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// RemoveMedia takes a media item out of a group.
func (h *MediaGroupHandler) RemoveMedia(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	groupID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	mediaID, err := pathID(c, "media_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid media id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Groups.GetByIDAndOwner(ctx, groupID, uid); err != nil {
		if errors.Is(err, repository.ErrMediaGroupNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "media group not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if err := h.Groups.RemoveMedia(ctx, groupID, mediaID); err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "media not in group"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "remove failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
