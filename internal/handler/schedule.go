package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/adlooper/signage-server/internal/repository"
)

// ScheduleHandler serves playback schedule CRUD. A schedule fires a media
// item inside a media group at a daily wall-clock time; a media item may
// be scheduled in at most one group.
type ScheduleHandler struct {
	Schedules *repository.ScheduleRepo
	Media     *repository.MediaRepo
	Groups    *repository.MediaGroupRepo
}

func NewScheduleHandler(s *repository.ScheduleRepo, m *repository.MediaRepo, g *repository.MediaGroupRepo) *ScheduleHandler {
	return &ScheduleHandler{Schedules: s, Media: m, Groups: g}
}

type scheduleReq struct {
	TriggerTime  string `json:"trigger_time"`
	MediaID      uint64 `json:"media_id"`
	MediaGroupID uint64 `json:"media_group_id"`
}

// checkRefs verifies both referenced rows belong to the caller. It
// returns the repository sentinel for the offending side; callers map it
// to the HTTP response before touching the schedule table.
func (h *ScheduleHandler) checkRefs(ctx context.Context, uid, mediaID, groupID uint64) error {
	if _, err := h.Media.GetByIDAndOwner(ctx, mediaID, uid); err != nil {
		return err
	}
	if _, err := h.Groups.GetByIDAndOwner(ctx, groupID, uid); err != nil {
		return err
	}
	return nil
}

// refsError writes the response for a failed checkRefs. Foreign rows are
// reported as 404 like everywhere else.
func refsError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrMediaNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "media not found"})
	case errors.Is(err, repository.ErrMediaGroupNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "media group not found"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
}

func (h *ScheduleHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req scheduleReq
	if err := c.Bind(&req); err != nil || req.MediaID == 0 || req.MediaGroupID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "trigger_time, media_id and media_group_id required"})
	}
	trigger, ok := validTriggerTime(req.TriggerTime)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "trigger_time must be HH:MM or HH:MM:SS"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.checkRefs(ctx, uid, req.MediaID, req.MediaGroupID); err != nil {
		return refsError(c, err)
	}

	s := &repository.Schedule{
		OwnerID:      uid,
		TriggerTime:  trigger,
		MediaID:      req.MediaID,
		MediaGroupID: req.MediaGroupID,
	}
	if err := h.Schedules.Create(ctx, s); err != nil {
		if errors.Is(err, repository.ErrScheduleConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "media already scheduled in another group"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *ScheduleHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	scheds, err := h.Schedules.ListByOwner(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, scheds)
}

func (h *ScheduleHandler) Get(c echo.Context) error {
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

	s, err := h.Schedules.GetByIDAndOwner(ctx, id, uid)
	if err != nil {
		if errors.Is(err, repository.ErrScheduleNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "schedule not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, s)
}

// Update replaces the schedule's fields; fields left out of the body keep
// their current value.
func (h *ScheduleHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req scheduleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Schedules.GetByIDAndOwner(ctx, id, uid)
	if err != nil {
		if errors.Is(err, repository.ErrScheduleNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "schedule not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if req.TriggerTime != "" {
		trigger, ok := validTriggerTime(req.TriggerTime)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "trigger_time must be HH:MM or HH:MM:SS"})
		}
		s.TriggerTime = trigger
	}
	if req.MediaID != 0 {
		s.MediaID = req.MediaID
	}
	if req.MediaGroupID != 0 {
		s.MediaGroupID = req.MediaGroupID
	}
	if err := h.checkRefs(ctx, uid, s.MediaID, s.MediaGroupID); err != nil {
		return refsError(c, err)
	}

	if err := h.Schedules.UpdateByIDAndOwner(ctx, s); err != nil {
		switch {
		case errors.Is(err, repository.ErrScheduleConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "media already scheduled in another group"})
		case errors.Is(err, repository.ErrScheduleNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "schedule not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, s)
}

func (h *ScheduleHandler) Delete(c echo.Context) error {
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

	if err := h.Schedules.DeleteByIDAndOwner(ctx, id, uid); err != nil {
		if errors.Is(err, repository.ErrScheduleNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "schedule not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
