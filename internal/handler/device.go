package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/adlooper/signage-server/internal/repository"
)

// DeviceHandler serves display device CRUD, the content feed consumed by
// the devices themselves, and the per-device activity log.
type DeviceHandler struct {
	Devices   *repository.DeviceRepo
	Groups    *repository.MediaGroupRepo
	Schedules *repository.ScheduleRepo
	Logs      *repository.LogRepo
}

func NewDeviceHandler(d *repository.DeviceRepo, g *repository.MediaGroupRepo, s *repository.ScheduleRepo, l *repository.LogRepo) *DeviceHandler {
	return &DeviceHandler{Devices: d, Groups: g, Schedules: s, Logs: l}
}

// deviceResp flattens the nullable columns for JSON output.
type deviceResp struct {
	ID           uint64  `json:"id"`
	OwnerID      uint64  `json:"owner_id"`
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	IsActive     bool    `json:"is_active"`
	MediaGroupID *uint64 `json:"media_group_id"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

func toDeviceResp(d *repository.DisplayDevice) deviceResp {
	r := deviceResp{
		ID:          d.ID,
		OwnerID:     d.OwnerID,
		Name:        d.Name,
		Description: d.Description.String,
		IsActive:    d.IsActive,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if d.MediaGroupID.Valid {
		v := uint64(d.MediaGroupID.Int64)
		r.MediaGroupID = &v
	}
	return r
}

type createDeviceReq struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (h *DeviceHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createDeviceReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d := &repository.DisplayDevice{OwnerID: uid, Name: strings.TrimSpace(req.Name)}
	if req.Description != nil {
		d.Description = sql.NullString{String: *req.Description, Valid: true}
	}
	if err := h.Devices.Create(ctx, d); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, toDeviceResp(d))
}

func (h *DeviceHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	devices, err := h.Devices.ListByOwner(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]deviceResp, 0, len(devices))
	for _, d := range devices {
		out = append(out, toDeviceResp(d))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *DeviceHandler) Get(c echo.Context) error {
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

	d, err := h.Devices.GetByIDAndOwner(ctx, id, uid)
	if err != nil {
		if errors.Is(err, repository.ErrDeviceNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "display device not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toDeviceResp(d))
}

// updateDeviceReq distinguishes "absent" from "null": media_group_id set
// to null detaches the group, absent leaves the assignment alone.
type updateDeviceReq struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	IsActive     *bool   `json:"is_active"`
	MediaGroupID *uint64 `json:"media_group_id"`

	hasGroupField bool
}

func (r *updateDeviceReq) UnmarshalJSON(data []byte) error {
	type alias updateDeviceReq
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = updateDeviceReq(a)
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	_, r.hasGroupField = raw["media_group_id"]
	return nil
}

// Update applies a partial update. Assigning a media group verifies the
// group belongs to the same owner.
func (h *DeviceHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req updateDeviceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Devices.GetByIDAndOwner(ctx, id, uid)
	if err != nil {
		if errors.Is(err, repository.ErrDeviceNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "display device not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "name cannot be empty"})
		}
		d.Name = name
	}
	if req.Description != nil {
		d.Description = sql.NullString{String: *req.Description, Valid: true}
	}
	if req.IsActive != nil {
		d.IsActive = *req.IsActive
	}
	if req.hasGroupField {
		if req.MediaGroupID == nil {
			d.MediaGroupID = sql.NullInt64{}
		} else {
			if _, err := h.Groups.GetByIDAndOwner(ctx, *req.MediaGroupID, uid); err != nil {
				if errors.Is(err, repository.ErrMediaGroupNotFound) {
					return c.JSON(http.StatusNotFound, echo.Map{"error": "media group not found"})
				}
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
			}
			d.MediaGroupID = sql.NullInt64{Int64: int64(*req.MediaGroupID), Valid: true}
		}
	}

	if err := h.Devices.UpdateByIDAndOwner(ctx, d); err != nil {
		if errors.Is(err, repository.ErrDeviceNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "display device not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, toDeviceResp(d))
}

func (h *DeviceHandler) Delete(c echo.Context) error {
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

	if err := h.Devices.DeleteByIDAndOwner(ctx, id, uid); err != nil {
		if errors.Is(err, repository.ErrDeviceNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "display device not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// contentResp is everything a device needs to run its playback loop: the
// assigned group, its media and the schedules attached to the group.
type contentResp struct {
	Device    deviceResp             `json:"device"`
	Group     *repository.MediaGroup `json:"media_group"`
	Media     []mediaResp            `json:"media"`
	Schedules []*repository.Schedule `json:"schedules"`
}

// Content serves the playback feed. The owning user can read any of
// their devices; a device principal can read only itself.
func (h *DeviceHandler) Content(c echo.Context) error {
	p, err := getPrincipal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if p.IsDevice() && p.Device.ID != id {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "device may only read its own content"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Devices.GetByIDAndOwner(ctx, id, p.User.ID)
	if err != nil {
		if errors.Is(err, repository.ErrDeviceNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "display device not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	resp := contentResp{
		Device:    toDeviceResp(d),
		Media:     []mediaResp{},
		Schedules: []*repository.Schedule{},
	}
	if d.MediaGroupID.Valid {
		gid := uint64(d.MediaGroupID.Int64)
		g, err := h.Groups.GetByID(ctx, gid)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		resp.Group = g
		members, err := h.Groups.ListMedia(ctx, gid)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		for _, m := range members {
			resp.Media = append(resp.Media, toMediaResp(m))
		}
		scheds, err := h.Schedules.ListByGroup(ctx, gid)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		resp.Schedules = scheds
	}
	return c.JSON(http.StatusOK, resp)
}

// LogList returns the device's recorded request activity, newest first.
// Owner only; devices cannot read logs.
func (h *DeviceHandler) LogList(c echo.Context) error {
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

	if _, err := h.Devices.GetByIDAndOwner(ctx, id, uid); err != nil {
		if errors.Is(err, repository.ErrDeviceNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "display device not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	logs, err := h.Logs.ListByDevice(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, logs)
}
