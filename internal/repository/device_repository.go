package repository

import (
	"context"
	"database/sql"
	"errors"
)

// DisplayDevice represents an unattended playback endpoint. A device may
// be assigned at most one media group; MediaGroupID is NULL while the
// device is unassigned.
type DisplayDevice struct {
	ID           uint64         `json:"id"`
	OwnerID      uint64         `json:"owner_id"`
	Name         string         `json:"name"`
	Description  sql.NullString `json:"-"`
	IsActive     bool           `json:"is_active"`
	MediaGroupID sql.NullInt64  `json:"-"`
	CreatedAt    string         `json:"created_at"`
	UpdatedAt    string         `json:"updated_at"`
}

var ErrDeviceNotFound = errors.New("display device not found")

type DeviceRepo struct{ db *sql.DB }

func NewDeviceRepo(db *sql.DB) *DeviceRepo { return &DeviceRepo{db: db} }

const deviceCols = "id, owner_id, name, description, is_active, media_group_id, created_at, updated_at"

// Create inserts a display device. Description and MediaGroupID may be
// unset. Generated fields are read back after insert.
func (r *DeviceRepo) Create(ctx context.Context, d *DisplayDevice) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO display_devices (owner_id, name, description, media_group_id) VALUES (?,?,?,?)",
		d.OwnerID, d.Name, d.Description, d.MediaGroupID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	got, err := r.GetByID(ctx, d.ID)
	if err != nil {
		return err
	}
	*d = *got
	return nil
}

func (r *DeviceRepo) scanOne(row *sql.Row) (*DisplayDevice, error) {
	var d DisplayDevice
	err := row.Scan(&d.ID, &d.OwnerID, &d.Name, &d.Description, &d.IsActive, &d.MediaGroupID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	return &d, nil
}

// GetByID retrieves a device regardless of owner.
func (r *DeviceRepo) GetByID(ctx context.Context, id uint64) (*DisplayDevice, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		"SELECT "+deviceCols+" FROM display_devices WHERE id = ?", id))
}

// GetByIDAndOwner retrieves a device only if it belongs to the owner.
func (r *DeviceRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*DisplayDevice, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		"SELECT "+deviceCols+" FROM display_devices WHERE id = ? AND owner_id = ?", id, ownerID))
}

// ListByOwner returns all devices owned by a user.
func (r *DeviceRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]*DisplayDevice, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+deviceCols+" FROM display_devices WHERE owner_id = ? ORDER BY id", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*DisplayDevice
	for rows.Next() {
		d := new(DisplayDevice)
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.Name, &d.Description, &d.IsActive, &d.MediaGroupID, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateByIDAndOwner writes back name/description/is_active/media_group_id
// for a device the owner holds. The caller merges partial input into a
// fetched record first, so this is a full-field update.
func (r *DeviceRepo) UpdateByIDAndOwner(ctx context.Context, d *DisplayDevice) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE display_devices
         SET name = ?, description = ?, is_active = ?, media_group_id = ?, updated_at = CURRENT_TIMESTAMP
         WHERE id = ? AND owner_id = ?`,
		d.Name, d.Description, d.IsActive, d.MediaGroupID, d.ID, d.OwnerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// DeleteByIDAndOwner removes a device together with its device token and
// activity logs in one transaction.
func (r *DeviceRepo) DeleteByIDAndOwner(ctx context.Context, id, ownerID uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var owner uint64
	err = tx.QueryRowContext(ctx, "SELECT owner_id FROM display_devices WHERE id = ?", id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrDeviceNotFound
	}
	if err != nil {
		return err
	}
	if owner != ownerID {
		return ErrForbidden
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM display_device_tokens WHERE display_device_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM device_logs WHERE device_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM display_devices WHERE id = ?", id); err != nil {
		return err
	}
	return tx.Commit()
}
