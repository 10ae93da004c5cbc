package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	// ErrDeviceRegistered is returned when a device already carries a
	// device token; registration must not silently replace it.
	ErrDeviceRegistered = errors.New("device already registered")

	ErrDeviceTokenNotFound = errors.New("device token not found")
)

// DeviceToken mirrors a row of 'display_device_tokens': the long-lived
// credential binding a display device to the user who registered it.
type DeviceToken struct {
	ID        uint64
	OwnerID   uint64
	DeviceID  uint64
	Token     string
	TokenType string
	ExpiresAt int64
	IsActive  bool
	CreatedAt string
}

// Expired reports whether the stored expiry lies in the past.
func (t DeviceToken) Expired(now time.Time) bool { return now.Unix() >= t.ExpiresAt }

type DeviceTokenRepo struct{ DB *sql.DB }

func NewDeviceTokenRepo(db *sql.DB) *DeviceTokenRepo { return &DeviceTokenRepo{DB: db} }

// Create inserts the device token row. The UNIQUE constraint on
// display_device_id makes the one-token-per-device rule atomic with the
// insert, so two concurrent registrations cannot both succeed.
func (r *DeviceTokenRepo) Create(ctx context.Context, ownerID, deviceID uint64, token string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO display_device_tokens (owner_id, display_device_id, token, token_type, expires_at) VALUES (?,?,?,?,?)",
		ownerID, deviceID, token, TokenTypeDevice, exp.Unix())
	if isDuplicateErr(err) {
		return ErrDeviceRegistered
	}
	return err
}

const deviceTokenCols = "id,owner_id,display_device_id,token,token_type,expires_at,is_active,created_at"

func scanDeviceToken(row *sql.Row) (DeviceToken, error) {
	var t DeviceToken
	err := row.Scan(&t.ID, &t.OwnerID, &t.DeviceID, &t.Token, &t.TokenType, &t.ExpiresAt, &t.IsActive, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrDeviceTokenNotFound
	}
	return t, err
}

// GetByToken looks up a device token row by the literal token string.
func (r *DeviceTokenRepo) GetByToken(ctx context.Context, token string) (DeviceToken, error) {
	return scanDeviceToken(r.DB.QueryRowContext(ctx,
		"SELECT "+deviceTokenCols+" FROM display_device_tokens WHERE token=? LIMIT 1", token))
}

// GetByDevice returns the token registered for a device, if any.
func (r *DeviceTokenRepo) GetByDevice(ctx context.Context, deviceID uint64) (DeviceToken, error) {
	return scanDeviceToken(r.DB.QueryRowContext(ctx,
		"SELECT "+deviceTokenCols+" FROM display_device_tokens WHERE display_device_id=? LIMIT 1", deviceID))
}

// DeleteByDevice unlinks a device by removing its token row. Returns
// ErrDeviceTokenNotFound when the device had no token.
func (r *DeviceTokenRepo) DeleteByDevice(ctx context.Context, deviceID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM display_device_tokens WHERE display_device_id=?", deviceID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDeviceTokenNotFound
	}
	return nil
}
