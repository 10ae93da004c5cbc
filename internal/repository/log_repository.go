package repository

import (
	"context"
	"database/sql"
)

// DeviceLog is one attributed request made with a device token. Rows are
// written by the activity-log middleware and read by the device owner.
type DeviceLog struct {
	ID         uint64 `json:"id"`
	DeviceID   uint64 `json:"device_id"`
	URL        string `json:"url"`
	Method     string `json:"method"`
	StatusCode int    `json:"status_code"`
	CreatedAt  string `json:"created_at"`
}

type LogRepo struct{ db *sql.DB }

func NewLogRepo(db *sql.DB) *LogRepo { return &LogRepo{db: db} }

// Insert records one device request.
func (r *LogRepo) Insert(ctx context.Context, deviceID uint64, url, method string, status int) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO device_logs (device_id, url, method, status_code) VALUES (?,?,?,?)",
		deviceID, url, method, status)
	return err
}

// ListByDevice returns a device's request log, newest first.
func (r *LogRepo) ListByDevice(ctx context.Context, deviceID uint64) ([]*DeviceLog, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, device_id, url, method, status_code, created_at FROM device_logs WHERE device_id = ? ORDER BY id DESC",
		deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*DeviceLog
	for rows.Next() {
		l := new(DeviceLog)
		if err := rows.Scan(&l.ID, &l.DeviceID, &l.URL, &l.Method, &l.StatusCode, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
