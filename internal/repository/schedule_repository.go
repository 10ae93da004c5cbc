package repository

import (
	"context"
	"database/sql"
	"errors"
)

// Schedule binds one media item to one media group at a daily trigger
// time. TriggerTime is a wall-clock "HH:MM:SS" string with no date part.
type Schedule struct {
	ID           uint64 `json:"id"`
	OwnerID      uint64 `json:"owner_id"`
	TriggerTime  string `json:"trigger_time"`
	MediaID      uint64 `json:"media_id"`
	MediaGroupID uint64 `json:"media_group_id"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

var (
	ErrScheduleNotFound = errors.New("schedule not found")

	// ErrScheduleConflict is returned when the media item is already
	// scheduled under a different media group. The rule is narrower than
	// global uniqueness: repeat schedules inside the same group are fine.
	ErrScheduleConflict = errors.New("media already scheduled in a different media group")
)

type ScheduleRepo struct{ db *sql.DB }

func NewScheduleRepo(db *sql.DB) *ScheduleRepo { return &ScheduleRepo{db: db} }

const scheduleCols = "id, owner_id, trigger_time, media_id, media_group_id, created_at, updated_at"

// Create inserts a schedule after checking the single-group-per-media
// rule. The check and insert run inside one transaction; this narrows but
// does not fully close the race window, since the rule cannot be stated
// as a unique constraint (same-group duplicates are allowed).
func (r *ScheduleRepo) Create(ctx context.Context, s *Schedule) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := checkScheduleConflict(ctx, tx, s.MediaID, s.MediaGroupID, 0); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO schedules (owner_id, trigger_time, media_id, media_group_id) VALUES (?,?,?,?)",
		s.OwnerID, s.TriggerTime, s.MediaID, s.MediaGroupID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	if err := tx.QueryRowContext(ctx,
		"SELECT "+scheduleCols+" FROM schedules WHERE id = ?", s.ID).
		Scan(&s.ID, &s.OwnerID, &s.TriggerTime, &s.MediaID, &s.MediaGroupID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return err
	}
	return tx.Commit()
}

// checkScheduleConflict fails when the media is scheduled under any other
// group. excludeID skips the schedule being updated.
func checkScheduleConflict(ctx context.Context, tx *sql.Tx, mediaID, groupID, excludeID uint64) error {
	var n int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM schedules WHERE media_id = ? AND media_group_id <> ? AND id <> ?",
		mediaID, groupID, excludeID).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrScheduleConflict
	}
	return nil
}

func (r *ScheduleRepo) scanOne(row *sql.Row) (*Schedule, error) {
	var s Schedule
	err := row.Scan(&s.ID, &s.OwnerID, &s.TriggerTime, &s.MediaID, &s.MediaGroupID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	return &s, nil
}

// GetByIDAndOwner retrieves a schedule only if it belongs to the owner.
func (r *ScheduleRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*Schedule, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		"SELECT "+scheduleCols+" FROM schedules WHERE id = ? AND owner_id = ?", id, ownerID))
}

// ListByOwner returns all schedules owned by a user.
func (r *ScheduleRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]*Schedule, error) {
	return r.list(ctx, "SELECT "+scheduleCols+" FROM schedules WHERE owner_id = ? ORDER BY trigger_time, id", ownerID)
}

// ListByGroup returns the schedules of one media group, playback order.
func (r *ScheduleRepo) ListByGroup(ctx context.Context, groupID uint64) ([]*Schedule, error) {
	return r.list(ctx, "SELECT "+scheduleCols+" FROM schedules WHERE media_group_id = ? ORDER BY trigger_time, id", groupID)
}

func (r *ScheduleRepo) list(ctx context.Context, q string, arg uint64) ([]*Schedule, error) {
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Schedule
	for rows.Next() {
		s := new(Schedule)
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.TriggerTime, &s.MediaID, &s.MediaGroupID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateByIDAndOwner writes back a merged schedule record. When media or
// group changed, the single-group-per-media rule is re-checked.
func (r *ScheduleRepo) UpdateByIDAndOwner(ctx context.Context, s *Schedule) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := checkScheduleConflict(ctx, tx, s.MediaID, s.MediaGroupID, s.ID); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE schedules
         SET trigger_time = ?, media_id = ?, media_group_id = ?, updated_at = CURRENT_TIMESTAMP
         WHERE id = ? AND owner_id = ?`,
		s.TriggerTime, s.MediaID, s.MediaGroupID, s.ID, s.OwnerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrScheduleNotFound
	}
	return tx.Commit()
}

// DeleteByIDAndOwner removes a schedule the owner holds.
func (r *ScheduleRepo) DeleteByIDAndOwner(ctx context.Context, id, ownerID uint64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM schedules WHERE id = ? AND owner_id = ?", id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrScheduleNotFound
	}
	return nil
}
