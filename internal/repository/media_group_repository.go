package repository

import (
	"context"
	"database/sql"
	"errors"
)

// MediaGroup is a named collection of media items. Display devices are
// assigned exactly one group (or none) and play its scheduled content.
type MediaGroup struct {
	ID        uint64 `json:"id"`
	OwnerID   uint64 `json:"owner_id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

var ErrMediaGroupNotFound = errors.New("media group not found")

type MediaGroupRepo struct{ db *sql.DB }

func NewMediaGroupRepo(db *sql.DB) *MediaGroupRepo { return &MediaGroupRepo{db: db} }

const mediaGroupCols = "id, owner_id, name, created_at, updated_at"

// Create inserts a media group and fills in the generated fields.
func (r *MediaGroupRepo) Create(ctx context.Context, g *MediaGroup) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO media_groups (owner_id, name) VALUES (?,?)", g.OwnerID, g.Name)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	g.ID = uint64(id)
	got, err := r.GetByID(ctx, g.ID)
	if err != nil {
		return err
	}
	*g = *got
	return nil
}

func (r *MediaGroupRepo) scanOne(row *sql.Row) (*MediaGroup, error) {
	var g MediaGroup
	err := row.Scan(&g.ID, &g.OwnerID, &g.Name, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMediaGroupNotFound
		}
		return nil, err
	}
	return &g, nil
}

// GetByID retrieves a media group regardless of owner.
func (r *MediaGroupRepo) GetByID(ctx context.Context, id uint64) (*MediaGroup, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		"SELECT "+mediaGroupCols+" FROM media_groups WHERE id = ?", id))
}

// GetByIDAndOwner retrieves a media group only if it belongs to the owner.
func (r *MediaGroupRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*MediaGroup, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		"SELECT "+mediaGroupCols+" FROM media_groups WHERE id = ? AND owner_id = ?", id, ownerID))
}

// ListByOwner returns all media groups owned by a user.
func (r *MediaGroupRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]*MediaGroup, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+mediaGroupCols+" FROM media_groups WHERE owner_id = ? ORDER BY id", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*MediaGroup
	for rows.Next() {
		g := new(MediaGroup)
		if err := rows.Scan(&g.ID, &g.OwnerID, &g.Name, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// UpdateName renames a media group if it belongs to the given owner.
func (r *MediaGroupRepo) UpdateName(ctx context.Context, id, ownerID uint64, name string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE media_groups SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND owner_id = ?",
		name, id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMediaGroupNotFound
	}
	return nil
}

// AddMedia inserts a membership row in the media_group_media join table.
// Adding the same media twice yields ErrConflict.
func (r *MediaGroupRepo) AddMedia(ctx context.Context, groupID, mediaID uint64) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO media_group_media (media_id, media_group_id) VALUES (?,?)", mediaID, groupID)
	if isDuplicateErr(err) {
		return ErrConflict
	}
	return err
}

// RemoveMedia deletes a membership row. Missing membership is NotFound so
// the caller can distinguish a no-op from a removal.
func (r *MediaGroupRepo) RemoveMedia(ctx context.Context, groupID, mediaID uint64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM media_group_media WHERE media_id = ? AND media_group_id = ?", mediaID, groupID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMediaNotFound
	}
	return nil
}

// ListMedia returns the media items belonging to a group.
func (r *MediaGroupRepo) ListMedia(ctx context.Context, groupID uint64) ([]*Media, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.owner_id, m.name, m.filename, m.created_at, m.updated_at
         FROM media m
         JOIN media_group_media gm ON gm.media_id = m.id
         WHERE gm.media_group_id = ?
         ORDER BY m.id`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Media
	for rows.Next() {
		m := new(Media)
		if err := rows.Scan(&m.ID, &m.OwnerID, &m.Name, &m.Filename, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteByIDAndOwner removes a media group with its memberships, schedules
// and device assignments in one transaction. Devices that pointed at the
// group fall back to unassigned rather than dangling.
func (r *MediaGroupRepo) DeleteByIDAndOwner(ctx context.Context, id, ownerID uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var owner uint64
	err = tx.QueryRowContext(ctx, "SELECT owner_id FROM media_groups WHERE id = ?", id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMediaGroupNotFound
	}
	if err != nil {
		return err
	}
	if owner != ownerID {
		return ErrForbidden
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM schedules WHERE media_group_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM media_group_media WHERE media_group_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE display_devices SET media_group_id = NULL, updated_at = CURRENT_TIMESTAMP WHERE media_group_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM media_groups WHERE id = ?", id); err != nil {
		return err
	}
	return tx.Commit()
}
