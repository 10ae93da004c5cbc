package repository

import (
	"context"
	"database/sql"
	"errors"
)

// Media represents an uploadable media item (image, video, ...). Filename
// stays NULL until a file has actually been uploaded for it.
type Media struct {
	ID        uint64         `json:"id"`
	OwnerID   uint64         `json:"owner_id"`
	Name      string         `json:"name"`
	Filename  sql.NullString `json:"-"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
}

var ErrMediaNotFound = errors.New("media not found")

type MediaRepo struct{ db *sql.DB }

func NewMediaRepo(db *sql.DB) *MediaRepo { return &MediaRepo{db: db} }

const mediaCols = "id, owner_id, name, filename, created_at, updated_at"

// Create inserts a media row and fills in the generated fields.
func (r *MediaRepo) Create(ctx context.Context, m *Media) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO media (owner_id, name) VALUES (?,?)", m.OwnerID, m.Name)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	got, err := r.GetByID(ctx, m.ID)
	if err != nil {
		return err
	}
	*m = *got
	return nil
}

func (r *MediaRepo) scanOne(row *sql.Row) (*Media, error) {
	var m Media
	err := row.Scan(&m.ID, &m.OwnerID, &m.Name, &m.Filename, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMediaNotFound
		}
		return nil, err
	}
	return &m, nil
}

// GetByID retrieves a media item regardless of owner.
func (r *MediaRepo) GetByID(ctx context.Context, id uint64) (*Media, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		"SELECT "+mediaCols+" FROM media WHERE id = ?", id))
}

// GetByIDAndOwner retrieves a media item only if it belongs to the given
// owner. This helper is used to enforce resource ownership.
func (r *MediaRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*Media, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		"SELECT "+mediaCols+" FROM media WHERE id = ? AND owner_id = ?", id, ownerID))
}

// ListByOwner returns all media owned by a user.
func (r *MediaRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]*Media, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+mediaCols+" FROM media WHERE owner_id = ? ORDER BY id", ownerID)
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

// UpdateName renames a media item if it belongs to the given owner.
func (r *MediaRepo) UpdateName(ctx context.Context, id, ownerID uint64, name string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE media SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND owner_id = ?",
		name, id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMediaNotFound
	}
	return nil
}

// SetFilename records the stored filename after a successful upload.
func (r *MediaRepo) SetFilename(ctx context.Context, id uint64, filename string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE media SET filename = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		filename, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMediaNotFound
	}
	return nil
}

// DeleteByIDAndOwner removes a media item together with its group
// memberships and schedules in one transaction, so nothing is left
// pointing at a missing media row.
func (r *MediaRepo) DeleteByIDAndOwner(ctx context.Context, id, ownerID uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var owner uint64
	err = tx.QueryRowContext(ctx, "SELECT owner_id FROM media WHERE id = ?", id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMediaNotFound
	}
	if err != nil {
		return err
	}
	if owner != ownerID {
		return ErrForbidden
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM schedules WHERE media_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM media_group_media WHERE media_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM media WHERE id = ?", id); err != nil {
		return err
	}
	return tx.Commit()
}
