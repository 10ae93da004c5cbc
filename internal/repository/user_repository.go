package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/adlooper/signage-server/internal/utils"
)

// User mirrors the 'users' table.
type User struct {
	ID           uint64 `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var (
	ErrUsernameExists = errors.New("username already exists")
	ErrEmailExists    = errors.New("email already exists")
	ErrUserNotFound   = errors.New("user not found")
)

// Create inserts a user and returns its ID. The username is stored as
// given, the email lower-cased. Duplicate username/email are reported as
// distinct sentinel errors so handlers can name the offending field.
func (r *UserRepo) Create(ctx context.Context, username, email, password string, cost int) (uint64, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}

	// Pre-checks give precise errors; the unique constraints stay the
	// authority under concurrency.
	var exists int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM users WHERE username=?", username).Scan(&exists); err != nil {
		return 0, err
	}
	if exists > 0 {
		return 0, ErrUsernameExists
	}
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM users WHERE email=?", email).Scan(&exists); err != nil {
		return 0, err
	}
	if exists > 0 {
		return 0, ErrEmailExists
	}

	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash) VALUES (?,?,?)",
		username, email, hash)
	if err != nil {
		if isDuplicateErr(err) {
			return 0, ErrUsernameExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

const userCols = "id,username,email,password_hash,created_at,updated_at"

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrUserNotFound
	}
	return u, err
}

// GetByUsername fetches a user by its exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE username=? LIMIT 1", username))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
}

// List returns all users ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userCols+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UserUpdate carries the optional fields of a partial user update. Nil
// means "leave unchanged".
type UserUpdate struct {
	Username *string
	Email    *string
	Password *string
}

// Update applies a partial update to a user. Username/email changes are
// checked for collisions first; a new password is re-hashed.
func (r *UserRepo) Update(ctx context.Context, id uint64, upd UserUpdate, cost int) (User, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if upd.Username != nil && *upd.Username != u.Username {
		var n int
		if err := r.DB.QueryRowContext(ctx,
			"SELECT COUNT(1) FROM users WHERE username=?", *upd.Username).Scan(&n); err != nil {
			return User{}, err
		}
		if n > 0 {
			return User{}, ErrUsernameExists
		}
		u.Username = *upd.Username
	}
	if upd.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*upd.Email))
		if email != u.Email {
			var n int
			if err := r.DB.QueryRowContext(ctx,
				"SELECT COUNT(1) FROM users WHERE email=?", email).Scan(&n); err != nil {
				return User{}, err
			}
			if n > 0 {
				return User{}, ErrEmailExists
			}
			u.Email = email
		}
	}
	if upd.Password != nil {
		hash, err := utils.HashPassword(*upd.Password, cost)
		if err != nil {
			return User{}, err
		}
		u.PasswordHash = hash
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE users SET username=?, email=?, password_hash=?, updated_at=CURRENT_TIMESTAMP WHERE id=?",
		u.Username, u.Email, u.PasswordHash, id)
	if err != nil {
		if isDuplicateErr(err) {
			return User{}, ErrUsernameExists
		}
		return User{}, err
	}
	return r.GetByID(ctx, id)
}

// DeleteCascade removes a user together with every resource it owns. The
// ownership graph is walked explicitly, leaves first, inside one
// transaction so no orphaned row can ever become visible.
func (r *UserRepo) DeleteCascade(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	steps := []string{
		"DELETE FROM schedules WHERE owner_id=?",
		"DELETE FROM media_group_media WHERE media_id IN (SELECT id FROM media WHERE owner_id=?)",
		"DELETE FROM media_group_media WHERE media_group_id IN (SELECT id FROM media_groups WHERE owner_id=?)",
		"DELETE FROM device_logs WHERE device_id IN (SELECT id FROM display_devices WHERE owner_id=?)",
		"DELETE FROM display_device_tokens WHERE owner_id=?",
		"DELETE FROM tokens WHERE owner_id=?",
		"DELETE FROM display_devices WHERE owner_id=?",
		"DELETE FROM media WHERE owner_id=?",
		"DELETE FROM media_groups WHERE owner_id=?",
	}
	for _, q := range steps {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return tx.Commit()
}
