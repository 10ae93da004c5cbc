package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Token types stored in the 'tokens' and 'display_device_tokens' tables.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
	TokenTypeDevice  = "access_display_device"
)

var ErrTokenNotFound = errors.New("token not found")

// Token mirrors a row of the 'tokens' table: a user-facing session token
// (access or refresh). The token column holds the literal signed string;
// expires_at is unix seconds.
type Token struct {
	ID        uint64
	OwnerID   uint64
	Token     string
	TokenType string
	ExpiresAt int64
	IsActive  bool
	CreatedAt string
}

// Expired reports whether the stored expiry lies in the past.
func (t Token) Expired(now time.Time) bool { return now.Unix() >= t.ExpiresAt }

// TokenRepo persists and validates user session tokens.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store inserts a token row for a user.
func (r *TokenRepo) Store(ctx context.Context, ownerID uint64, token, tokenType string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO tokens (owner_id, token, token_type, expires_at) VALUES (?,?,?,?)",
		ownerID, token, tokenType, exp.Unix())
	return err
}

// GetByToken looks up a token row by the literal token string.
func (r *TokenRepo) GetByToken(ctx context.Context, token string) (Token, error) {
	var t Token
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,owner_id,token,token_type,expires_at,is_active,created_at FROM tokens WHERE token=? LIMIT 1",
		token).Scan(&t.ID, &t.OwnerID, &t.Token, &t.TokenType, &t.ExpiresAt, &t.IsActive, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrTokenNotFound
	}
	return t, err
}

// DeleteActiveAccess removes the caller's active access tokens (logout).
// Returns ErrTokenNotFound when there was none to remove.
func (r *TokenRepo) DeleteActiveAccess(ctx context.Context, ownerID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM tokens WHERE owner_id=? AND token_type=? AND is_active=?",
		ownerID, TokenTypeAccess, true)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// Deactivate marks a single token inactive without deleting it; subsequent
// bearer resolution rejects it as invalid.
func (r *TokenRepo) Deactivate(ctx context.Context, token string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE tokens SET is_active=? WHERE token=?", false, token)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// DeleteExpired prunes rows whose expiry is past; expired tokens are
// rejected at validation time regardless, this only reclaims storage.
func (r *TokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM tokens WHERE expires_at < ?", now.Unix())
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}
