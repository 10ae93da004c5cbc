package auth

import (
	"context"
	"errors"
	"time"

	"github.com/adlooper/signage-server/internal/repository"
	"github.com/adlooper/signage-server/internal/utils"
)

// Resolver turns credentials or bearer strings into principals. Decoding a
// token is a pure signature/expiry check; the storage lookup that follows
// decides whether the token is still active and who it belongs to.
type Resolver struct {
	Secret       string
	Users        *repository.UserRepo
	Tokens       *repository.TokenRepo
	DeviceTokens *repository.DeviceTokenRepo
	Devices      *repository.DeviceRepo
}

func NewResolver(secret string, u *repository.UserRepo, t *repository.TokenRepo, dt *repository.DeviceTokenRepo, d *repository.DeviceRepo) *Resolver {
	return &Resolver{Secret: secret, Users: u, Tokens: t, DeviceTokens: dt, Devices: d}
}

// Authenticate verifies a username/password pair and returns the user.
// Unknown username and wrong password produce the identical
// ErrInvalidCredentials outcome; bcrypt runs in both cases so the two are
// not distinguishable by timing either.
func (r *Resolver) Authenticate(ctx context.Context, username, password string) (repository.User, error) {
	u, err := r.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Burn a comparison against a fixed digest so the miss costs
			// the same as a mismatch.
			utils.VerifyPassword(dummyDigest, password)
			return repository.User{}, ErrInvalidCredentials
		}
		return repository.User{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return repository.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// dummyDigest is a valid bcrypt digest of an unguessable value, used only
// to equalize the cost of authenticating a nonexistent username.
const dummyDigest = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// ResolveBearer resolves a presented bearer string into a principal.
// The token is first decoded (signature + expiry, no storage); then the
// literal string is looked up in the user token table and, failing that,
// the device token table. A token that decodes but matches no stored row,
// is inactive, or is not of an access class is invalid.
func (r *Resolver) ResolveBearer(ctx context.Context, raw string) (Principal, error) {
	claims, err := utils.DecodeToken(r.Secret, raw)
	if err != nil {
		if errors.Is(err, utils.ErrTokenExpired) {
			return Principal{}, ErrTokenExpired
		}
		return Principal{}, ErrInvalidToken
	}
	now := time.Now().UTC()

	t, err := r.Tokens.GetByToken(ctx, raw)
	switch {
	case err == nil:
		if !t.IsActive || t.TokenType != repository.TokenTypeAccess {
			return Principal{}, ErrInvalidToken
		}
		if t.Expired(now) {
			return Principal{}, ErrTokenExpired
		}
		u, err := r.Users.GetByID(ctx, t.OwnerID)
		if err != nil {
			return Principal{}, ErrInvalidToken
		}
		return Principal{Kind: KindUser, User: u}, nil
	case !errors.Is(err, repository.ErrTokenNotFound):
		return Principal{}, err
	}

	dt, err := r.DeviceTokens.GetByToken(ctx, raw)
	if err != nil {
		if errors.Is(err, repository.ErrDeviceTokenNotFound) {
			return Principal{}, ErrInvalidToken
		}
		return Principal{}, err
	}
	if !dt.IsActive || dt.TokenType != repository.TokenTypeDevice {
		return Principal{}, ErrInvalidToken
	}
	// The embedded device id and the stored row must agree.
	if claims.DeviceID != dt.DeviceID {
		return Principal{}, ErrInvalidToken
	}
	if dt.Expired(now) {
		return Principal{}, ErrTokenExpired
	}
	dev, err := r.Devices.GetByID(ctx, dt.DeviceID)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	u, err := r.Users.GetByID(ctx, dt.OwnerID)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	return Principal{Kind: KindDevice, User: u, Device: dev}, nil
}
