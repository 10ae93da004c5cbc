// Package auth resolves bearer tokens into principals and holds the
// authentication error taxonomy. Two principal kinds share the one bearer
// surface: interactive users with short-lived session tokens, and display
// devices with long-lived device tokens. Every authorization decision
// downstream pattern-matches on the principal kind explicitly instead of
// probing which token lookup happened to succeed.
package auth

import (
	"errors"

	"github.com/adlooper/signage-server/internal/repository"
)

// Authentication failures surfaced to the HTTP layer. Credential failures
// never reveal whether the username or the password was wrong; token
// failures distinguish expiry from everything else because clients react
// differently (refresh vs. re-login).
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
)

// Kind tags the principal variant.
type Kind int

const (
	KindUser Kind = iota
	KindDevice
)

// Principal is the authenticated actor behind a request. User is always
// set: for a device principal it is the user who registered the device,
// which is what every ownership check compares against. Device is non-nil
// only for device principals.
type Principal struct {
	Kind   Kind
	User   repository.User
	Device *repository.DisplayDevice
}

// IsDevice reports whether the principal is an unattended display device.
func (p Principal) IsDevice() bool { return p.Kind == KindDevice }

// Owns is the sole authorization rule: strict ownership equality between
// the principal's user and the resource's owner id. There is no role
// hierarchy and no sharing.
func (p Principal) Owns(ownerID uint64) bool { return p.User.ID == ownerID }
