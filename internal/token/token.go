package token

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by repositories when no row matches.
	ErrNotFound = errors.New("refresh token not found")
	// ErrDuplicateToken signals a collision on the token column.
	ErrDuplicateToken = errors.New("refresh token already exists")
)

// Provenance captures request metadata recorded when a token is issued.
type Provenance struct {
	UserAgent string
	IPAddress string
}

// RefreshToken is a stored opaque refresh credential. Validity is never
// persisted as a flag; it is computed from revocation, expiry and the
// owner's active state at check time.
type RefreshToken struct {
	ID          int64
	Token       string
	UserID      int64
	CreatedAt   time.Time
	ExpiresAt   time.Time
	IsRevoked   bool
	RevokedAt   *time.Time
	UserAgent   string
	IPAddress   string
	OwnerActive bool
}

// Valid reports whether the token is usable at the given instant.
func (t *RefreshToken) Valid(now time.Time) bool {
	if t.IsRevoked {
		return false
	}
	if !now.Before(t.ExpiresAt) {
		return false
	}
	return t.OwnerActive
}

type Repository interface {
	Create(ctx context.Context, t *RefreshToken) error
	FindByToken(ctx context.Context, token string) (*RefreshToken, error)
	// MarkRevoked revokes the token if it is not already revoked and
	// reports whether this call performed the revocation.
	MarkRevoked(ctx context.Context, token string, at time.Time) (bool, error)
	RevokeAllForUser(ctx context.Context, userID int64, at time.Time) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
