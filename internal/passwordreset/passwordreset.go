package passwordreset

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("password reset token not found")
	ErrDuplicateToken = errors.New("password reset token already exists")
)

// ResetToken is a single-use credential a user presents to set a new
// password without knowing the current one.
type ResetToken struct {
	ID          int64
	Token       string
	UserID      int64
	CreatedAt   time.Time
	ExpiresAt   time.Time
	IsUsed      bool
	UsedAt      *time.Time
	IPAddress   string
	OwnerActive bool
}

// Valid reports whether the token can still be consumed.
func (t *ResetToken) Valid(now time.Time) bool {
	if t.IsUsed {
		return false
	}
	if !now.Before(t.ExpiresAt) {
		return false
	}
	return t.OwnerActive
}

type Repository interface {
	Create(ctx context.Context, t *ResetToken) error
	FindByToken(ctx context.Context, token string) (*ResetToken, error)
	// MarkUsed consumes the token if still unused and reports whether
	// this call performed the consumption.
	MarkUsed(ctx context.Context, token string, at time.Time) (bool, error)
	// InvalidateAllForUser marks every unused token of the user as
	// used so only the most recently issued one stays live.
	InvalidateAllForUser(ctx context.Context, userID int64, at time.Time) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
