package passwordreset

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/identity-service/internal"
)

const (
	tokenBytes   = 32
	issueRetries = 3
)

// Store manages single-use password reset tokens. Issuing a new token
// invalidates any earlier unused ones for the same user.
type Store struct {
	repo     Repository
	lifetime time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu sync.Mutex
}

func NewStore(repo Repository, lifetime time.Duration, logger *slog.Logger) *Store {
	return &Store{
		repo:     repo,
		lifetime: lifetime,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Issue invalidates the user's outstanding reset tokens and mints a
// fresh one, so at most one token per user is live. The requesting
// IP is recorded on the token for audit.
func (s *Store) Issue(ctx context.Context, userID int64, sourceIP string) (*ResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	if _, err := s.repo.InvalidateAllForUser(ctx, userID, now); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < issueRetries; attempt++ {
		secret, err := generateSecret()
		if err != nil {
			return nil, fmt.Errorf("generate reset token: %w", err)
		}
		t := &ResetToken{
			Token:       secret,
			UserID:      userID,
			CreatedAt:   now,
			ExpiresAt:   now.Add(s.lifetime),
			IPAddress:   sourceIP,
			OwnerActive: true,
		}
		err = s.repo.Create(ctx, t)
		if err == nil {
			return t, nil
		}
		if errors.Is(err, ErrDuplicateToken) {
			s.logger.Warn("reset token collision, retrying", "attempt", attempt+1)
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("issue reset token: exhausted retries")
}

// Validate checks the token without consuming it. Failure modes
// collapse to a single error.
func (s *Store) Validate(ctx context.Context, token string) (*ResetToken, error) {
	t, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.ErrInvalidToken
		}
		return nil, err
	}
	if !t.Valid(s.now().UTC()) {
		return nil, internal.ErrInvalidToken
	}
	return t, nil
}

// Consume validates the token and marks it used. A token can be
// consumed exactly once; concurrent consumers race and one wins.
func (s *Store) Consume(ctx context.Context, token string) (*ResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	used, err := s.repo.MarkUsed(ctx, t.Token, s.now().UTC())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.ErrInvalidToken
		}
		return nil, err
	}
	if !used {
		return nil, internal.ErrInvalidToken
	}
	return t, nil
}

// SweepExpired deletes tokens whose expiry has passed.
func (s *Store) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("swept expired reset tokens", "count", n)
	}
	return n, nil
}

func generateSecret() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
