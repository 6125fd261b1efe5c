package token

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

// Store manages the refresh token lifecycle: issuance, validation,
// revocation and rotation.
type Store struct {
	repo     Repository
	lifetime time.Duration
	logger   *slog.Logger
	now      func() time.Time

	// mu serializes rotation so that validate-revoke-issue behaves as
	// one step against concurrent rotations of the same token.
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

// Issue mints a new opaque refresh token for the user. The secret is
// random and retried on the unlikely event of a collision.
func (s *Store) Issue(ctx context.Context, userID int64, prov Provenance) (*RefreshToken, error) {
	now := s.now().UTC()
	for attempt := 0; attempt < issueRetries; attempt++ {
		secret, err := generateSecret()
		if err != nil {
			return nil, fmt.Errorf("generate refresh token: %w", err)
		}
		t := &RefreshToken{
			Token:       secret,
			UserID:      userID,
			CreatedAt:   now,
			ExpiresAt:   now.Add(s.lifetime),
			UserAgent:   prov.UserAgent,
			IPAddress:   prov.IPAddress,
			OwnerActive: true,
		}
		err = s.repo.Create(ctx, t)
		if err == nil {
			return t, nil
		}
		if errors.Is(err, ErrDuplicateToken) {
			s.logger.Warn("refresh token collision, retrying", "attempt", attempt+1)
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("issue refresh token: exhausted retries")
}

// Validate looks up the token and checks that it is usable. All failure
// modes collapse to a single error so callers cannot distinguish an
// unknown token from a revoked or expired one.
func (s *Store) Validate(ctx context.Context, token string) (*RefreshToken, error) {
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

// Revoke marks the token revoked. Revoking an unknown or already
// revoked token is not an error.
func (s *Store) Revoke(ctx context.Context, token string) error {
	_, err := s.repo.MarkRevoked(ctx, token, s.now().UTC())
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// Rotate validates the presented token, revokes it and issues a
// replacement carrying the owner and provenance of the original.
// Exactly one of two concurrent rotations of the same token succeeds;
// the loser observes an invalid token.
func (s *Store) Rotate(ctx context.Context, token string) (*RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, err := s.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.repo.MarkRevoked(ctx, old.Token, s.now().UTC())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.ErrInvalidToken
		}
		return nil, err
	}
	if !revoked {
		return nil, internal.ErrInvalidToken
	}
	return s.Issue(ctx, old.UserID, Provenance{
		UserAgent: old.UserAgent,
		IPAddress: old.IPAddress,
	})
}

// Consume validates and revokes the token without issuing a
// replacement. Used when rotation is disabled or on logout of a
// specific session.
func (s *Store) Consume(ctx context.Context, token string) (*RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.repo.MarkRevoked(ctx, t.Token, s.now().UTC())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.ErrInvalidToken
		}
		return nil, err
	}
	if !revoked {
		return nil, internal.ErrInvalidToken
	}
	return t, nil
}

// RevokeAllForUser revokes every live token the user holds and returns
// the number of tokens affected.
func (s *Store) RevokeAllForUser(ctx context.Context, userID int64) (int64, error) {
	n, err := s.repo.RevokeAllForUser(ctx, userID, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("revoked refresh tokens", "user_id", userID, "count", n)
	}
	return n, nil
}

// SweepExpired deletes tokens whose expiry has passed.
func (s *Store) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("swept expired refresh tokens", "count", n)
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
