package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/identity-service/internal"
	"github.com/frahmantamala/identity-service/internal/role"
	"github.com/frahmantamala/identity-service/internal/token"
	"github.com/frahmantamala/identity-service/internal/user"
)

// DefaultRoleName is attached to every newly registered user.
const DefaultRoleName = "user"

// Service orchestrates login, refresh, logout and the password flows.
// It holds no state of its own beyond its collaborators.
type Service struct {
	users         user.Repository
	tokens        RefreshTokenStore
	resets        ResetTokenStore
	registry      PermissionRegistry
	tokenGen      TokenGenerator
	hasher        *PasswordHasher
	notifier      ResetNotifier
	rotateRefresh bool
	logger        *slog.Logger
}

func NewService(
	users user.Repository,
	tokens RefreshTokenStore,
	resets ResetTokenStore,
	registry PermissionRegistry,
	tokenGen TokenGenerator,
	hasher *PasswordHasher,
	rotateRefresh bool,
	logger *slog.Logger,
) *Service {
	return &Service{
		users:         users,
		tokens:        tokens,
		resets:        resets,
		registry:      registry,
		tokenGen:      tokenGen,
		hasher:        hasher,
		rotateRefresh: rotateRefresh,
		logger:        logger,
	}
}

// WithNotifier sets the reset token delivery channel.
func (s *Service) WithNotifier(n ResetNotifier) *Service {
	s.notifier = n
	return s
}

// Register creates an account and attaches the default role.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*user.User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(dto.Password)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	u := &user.User{
		Email:        user.CanonicalEmail(dto.Email),
		FirstName:    dto.FirstName,
		LastName:     dto.LastName,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, internal.ErrEmailTaken
		}
		return nil, internal.NewInternalError("failed to create user", err)
	}

	// Registration survives a missing default role so a fresh
	// deployment without seeded roles can still sign people up.
	if _, err := s.registry.AddRole(ctx, u.ID, DefaultRoleName); err != nil {
		s.logger.Warn("failed to attach default role", "user_id", u.ID, "error", err)
	}

	s.logger.Info("user registered", "user_id", u.ID)
	return u, nil
}

// Login verifies credentials and issues an access and refresh pair.
// Every failure mode reports the same error so callers cannot probe
// which emails exist.
func (s *Service) Login(ctx context.Context, dto LoginDTO, prov token.Provenance) (*Session, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.users.GetByEmail(ctx, dto.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, internal.ErrInvalidCredentials
		}
		return nil, internal.NewInternalError("failed to look up user", err)
	}
	if !s.hasher.Compare(u.PasswordHash, dto.Password) {
		return nil, internal.ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, internal.ErrInvalidCredentials
	}

	accessToken, err := s.tokenGen.GenerateAccessToken(u.ID, u.Email)
	if err != nil {
		return nil, internal.NewInternalError("failed to generate access token", err)
	}
	refresh, err := s.tokens.Issue(ctx, u.ID, prov)
	if err != nil {
		return nil, internal.NewInternalError("failed to issue refresh token", err)
	}

	perms, err := s.registry.MergedPermissions(ctx, principalOf(u))
	if err != nil {
		return nil, internal.NewInternalError("failed to aggregate permissions", err)
	}

	s.logger.Info("user logged in", "user_id", u.ID, "ip", prov.IPAddress)

	return &Session{
		AuthTokens: AuthTokens{
			AccessToken:  accessToken,
			RefreshToken: refresh.Token,
			TokenType:    "Bearer",
			ExpiresIn:    int64(s.tokenGen.AccessTokenTTL() / time.Second),
		},
		User:        u,
		Permissions: perms,
	}, nil
}

// Refresh validates the refresh credential and mints a new access
// token. Under the rotation policy the refresh credential is replaced
// and the old one revoked in the same step; the replacement keeps the
// provenance the session was opened with.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	var record *token.RefreshToken
	var err error

	if s.rotateRefresh {
		record, err = s.tokens.Rotate(ctx, refreshToken)
	} else {
		record, err = s.tokens.Validate(ctx, refreshToken)
	}
	if err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return nil, err
		}
		return nil, internal.NewInternalError("failed to refresh session", err)
	}

	u, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		return nil, internal.ErrInvalidToken
	}

	accessToken, err := s.tokenGen.GenerateAccessToken(u.ID, u.Email)
	if err != nil {
		return nil, internal.NewInternalError("failed to generate access token", err)
	}

	tokens := &AuthTokens{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokenGen.AccessTokenTTL() / time.Second),
	}
	if s.rotateRefresh {
		tokens.RefreshToken = record.Token
	}
	return tokens, nil
}

// Logout revokes the refresh credential. Unknown or already revoked
// tokens are not an error; logout always succeeds from the caller's
// point of view.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
		s.logger.Error("failed to revoke refresh token on logout", "error", err)
	}
	return nil
}

// RequestPasswordReset issues a reset token for the account if it
// exists and is active, recording the requester's IP on the token.
// The outcome is identical either way so the endpoint cannot be used
// to enumerate accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, dto PasswordResetRequestDTO, prov token.Provenance) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	u, err := s.users.GetByEmail(ctx, dto.Email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			s.logger.Error("failed to look up user for password reset", "error", err)
		}
		return nil
	}
	if !u.IsActive {
		return nil
	}

	reset, err := s.resets.Issue(ctx, u.ID, prov.IPAddress)
	if err != nil {
		s.logger.Error("failed to issue reset token", "user_id", u.ID, "error", err)
		return nil
	}

	if s.notifier != nil {
		if err := s.notifier.SendPasswordReset(ctx, u, reset.Token); err != nil {
			s.logger.Error("failed to deliver reset token", "user_id", u.ID, "error", err)
		}
	}
	return nil
}

// ConfirmPasswordReset consumes the reset token, replaces the
// credential and revokes every refresh token the user holds so all
// other sessions must log in again.
func (s *Service) ConfirmPasswordReset(ctx context.Context, dto PasswordResetConfirmDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	reset, err := s.resets.Consume(ctx, dto.Token)
	if err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return err
		}
		return internal.NewInternalError("failed to consume reset token", err)
	}

	hash, err := s.hasher.Hash(dto.NewPassword)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}
	if err := s.users.UpdatePassword(ctx, reset.UserID, hash); err != nil {
		return internal.NewInternalError("failed to update password", err)
	}

	if _, err := s.tokens.RevokeAllForUser(ctx, reset.UserID); err != nil {
		s.logger.Error("failed to revoke sessions after reset", "user_id", reset.UserID, "error", err)
	}

	s.logger.Info("password reset completed", "user_id", reset.UserID)
	return nil
}

// ChangePassword verifies the old credential, rejects a reused one,
// stores the new hash and forces re-login everywhere else.
func (s *Service) ChangePassword(ctx context.Context, userID int64, dto ChangePasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return internal.ErrUserNotFound
		}
		return internal.NewInternalError("failed to look up user", err)
	}

	if !s.hasher.Compare(u.PasswordHash, dto.OldPassword) {
		return internal.ErrWrongOldPassword
	}
	if dto.NewPassword == dto.OldPassword {
		return internal.ErrSamePassword
	}

	hash, err := s.hasher.Hash(dto.NewPassword)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return internal.NewInternalError("failed to update password", err)
	}

	if _, err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		s.logger.Error("failed to revoke sessions after password change", "user_id", userID, "error", err)
	}

	s.logger.Info("password changed", "user_id", userID)
	return nil
}

// ValidateAccessToken validates an access token and returns its claims.
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGen.ValidateToken(tokenString)
}

// CheckPermission resolves whether the user holds the named permission
// through any of their active roles.
func (s *Service) CheckPermission(ctx context.Context, userID int64, name string) (bool, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return s.registry.CheckPermission(ctx, principalOf(u), name)
}

func principalOf(u *user.User) role.Principal {
	return role.Principal{
		ID:          u.ID,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
	}
}
