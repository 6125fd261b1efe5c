package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/frahmantamala/identity-service/internal/passwordreset"
	"github.com/frahmantamala/identity-service/internal/permission"
	"github.com/frahmantamala/identity-service/internal/role"
	"github.com/frahmantamala/identity-service/internal/token"
	"github.com/frahmantamala/identity-service/internal/user"
)

// Claims carried inside signed access tokens. UserID is serialized as
// a string to keep the subject claim and the custom claim consistent.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// AuthTokens is the credential pair returned to clients. RefreshToken
// is omitted when refresh was served without rotation.
type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Session is the login response: credentials plus a permission
// annotated summary of the principal.
type Session struct {
	AuthTokens
	User        *user.User          `json:"user"`
	Permissions permission.Document `json:"permissions"`
}

// TokenGenerator mints and validates stateless access credentials.
type TokenGenerator interface {
	GenerateAccessToken(userID int64, email string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
	AccessTokenTTL() time.Duration
}

// RefreshTokenStore is the stateful refresh credential lifecycle.
type RefreshTokenStore interface {
	Issue(ctx context.Context, userID int64, prov token.Provenance) (*token.RefreshToken, error)
	Validate(ctx context.Context, tokenString string) (*token.RefreshToken, error)
	Rotate(ctx context.Context, tokenString string) (*token.RefreshToken, error)
	Revoke(ctx context.Context, tokenString string) error
	RevokeAllForUser(ctx context.Context, userID int64) (int64, error)
}

// ResetTokenStore manages single-use password reset credentials.
type ResetTokenStore interface {
	Issue(ctx context.Context, userID int64, sourceIP string) (*passwordreset.ResetToken, error)
	Consume(ctx context.Context, tokenString string) (*passwordreset.ResetToken, error)
}

// PermissionRegistry resolves and mutates role membership.
type PermissionRegistry interface {
	CheckPermission(ctx context.Context, p role.Principal, name string) (bool, error)
	MergedPermissions(ctx context.Context, p role.Principal) (permission.Document, error)
	AddRole(ctx context.Context, userID int64, roleName string) (bool, error)
	RemoveRole(ctx context.Context, userID int64, roleName string) (bool, error)
}

// ResetNotifier delivers a freshly issued reset token to the user,
// typically over email. The token secret never goes through the logs.
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, u *user.User, tokenString string) error
}

// ServiceAPI is the surface the HTTP handlers depend on.
type ServiceAPI interface {
	Register(ctx context.Context, dto RegisterDTO) (*user.User, error)
	Login(ctx context.Context, dto LoginDTO, prov token.Provenance) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthTokens, error)
	Logout(ctx context.Context, refreshToken string) error
	RequestPasswordReset(ctx context.Context, dto PasswordResetRequestDTO, prov token.Provenance) error
	ConfirmPasswordReset(ctx context.Context, dto PasswordResetConfirmDTO) error
	ChangePassword(ctx context.Context, userID int64, dto ChangePasswordDTO) error
	ValidateAccessToken(tokenString string) (*Claims, error)
	CheckPermission(ctx context.Context, userID int64, name string) (bool, error)
}
