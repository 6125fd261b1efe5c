package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/frahmantamala/identity-service/internal/token"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, t *token.RefreshToken) error {
	query := `INSERT INTO refresh_tokens (token, user_id, created_at, expires_at, is_revoked, user_agent, ip_address)
	          VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`

	row := r.db.WithContext(ctx).Raw(query,
		t.Token, t.UserID, t.CreatedAt, t.ExpiresAt, t.IsRevoked, t.UserAgent, t.IPAddress,
	).Row()
	if err := row.Scan(&t.ID); err != nil {
		if isUniqueViolation(err) {
			return token.ErrDuplicateToken
		}
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (r *Repository) FindByToken(ctx context.Context, secret string) (*token.RefreshToken, error) {
	query := `SELECT rt.id, rt.token, rt.user_id, rt.created_at, rt.expires_at,
	                 rt.is_revoked, rt.revoked_at, rt.user_agent, rt.ip_address,
	                 u.is_active
	          FROM refresh_tokens rt
	          JOIN users u ON u.id = rt.user_id
	          WHERE rt.token = ?`

	row := r.db.WithContext(ctx).Raw(query, secret).Row()

	var t token.RefreshToken
	err := row.Scan(
		&t.ID, &t.Token, &t.UserID, &t.CreatedAt, &t.ExpiresAt,
		&t.IsRevoked, &t.RevokedAt, &t.UserAgent, &t.IPAddress,
		&t.OwnerActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, token.ErrNotFound
		}
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}
	return &t, nil
}

func (r *Repository) MarkRevoked(ctx context.Context, secret string, at time.Time) (bool, error) {
	query := `UPDATE refresh_tokens SET is_revoked = TRUE, revoked_at = ?
	          WHERE token = ? AND is_revoked = FALSE`

	res := r.db.WithContext(ctx).Exec(query, at, secret)
	if res.Error != nil {
		return false, fmt.Errorf("revoke refresh token: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *Repository) RevokeAllForUser(ctx context.Context, userID int64, at time.Time) (int64, error) {
	query := `UPDATE refresh_tokens SET is_revoked = TRUE, revoked_at = ?
	          WHERE user_id = ? AND is_revoked = FALSE AND expires_at > ?`

	res := r.db.WithContext(ctx).Exec(query, at, userID, at)
	if res.Error != nil {
		return 0, fmt.Errorf("revoke user refresh tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *Repository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM refresh_tokens WHERE expires_at <= ?`

	res := r.db.WithContext(ctx).Exec(query, before)
	if res.Error != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
