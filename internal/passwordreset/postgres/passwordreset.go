package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/frahmantamala/identity-service/internal/passwordreset"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, t *passwordreset.ResetToken) error {
	query := `INSERT INTO password_reset_tokens (token, user_id, created_at, expires_at, is_used, ip_address)
	          VALUES (?, ?, ?, ?, ?, ?) RETURNING id`

	row := r.db.WithContext(ctx).Raw(query,
		t.Token, t.UserID, t.CreatedAt, t.ExpiresAt, t.IsUsed, t.IPAddress,
	).Row()
	if err := row.Scan(&t.ID); err != nil {
		if isUniqueViolation(err) {
			return passwordreset.ErrDuplicateToken
		}
		return fmt.Errorf("insert reset token: %w", err)
	}
	return nil
}

func (r *Repository) FindByToken(ctx context.Context, secret string) (*passwordreset.ResetToken, error) {
	query := `SELECT prt.id, prt.token, prt.user_id, prt.created_at, prt.expires_at,
	                 prt.is_used, prt.used_at, prt.ip_address, u.is_active
	          FROM password_reset_tokens prt
	          JOIN users u ON u.id = prt.user_id
	          WHERE prt.token = ?`

	row := r.db.WithContext(ctx).Raw(query, secret).Row()

	var t passwordreset.ResetToken
	err := row.Scan(
		&t.ID, &t.Token, &t.UserID, &t.CreatedAt, &t.ExpiresAt,
		&t.IsUsed, &t.UsedAt, &t.IPAddress, &t.OwnerActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, passwordreset.ErrNotFound
		}
		return nil, fmt.Errorf("scan reset token: %w", err)
	}
	return &t, nil
}

func (r *Repository) MarkUsed(ctx context.Context, secret string, at time.Time) (bool, error) {
	query := `UPDATE password_reset_tokens SET is_used = TRUE, used_at = ?
	          WHERE token = ? AND is_used = FALSE`

	res := r.db.WithContext(ctx).Exec(query, at, secret)
	if res.Error != nil {
		return false, fmt.Errorf("consume reset token: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *Repository) InvalidateAllForUser(ctx context.Context, userID int64, at time.Time) (int64, error) {
	query := `UPDATE password_reset_tokens SET is_used = TRUE, used_at = ?
	          WHERE user_id = ? AND is_used = FALSE`

	res := r.db.WithContext(ctx).Exec(query, at, userID)
	if res.Error != nil {
		return 0, fmt.Errorf("invalidate reset tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *Repository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM password_reset_tokens WHERE expires_at <= ?`

	res := r.db.WithContext(ctx).Exec(query, before)
	if res.Error != nil {
		return 0, fmt.Errorf("delete expired reset tokens: %w", res.Error)
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
