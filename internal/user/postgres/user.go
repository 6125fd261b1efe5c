package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/frahmantamala/identity-service/internal/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, email, first_name, last_name, password_hash, is_active, is_superuser, date_joined, updated_at`

func (r *Repository) Create(ctx context.Context, u *user.User) error {
	now := time.Now().UTC()
	if u.DateJoined.IsZero() {
		u.DateJoined = now
	}
	u.Email = user.CanonicalEmail(u.Email)

	query := `INSERT INTO users (email, first_name, last_name, password_hash, is_active, is_superuser, date_joined, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`

	row := r.db.WithContext(ctx).Raw(query,
		u.Email, u.FirstName, u.LastName, u.PasswordHash,
		u.IsActive, u.IsSuperuser, u.DateJoined, now,
	).Row()
	if err := row.Scan(&u.ID); err != nil {
		if isUniqueViolation(err) {
			return user.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.UpdatedAt = now
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return r.scanUser(r.db.WithContext(ctx).Raw(query, id).Row())
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return r.scanUser(r.db.WithContext(ctx).Raw(query, user.CanonicalEmail(email)).Row())
}

func (r *Repository) UpdateProfile(ctx context.Context, id int64, firstName, lastName string) error {
	query := `UPDATE users SET first_name = ?, last_name = ?, updated_at = ? WHERE id = ?`
	res := r.db.WithContext(ctx).Exec(query, firstName, lastName, time.Now().UTC(), id)
	if res.Error != nil {
		return fmt.Errorf("update profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *Repository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`
	res := r.db.WithContext(ctx).Exec(query, passwordHash, time.Now().UTC(), id)
	if res.Error != nil {
		return fmt.Errorf("update password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *Repository) scanUser(row *sql.Row) (*user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash,
		&u.IsActive, &u.IsSuperuser, &u.DateJoined, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// isUniqueViolation matches unique-constraint failures across postgres
// and the sqlite driver used in tests.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
