package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/identity-service/internal/permission"
	"github.com/frahmantamala/identity-service/internal/role"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, rl *role.Role) error {
	doc, err := json.Marshal(rl.Permissions)
	if err != nil {
		return fmt.Errorf("encode permissions: %w", err)
	}

	now := time.Now().UTC()
	query := `INSERT INTO roles (name, description, permissions, is_active, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?) RETURNING id`

	row := r.db.WithContext(ctx).Raw(query, rl.Name, rl.Description, string(doc), rl.IsActive, now, now).Row()
	if err := row.Scan(&rl.ID); err != nil {
		return fmt.Errorf("insert role: %w", err)
	}
	rl.CreatedAt = now
	rl.UpdatedAt = now
	return nil
}

func (r *Repository) Update(ctx context.Context, rl *role.Role) error {
	doc, err := json.Marshal(rl.Permissions)
	if err != nil {
		return fmt.Errorf("encode permissions: %w", err)
	}

	now := time.Now().UTC()
	query := `UPDATE roles SET description = ?, permissions = ?, is_active = ?, updated_at = ? WHERE id = ?`

	res := r.db.WithContext(ctx).Exec(query, rl.Description, string(doc), rl.IsActive, now, rl.ID)
	if res.Error != nil {
		return fmt.Errorf("update role: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return role.ErrNotFound
	}
	rl.UpdatedAt = now
	return nil
}

func (r *Repository) GetByName(ctx context.Context, name string) (*role.Role, error) {
	query := `SELECT id, name, description, permissions, is_active, created_at, updated_at
	          FROM roles WHERE name = ?`
	return r.scanRole(r.db.WithContext(ctx).Raw(query, name).Row())
}

func (r *Repository) GetActiveByName(ctx context.Context, name string) (*role.Role, error) {
	query := `SELECT id, name, description, permissions, is_active, created_at, updated_at
	          FROM roles WHERE name = ? AND is_active = true`
	return r.scanRole(r.db.WithContext(ctx).Raw(query, name).Row())
}

func (r *Repository) ActiveRolesForUser(ctx context.Context, userID int64) ([]*role.Role, error) {
	query := `SELECT r.id, r.name, r.description, r.permissions, r.is_active, r.created_at, r.updated_at
	          FROM roles r
	          JOIN user_roles ur ON ur.role_id = r.id
	          WHERE ur.user_id = ? AND r.is_active = true
	          ORDER BY r.name`

	rows, err := r.db.WithContext(ctx).Raw(query, userID).Rows()
	if err != nil {
		return nil, fmt.Errorf("query user roles: %w", err)
	}
	defer rows.Close()

	var roles []*role.Role
	for rows.Next() {
		rl, err := scanRoleColumns(rows.Scan)
		if err != nil {
			return nil, err
		}
		roles = append(roles, rl)
	}
	return roles, rows.Err()
}

func (r *Repository) Assign(ctx context.Context, userID, roleID int64) error {
	query := `INSERT INTO user_roles (user_id, role_id, created_at) VALUES (?, ?, ?)`
	if err := r.db.WithContext(ctx).Exec(query, userID, roleID, time.Now().UTC()).Error; err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

func (r *Repository) Unassign(ctx context.Context, userID, roleID int64) error {
	query := `DELETE FROM user_roles WHERE user_id = ? AND role_id = ?`
	if err := r.db.WithContext(ctx).Exec(query, userID, roleID).Error; err != nil {
		return fmt.Errorf("unassign role: %w", err)
	}
	return nil
}

func (r *Repository) IsAssigned(ctx context.Context, userID, roleID int64) (bool, error) {
	var count int64
	query := `SELECT COUNT(1) FROM user_roles WHERE user_id = ? AND role_id = ?`
	row := r.db.WithContext(ctx).Raw(query, userID, roleID).Row()
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("check assignment: %w", err)
	}
	return count > 0, nil
}

func (r *Repository) scanRole(row *sql.Row) (*role.Role, error) {
	rl, err := scanRoleColumns(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, role.ErrNotFound
		}
		return nil, err
	}
	return rl, nil
}

func scanRoleColumns(scan func(dest ...any) error) (*role.Role, error) {
	var (
		rl  role.Role
		doc string
	)
	if err := scan(&rl.ID, &rl.Name, &rl.Description, &doc, &rl.IsActive, &rl.CreatedAt, &rl.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan role: %w", err)
	}

	parsed, err := permission.ParseDocument([]byte(doc))
	if err != nil {
		return nil, err
	}
	rl.Permissions = parsed
	return &rl, nil
}
