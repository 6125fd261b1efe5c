package role

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/identity-service/internal/permission"
)

// Role is a named, reusable bundle of permissions assignable to users.
// Role names are case-sensitive and unique; an inactive role grants
// nothing regardless of its document.
type Role struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Permissions permission.Document `json:"permissions"`
	IsActive    bool                `json:"is_active"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// HasPermission checks a single role's document. Inactive roles deny
// everything before the document is consulted.
func (r *Role) HasPermission(name string) bool {
	if !r.IsActive {
		return false
	}
	return permission.Resolve(r.Permissions, name)
}

// Principal carries the user attributes the registry needs for effective
// permission checks. Kept minimal so the registry does not depend on the
// full user model.
type Principal struct {
	ID          int64
	IsActive    bool
	IsSuperuser bool
}

var ErrNotFound = errors.New("role not found")

// Repository persists roles and the user-role membership. Membership is a
// many-to-many relation; Assign must be a no-op-safe insert and Unassign
// must tolerate a missing row.
type Repository interface {
	Create(ctx context.Context, r *Role) error
	Update(ctx context.Context, r *Role) error
	GetByName(ctx context.Context, name string) (*Role, error)
	GetActiveByName(ctx context.Context, name string) (*Role, error)
	ActiveRolesForUser(ctx context.Context, userID int64) ([]*Role, error)
	Assign(ctx context.Context, userID, roleID int64) error
	Unassign(ctx context.Context, userID, roleID int64) error
	IsAssigned(ctx context.Context, userID, roleID int64) (bool, error)
}
