package role

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/frahmantamala/identity-service/internal/permission"
)

// Registry resolves effective permissions for users and manages role
// membership. Reads are lock-free; membership mutations are serialized to
// avoid lost updates on the membership set.
type Registry struct {
	repo   Repository
	logger *slog.Logger

	mu sync.Mutex
}

func NewRegistry(repo Repository, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		repo:   repo,
		logger: logger,
	}
}

// CheckPermission reports whether the principal effectively holds the
// named permission. Superusers pass unconditionally, even when inactive;
// this mirrors the model-level precedence callers depend on, and callers
// that want to lock out deactivated accounts gate on IsActive earlier in
// the request pipeline. Otherwise inactive principals hold nothing, and
// active principals hold a permission iff any of their active roles
// grants it.
func (reg *Registry) CheckPermission(ctx context.Context, p Principal, name string) (bool, error) {
	if p.IsSuperuser {
		return true, nil
	}
	if !p.IsActive {
		return false, nil
	}

	roles, err := reg.repo.ActiveRolesForUser(ctx, p.ID)
	if err != nil {
		return false, fmt.Errorf("load roles for user %d: %w", p.ID, err)
	}

	for _, r := range roles {
		if r.HasPermission(name) {
			return true, nil
		}
	}
	return false, nil
}

// MergedPermissions aggregates the principal's active role documents for
// display and debugging. Superusers short-circuit to the sentinel
// document.
func (reg *Registry) MergedPermissions(ctx context.Context, p Principal) (permission.Document, error) {
	if p.IsSuperuser {
		return permission.SuperuserDocument(), nil
	}

	roles, err := reg.repo.ActiveRolesForUser(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("load roles for user %d: %w", p.ID, err)
	}

	docs := make([]permission.Document, 0, len(roles))
	for _, r := range roles {
		docs = append(docs, r.Permissions)
	}
	return permission.Merge(docs...), nil
}

// AddRole attaches an active role to the user by name. Returns false when
// the role does not exist (or is inactive) and when the user already
// holds it.
func (reg *Registry) AddRole(ctx context.Context, userID int64, roleName string) (bool, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, err := reg.repo.GetActiveByName(ctx, roleName)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("look up role %q: %w", roleName, err)
	}

	assigned, err := reg.repo.IsAssigned(ctx, userID, r.ID)
	if err != nil {
		return false, fmt.Errorf("check assignment: %w", err)
	}
	if assigned {
		return false, nil
	}

	if err := reg.repo.Assign(ctx, userID, r.ID); err != nil {
		return false, fmt.Errorf("assign role %q to user %d: %w", roleName, userID, err)
	}

	reg.logger.Info("role assigned", "user_id", userID, "role", roleName)
	return true, nil
}

// RemoveRole detaches a role from the user by name. The lookup ignores
// the active flag so stale memberships on deactivated roles can still be
// cleaned up. Returns false when the role does not exist or is not held.
func (reg *Registry) RemoveRole(ctx context.Context, userID int64, roleName string) (bool, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, err := reg.repo.GetByName(ctx, roleName)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("look up role %q: %w", roleName, err)
	}

	assigned, err := reg.repo.IsAssigned(ctx, userID, r.ID)
	if err != nil {
		return false, fmt.Errorf("check assignment: %w", err)
	}
	if !assigned {
		return false, nil
	}

	if err := reg.repo.Unassign(ctx, userID, r.ID); err != nil {
		return false, fmt.Errorf("unassign role %q from user %d: %w", roleName, userID, err)
	}

	reg.logger.Info("role removed", "user_id", userID, "role", roleName)
	return true, nil
}

// Ensure creates the role if missing, or updates its description,
// document and active flag if present. Used by bootstrap tooling;
// idempotent.
func (reg *Registry) Ensure(ctx context.Context, r *Role) error {
	existing, err := reg.repo.GetByName(ctx, r.Name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return reg.repo.Create(ctx, r)
		}
		return fmt.Errorf("look up role %q: %w", r.Name, err)
	}

	existing.Description = r.Description
	existing.Permissions = r.Permissions
	existing.IsActive = r.IsActive
	if err := reg.repo.Update(ctx, existing); err != nil {
		return fmt.Errorf("update role %q: %w", r.Name, err)
	}
	r.ID = existing.ID
	return nil
}
