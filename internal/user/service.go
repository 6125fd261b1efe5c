package user

import (
	"context"
	"fmt"

	"github.com/frahmantamala/identity-service/internal/permission"
	"github.com/frahmantamala/identity-service/internal/role"
)

// PermissionAggregator provides the merged-permission view attached to
// profile responses. Implemented by the role registry.
type PermissionAggregator interface {
	MergedPermissions(ctx context.Context, p role.Principal) (permission.Document, error)
}

type Service struct {
	repo        Repository
	permissions PermissionAggregator
}

func NewService(repo Repository, permissions PermissionAggregator) *Service {
	return &Service{
		repo:        repo,
		permissions: permissions,
	}
}

func (s *Service) GetByID(ctx context.Context, userID int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// Profile is the user payload returned to the boundary: the principal
// plus the merged permission document of their active roles.
type Profile struct {
	User        *User               `json:"user"`
	Permissions permission.Document `json:"permissions"`
}

func (s *Service) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	merged, err := s.permissions.MergedPermissions(ctx, role.Principal{
		ID:          u.ID,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate permissions: %w", err)
	}

	return &Profile{User: u, Permissions: merged}, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID int64, dto UpdateProfileDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateProfile(ctx, userID, dto.FirstName, dto.LastName); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	return s.repo.GetByID(ctx, userID)
}
