package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/infinitops/infinitops/internal/model"
)

// Bootstrap defaults for the initial administrator account.
const (
	BootstrapAdminUsername = "admin"
	BootstrapAdminEmail    = "admin@example.com"
	BootstrapAdminRole     = "admin"
)

// Bootstrap ensures the "admin" role (wildcard permission) and the initial
// "admin" user exist. adminPasswordHash must be a bcrypt hash of the desired
// password. The operation is idempotent: if the admin user already exists
// nothing is changed and created is false.
func (s *Store) Bootstrap(ctx context.Context, adminPasswordHash string) (created bool, err error) {
	if _, err := s.GetUserByUsername(ctx, BootstrapAdminUsername); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, fmt.Errorf("check admin user: %w", err)
	}

	role, err := s.GetRoleByName(ctx, BootstrapAdminRole)
	if errors.Is(err, ErrNotFound) {
		role = &model.Role{
			Name:        BootstrapAdminRole,
			Description: "System administrator",
			Permissions: model.PermissionWildcard,
		}
		if err := s.CreateRole(ctx, role); err != nil {
			return false, fmt.Errorf("create admin role: %w", err)
		}
	} else if err != nil {
		return false, fmt.Errorf("check admin role: %w", err)
	}

	user := &model.User{
		Username:     BootstrapAdminUsername,
		Email:        BootstrapAdminEmail,
		PasswordHash: adminPasswordHash,
		IsActive:     true,
	}
	if err := s.CreateUser(ctx, user); err != nil {
		return false, fmt.Errorf("create admin user: %w", err)
	}
	if err := s.AssignRole(ctx, user.ID, role.ID); err != nil {
		return false, err
	}
	return true, nil
}
