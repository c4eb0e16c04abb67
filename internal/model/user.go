package model

import (
	"strings"
	"time"
)

// PermissionWildcard grants every permission when present in a role's
// permission list.
const PermissionWildcard = "*"

// User represents an operator account that can authenticate against the API.
// Passwords are stored as bcrypt hashes.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"` // bcrypt hash, never expose
	IsActive     bool      `json:"is_active" db:"is_active"`
	Roles        []Role    `json:"roles"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Role is a named permission bundle assigned to users. Permissions is a
// comma-separated list of permission strings, or "*" for all permissions.
type Role struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Permissions string    `json:"permissions" db:"permissions"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// PermissionList splits the role's permission specifier into individual
// permission strings.
func (r Role) PermissionList() []string {
	if r.Permissions == "" {
		return nil
	}
	parts := strings.Split(r.Permissions, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Permissions returns the union of all permission strings granted by the
// user's roles. A wildcard in any role collapses the result to ["*"].
func (u *User) Permissions() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, role := range u.Roles {
		for _, p := range role.PermissionList() {
			if p == PermissionWildcard {
				return []string{PermissionWildcard}
			}
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				out = append(out, p)
			}
		}
	}
	return out
}

// HasPermission reports whether the user holds the given permission, either
// directly or via a wildcard role. Handlers do not currently gate on this;
// it exists so permission checks can be added without touching the model.
func (u *User) HasPermission(perm string) bool {
	for _, p := range u.Permissions() {
		if p == PermissionWildcard || p == perm {
			return true
		}
	}
	return false
}

// HasRole reports whether the user is assigned the named role.
func (u *User) HasRole(name string) bool {
	for _, role := range u.Roles {
		if role.Name == name {
			return true
		}
	}
	return false
}
