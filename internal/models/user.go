package models

import (
	"errors"
	"strings"
	"time"
)

type Role string

const (
	RoleCitizen    Role = "citizen"
	RoleResearcher Role = "researcher"
	RoleReviewer   Role = "reviewer"
	RoleAdmin      Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleCitizen, RoleResearcher, RoleReviewer, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

type Permission string

const (
	PermCreateSubmission Permission = "create_submission"
	PermReviewSubmission Permission = "review_submission"
	PermManageUsers      Permission = "manage_users"
	PermAdminAccess      Permission = "admin_access"
)

// PermissionsFor derives the permission set for a role. Every place a role is
// assigned goes through this, so role and permissions can never disagree.
func PermissionsFor(role Role) []Permission {
	perms := []Permission{PermCreateSubmission}
	switch role {
	case RoleReviewer:
		perms = append(perms, PermReviewSubmission)
	case RoleAdmin:
		perms = append(perms, PermReviewSubmission, PermManageUsers, PermAdminAccess)
	}
	return perms
}

type User struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"`
	FirstName    string       `json:"first_name"`
	LastName     string       `json:"last_name"`
	Role         Role         `json:"role"`
	Organization string       `json:"organization,omitempty"`
	IsActive     bool         `json:"is_active"`
	IsVerified   bool         `json:"is_verified"`
	Permissions  []Permission `json:"permissions"`
	LastLogin    *time.Time   `json:"last_login,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (u *User) HasPermission(p Permission) bool {
	for _, have := range u.Permissions {
		if have == p {
			return true
		}
	}
	return false
}

func (u *User) Validate() error {
	if !strings.Contains(u.Email, "@") {
		return errors.New("invalid email")
	}
	if strings.TrimSpace(u.FirstName) == "" || strings.TrimSpace(u.LastName) == "" {
		return errors.New("first and last name required")
	}
	if u.Role == "" {
		u.Role = RoleCitizen
	}
	if _, ok := ParseRole(string(u.Role)); !ok {
		return errors.New("invalid role")
	}
	return nil
}

// FullName is used in reviewer rankings and exports.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
