package users

import "strings"

// RoleType represents a user's platform-wide role.
type RoleType string

const (
	RoleMember     RoleType = "MEMBER"      // Regular user, works on assigned tasks
	RoleTeamLeader RoleType = "TEAM_LEADER" // Can manage teams and assign tasks
	RoleAdmin      RoleType = "ADMIN"       // Full access including the user admin panel
)

// UserProfile is the user snapshot returned by the auth service. Field names
// follow the wire contract and must not change independently of the backend.
type UserProfile struct {
	ID          int64    `json:"id" yaml:"id"`
	Email       string   `json:"email" yaml:"email"`
	FirstName   string   `json:"first_name" yaml:"first_name"`
	LastName    string   `json:"last_name" yaml:"last_name"`
	Role        RoleType `json:"role" yaml:"role"`
	RoleDisplay string   `json:"role_display" yaml:"role_display"`
	DateJoined  string   `json:"date_joined" yaml:"date_joined"`
	IsActive    bool     `json:"is_active" yaml:"is_active"`
}

// FullName returns "First Last", falling back to the email when both names are empty.
func (u UserProfile) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// IsAdmin reports whether the user may call the admin-only user endpoints.
func (u UserProfile) IsAdmin() bool {
	return u.Role == RoleAdmin
}
