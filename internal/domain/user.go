package domain

import "time"

// Role is the flat permission level of an account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAgent, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role works tickets (agent or admin).
func (r Role) IsStaff() bool {
	return r == RoleAgent || r == RoleAdmin
}

// User is an account that files or works tickets.
type User struct {
	ID             string
	Username       string
	PasswordHash   string
	FullName       string
	Email          string
	Role           Role
	ExternalChatID *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DisplayName falls back to the username when no full name is set.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
