package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// UserRegisterRequest payload for new users.
type UserRegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// UserLoginRequest payload for login.
type UserLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// UserResponse is an account without its credentials.
type UserResponse struct {
	ID             string      `json:"id"`
	Username       string      `json:"username"`
	FullName       string      `json:"full_name"`
	Email          string      `json:"email"`
	Role           domain.Role `json:"role"`
	ExternalChatID *string     `json:"external_chat_id"`
	CreatedAt      time.Time   `json:"created_at"`
}

// UserSummary names a ticket participant.
type UserSummary struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	FullName string      `json:"full_name"`
	Role     domain.Role `json:"role"`
}

// UpdateProfileRequest lists self-editable fields.
type UpdateProfileRequest struct {
	FullName       *string `json:"full_name"`
	Email          *string `json:"email"`
	ExternalChatID *string `json:"external_chat_id"`
}

// PasswordChangeRequest payload for authenticated password changes.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// AdminUpdateUserRequest payload for PATCH /admin/users/:id.
type AdminUpdateUserRequest struct {
	FullName       *string      `json:"full_name"`
	Email          *string      `json:"email"`
	Role           *domain.Role `json:"role"`
	ExternalChatID *string      `json:"external_chat_id"`
}
