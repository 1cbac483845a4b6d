package auth

import (
	"github.com/luhive/luhive-backend/internal/profiles"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest contains the payload required to create an account.
type RegisterRequest struct {
	FullName string `json:"full_name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Timezone string `json:"timezone,omitempty"`
}

// RefreshRequest rotates a session. AccessToken may be expired.
type RefreshRequest struct {
	AccessToken  string `json:"-"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPair is the access/refresh pair returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LoginResponse contains the tokens and profile produced by a successful login.
type LoginResponse struct {
	TokenPair
	User *profiles.ProfileDTO `json:"user"`
}
