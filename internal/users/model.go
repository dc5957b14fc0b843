package users

import (
	"time"

	"onboarding-service/internal/profile"
)

// Account is a login identity. Profile data lives in the profile store.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// RegisterRequest is the body for POST /users/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body for POST /users/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned on register / login.
type AuthResponse struct {
	Token   string   `json:"token"`
	Account *Account `json:"account,omitempty"`
	// Next is the onboarding screen the client should open.
	Next string `json:"next"`
}

// MeResponse is returned by GET /users/me.
type MeResponse struct {
	Account *Account       `json:"account"`
	Profile profile.Fields `json:"profile,omitempty"`
}
