package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating an admin.
type LoginRequest struct {
	Username  string `json:"username" validate:"required,max=64"`
	Password  string `json:"password" validate:"required,max=256"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// RefreshRequest exchanges a refresh token for a new token pair.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// ChangePasswordRequest payload for updating the caller's password.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
}

// AuthResponse is returned by login and refresh.
type AuthResponse struct {
	Success          bool          `json:"success"`
	Token            string        `json:"token"`
	RefreshToken     string        `json:"refreshToken"`
	ExpiresAt        time.Time     `json:"expiresAt"`
	RefreshExpiresAt time.Time     `json:"refreshExpiresAt"`
	User             AdminUserInfo `json:"user"`
}

// AccessClaims is the payload of an access token. The session row, not the claims, decides expiry.
type AccessClaims struct {
	jwt.RegisteredClaims
}

// Principal is the authenticated admin attached to a request.
type Principal struct {
	User      AdminUser
	SessionID string
	Token     string
}
