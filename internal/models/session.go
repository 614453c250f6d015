package models

import "time"

// Session is a persisted admin login. Tokens are never serialized.
type Session struct {
	ID               string    `db:"id" json:"id"`
	UserID           string    `db:"user_id" json:"userId"`
	AccessToken      string    `db:"access_token" json:"-"`
	RefreshToken     string    `db:"refresh_token" json:"-"`
	ExpiresAt        time.Time `db:"expires_at" json:"expiresAt"`
	RefreshExpiresAt time.Time `db:"refresh_expires_at" json:"refreshExpiresAt"`
	UserAgent        *string   `db:"user_agent" json:"userAgent,omitempty"`
	IPAddress        *string   `db:"ip_address" json:"ipAddress,omitempty"`
	IsActive         bool      `db:"is_active" json:"isActive"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`
}

// AccessExpired reports whether the access lifetime has elapsed at now.
func (s *Session) AccessExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// RefreshExpired reports whether the refresh lifetime has elapsed at now.
func (s *Session) RefreshExpired(now time.Time) bool {
	return !now.Before(s.RefreshExpiresAt)
}

// UsableForAccess is true while the session is active and its access lifetime has not elapsed.
func (s *Session) UsableForAccess(now time.Time) bool {
	return s.IsActive && !s.AccessExpired(now)
}

// UsableForRefresh is true while the session is active and its refresh lifetime has not elapsed.
func (s *Session) UsableForRefresh(now time.Time) bool {
	return s.IsActive && !s.RefreshExpired(now)
}

// SessionRotation carries the replacement credentials written on refresh.
type SessionRotation struct {
	OldRefreshToken     string
	NewAccessToken      string
	NewRefreshToken     string
	NewExpiresAt        time.Time
	NewRefreshExpiresAt time.Time
	UserAgent           *string
	IPAddress           *string
	Now                 time.Time
}
