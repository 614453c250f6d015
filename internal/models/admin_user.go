package models

import "time"

// AdminRole represents the available roles for admin accounts.
type AdminRole string

const (
	RoleSuperAdmin AdminRole = "SUPERADMIN"
	RoleEditor     AdminRole = "EDITOR"
)

// AdminUser represents an account allowed into the admin backend.
type AdminUser struct {
	ID           string     `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	Email        *string    `db:"email" json:"email,omitempty"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"fullName"`
	Role         AdminRole  `db:"role" json:"role"`
	IsActive     bool       `db:"is_active" json:"isActive"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// Info returns the public projection of the user embedded in auth responses.
func (u *AdminUser) Info() AdminUserInfo {
	return AdminUserInfo{
		ID:       u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Role:     u.Role,
	}
}

// AdminUserInfo describes the authenticated user in responses.
type AdminUserInfo struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	FullName string    `json:"fullName"`
	Role     AdminRole `json:"role"`
}
