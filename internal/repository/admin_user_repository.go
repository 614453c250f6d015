package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/newsroom-api/internal/models"
)

const adminUserColumns = `id, username, email, password_hash, full_name, role, is_active, last_login_at, created_at, updated_at`

// AdminUserRepository provides database access for admin accounts.
type AdminUserRepository struct {
	db *sqlx.DB
}

// NewAdminUserRepository creates a new instance of AdminUserRepository.
func NewAdminUserRepository(db *sqlx.DB) *AdminUserRepository {
	return &AdminUserRepository{db: db}
}

// FindByUsername returns an admin by username, case-insensitively.
func (r *AdminUserRepository) FindByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	query := `SELECT ` + adminUserColumns + ` FROM admin_users WHERE LOWER(username) = $1 LIMIT 1`
	var user models.AdminUser
	if err := r.db.GetContext(ctx, &user, query, strings.ToLower(username)); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find admin by username: %w", err)
	}
	return &user, nil
}

// FindByID returns an admin by identifier.
func (r *AdminUserRepository) FindByID(ctx context.Context, id string) (*models.AdminUser, error) {
	query := `SELECT ` + adminUserColumns + ` FROM admin_users WHERE id = $1 LIMIT 1`
	var user models.AdminUser
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find admin by id: %w", err)
	}
	return &user, nil
}

// Create inserts a new admin.
func (r *AdminUserRepository) Create(ctx context.Context, user *models.AdminUser) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	const query = `INSERT INTO admin_users (id, username, email, password_hash, full_name, role, is_active, created_at, updated_at) VALUES (:id, :username, :email, :password_hash, :full_name, :role, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		if translate(err) == ErrDuplicate {
			return ErrDuplicate
		}
		return fmt.Errorf("create admin: %w", err)
	}
	return nil
}

// UpdateLastLogin updates the last_login_at timestamp.
func (r *AdminUserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE admin_users SET last_login_at = $2, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// UpdatePassword updates the stored password hash.
func (r *AdminUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE admin_users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}
