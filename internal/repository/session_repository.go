package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/newsroom-api/internal/models"
)

const sessionColumns = `id, user_id, access_token, refresh_token, expires_at, refresh_expires_at, user_agent, ip_address, is_active, created_at, updated_at`

// SessionRepository persists admin sessions. Token uniqueness is enforced by unique indexes.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session. A token collision yields ErrDuplicate.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = session.CreatedAt

	const query = `INSERT INTO sessions (` + sessionColumns + `) VALUES (:id, :user_id, :access_token, :refresh_token, :expires_at, :refresh_expires_at, :user_agent, :ip_address, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		if translate(err) == ErrDuplicate {
			return ErrDuplicate
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// FindByAccessToken returns the session owning an access token.
func (r *SessionRepository) FindByAccessToken(ctx context.Context, token string) (*models.Session, error) {
	return r.findOne(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE access_token = $1 LIMIT 1`, token)
}

// FindByRefreshToken returns the session owning a refresh token.
func (r *SessionRepository) FindByRefreshToken(ctx context.Context, token string) (*models.Session, error) {
	return r.findOne(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE refresh_token = $1 LIMIT 1`, token)
}

func (r *SessionRepository) findOne(ctx context.Context, query string, arg interface{}) (*models.Session, error) {
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, arg); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &session, nil
}

// Rotate swaps both tokens of the session holding OldRefreshToken in a single conditional
// update. Only a session that is active and still inside its refresh lifetime is rotated,
// so of two concurrent rotations of one token exactly one sees a row; the other gets
// sql.ErrNoRows.
func (r *SessionRepository) Rotate(ctx context.Context, rot models.SessionRotation) (*models.Session, error) {
	const query = `UPDATE sessions
SET access_token = $2, refresh_token = $3, expires_at = $4, refresh_expires_at = $5,
    user_agent = COALESCE($6, user_agent), ip_address = COALESCE($7, ip_address), updated_at = $8
WHERE refresh_token = $1 AND is_active AND refresh_expires_at > $8
RETURNING ` + sessionColumns

	var session models.Session
	err := r.db.GetContext(ctx, &session, query,
		rot.OldRefreshToken,
		rot.NewAccessToken,
		rot.NewRefreshToken,
		rot.NewExpiresAt,
		rot.NewRefreshExpiresAt,
		rot.UserAgent,
		rot.IPAddress,
		rot.Now,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		if translate(err) == ErrDuplicate {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("rotate session: %w", err)
	}
	return &session, nil
}

// DeactivateByAccessToken flips an active session to inactive. Unknown tokens are not an error.
func (r *SessionRepository) DeactivateByAccessToken(ctx context.Context, token string, now time.Time) (bool, error) {
	const query = `UPDATE sessions SET is_active = FALSE, updated_at = $2 WHERE access_token = $1 AND is_active`
	res, err := r.db.ExecContext(ctx, query, token, now)
	if err != nil {
		return false, fmt.Errorf("deactivate session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deactivate session rows: %w", err)
	}
	return affected > 0, nil
}

// DeactivateAllForUser deactivates every live session of a user and returns the access tokens
// that were switched off. Rows already past their refresh lifetime are dead and left alone.
func (r *SessionRepository) DeactivateAllForUser(ctx context.Context, userID string, now time.Time) ([]string, error) {
	const query = `UPDATE sessions SET is_active = FALSE, updated_at = $2
WHERE user_id = $1 AND is_active AND refresh_expires_at > $2
RETURNING access_token`
	var tokens []string
	if err := r.db.SelectContext(ctx, &tokens, query, userID, now); err != nil {
		return nil, fmt.Errorf("deactivate user sessions: %w", err)
	}
	return tokens, nil
}

// DeleteExpired removes rows that can no longer be used for anything: past the refresh
// lifetime, or inactive and past the access lifetime.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM sessions WHERE refresh_expires_at <= $1 OR (NOT is_active AND expires_at <= $1)`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions rows: %w", err)
	}
	return affected, nil
}

// ListActiveForUser returns a user's sessions that can still be refreshed, newest first.
func (r *SessionRepository) ListActiveForUser(ctx context.Context, userID string, now time.Time) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = $1 AND is_active AND refresh_expires_at > $2 ORDER BY created_at DESC`
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, userID, now); err != nil {
		return nil, fmt.Errorf("list user sessions: %w", err)
	}
	return sessions, nil
}

// CountActive returns the number of sessions currently usable for access.
func (r *SessionRepository) CountActive(ctx context.Context, now time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM sessions WHERE is_active AND expires_at > $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, now); err != nil {
		return 0, fmt.Errorf("count active sessions: %w", err)
	}
	return total, nil
}
