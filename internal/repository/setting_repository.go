package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/newsroom-api/internal/models"
)

const settingUpsert = `INSERT INTO settings (key, value, type, description, updated_by, updated_at)
VALUES (:key, :value, :type, :description, :updated_by, :updated_at)
ON CONFLICT (key)
DO UPDATE SET value = EXCLUDED.value, type = EXCLUDED.type, description = EXCLUDED.description,
              updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`

// SettingRepository persists site settings.
type SettingRepository struct {
	db *sqlx.DB
}

// NewSettingRepository constructs the repository.
func NewSettingRepository(db *sqlx.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// ListByKeys returns settings whose key is in the provided slice.
func (r *SettingRepository) ListByKeys(ctx context.Context, keys []string) ([]models.Setting, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT key, value, type, description, updated_by, updated_at
FROM settings WHERE key IN (%s) ORDER BY key ASC`, placeholders(len(keys)))
	args := make([]interface{}, len(keys))
	for i, key := range keys {
		args[i] = key
	}
	var settings []models.Setting
	if err := r.db.SelectContext(ctx, &settings, query, args...); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return settings, nil
}

// Get fetches a single setting by key. A missing key yields sql.ErrNoRows.
func (r *SettingRepository) Get(ctx context.Context, key string) (*models.Setting, error) {
	const query = `SELECT key, value, type, description, updated_by, updated_at FROM settings WHERE key = $1`
	var setting models.Setting
	if err := r.db.GetContext(ctx, &setting, query, key); err != nil {
		return nil, err
	}
	return &setting, nil
}

// Upsert inserts or updates a setting.
func (r *SettingRepository) Upsert(ctx context.Context, setting *models.Setting) error {
	setting.UpdatedAt = time.Now().UTC()
	if _, err := r.db.NamedExecContext(ctx, settingUpsert, setting); err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}
	return nil
}

// BulkUpsert writes all settings in one transaction.
func (r *SettingRepository) BulkUpsert(ctx context.Context, settings []models.Setting) error {
	if len(settings) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk settings tx: %w", err)
	}
	now := time.Now().UTC()
	for i := range settings {
		settings[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, settingUpsert, settings[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("bulk upsert setting: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk settings tx: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	values := make([]string, n)
	for i := 1; i <= n; i++ {
		values[i-1] = fmt.Sprintf("$%d", i)
	}
	return strings.Join(values, ",")
}
