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

const sourceColumns = `id, name, url, type, language, category, is_active, last_fetched_at, last_error, created_at, updated_at`

const sourceInsert = `INSERT INTO sources (` + sourceColumns + `) VALUES (:id, :name, :url, :type, :language, :category, :is_active, :last_fetched_at, :last_error, :created_at, :updated_at)`

// SourceRepository provides database access for news sources.
type SourceRepository struct {
	db *sqlx.DB
}

// NewSourceRepository creates a new SourceRepository.
func NewSourceRepository(db *sqlx.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

// List returns sources matching the filter with total count.
func (r *SourceRepository) List(ctx context.Context, filter models.SourceFilter) ([]models.Source, int, error) {
	baseQuery := `FROM sources WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, *filter.Type)
	}
	if filter.Language != "" {
		conditions = append(conditions, fmt.Sprintf("language = $%d", len(args)+1))
		args = append(args, filter.Language)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR url ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+escapeLike(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.PageRequest.Normalize()
	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY name ASC LIMIT %d OFFSET %d", sourceColumns, baseQuery, page.Limit, page.Offset())

	var sources []models.Source
	if err := r.db.SelectContext(ctx, &sources, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list sources: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sources: %w", err)
	}

	return sources, total, nil
}

// ListActiveByType returns every active source of the given type.
func (r *SourceRepository) ListActiveByType(ctx context.Context, sourceType models.SourceType) ([]models.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE type = $1 AND is_active ORDER BY name ASC`
	var sources []models.Source
	if err := r.db.SelectContext(ctx, &sources, query, sourceType); err != nil {
		return nil, fmt.Errorf("list active sources: %w", err)
	}
	return sources, nil
}

// FindByID returns a source by identifier.
func (r *SourceRepository) FindByID(ctx context.Context, id string) (*models.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE id = $1`
	var source models.Source
	if err := r.db.GetContext(ctx, &source, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find source: %w", err)
	}
	return &source, nil
}

// Create inserts a source. A duplicate url yields ErrDuplicate.
func (r *SourceRepository) Create(ctx context.Context, source *models.Source) error {
	prepareSource(source)
	if _, err := r.db.NamedExecContext(ctx, sourceInsert, source); err != nil {
		if translate(err) == ErrDuplicate {
			return ErrDuplicate
		}
		return fmt.Errorf("create source: %w", err)
	}
	return nil
}

// InsertIfAbsent inserts a source unless its url is already stored, reporting whether it wrote a row.
func (r *SourceRepository) InsertIfAbsent(ctx context.Context, source *models.Source) (bool, error) {
	prepareSource(source)
	res, err := r.db.NamedExecContext(ctx, sourceInsert+` ON CONFLICT (url) DO NOTHING`, source)
	if err != nil {
		return false, fmt.Errorf("insert source: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert source rows: %w", err)
	}
	return affected > 0, nil
}

// Update writes the editable fields of a source.
func (r *SourceRepository) Update(ctx context.Context, source *models.Source) error {
	source.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sources SET name = :name, url = :url, type = :type, language = :language, category = :category,
is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, source)
	if err != nil {
		if translate(err) == ErrDuplicate {
			return ErrDuplicate
		}
		return fmt.Errorf("update source: %w", err)
	}
	return requireAffected(res)
}

// MarkFetched records the outcome of a feed fetch. fetchErr is nil on success.
func (r *SourceRepository) MarkFetched(ctx context.Context, id string, at time.Time, fetchErr *string) error {
	const query = `UPDATE sources SET last_fetched_at = $2, last_error = $3, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, at, fetchErr); err != nil {
		return fmt.Errorf("mark source fetched: %w", err)
	}
	return nil
}

// Delete removes a source. Articles keep their rows with source_id cleared.
func (r *SourceRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	return requireAffected(res)
}

// Counts returns the total and active number of sources.
func (r *SourceRepository) Counts(ctx context.Context) (total int, active int, err error) {
	const query = `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE is_active) AS active FROM sources`
	var row struct {
		Total  int `db:"total"`
		Active int `db:"active"`
	}
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return 0, 0, fmt.Errorf("count sources: %w", err)
	}
	return row.Total, row.Active, nil
}

func prepareSource(source *models.Source) {
	if source.ID == "" {
		source.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if source.CreatedAt.IsZero() {
		source.CreatedAt = now
	}
	source.UpdatedAt = now
}
