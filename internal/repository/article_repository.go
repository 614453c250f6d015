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

const articleColumns = `id, title, slug, summary, content, url, image_url, author, source_id, category, language, status, tags, published_at, created_at, updated_at`

const articleInsert = `INSERT INTO articles (` + articleColumns + `) VALUES (:id, :title, :slug, :summary, :content, :url, :image_url, :author, :source_id, :category, :language, :status, :tags, :published_at, :created_at, :updated_at)`

// ArticleRepository provides database access for articles.
type ArticleRepository struct {
	db *sqlx.DB
}

// NewArticleRepository creates a new ArticleRepository.
func NewArticleRepository(db *sqlx.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// List returns articles matching the filter together with the total count.
func (r *ArticleRepository) List(ctx context.Context, filter models.ArticleFilter) ([]models.Article, int, error) {
	baseQuery := `FROM articles WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Language != "" {
		conditions = append(conditions, fmt.Sprintf("language = $%d", len(args)+1))
		args = append(args, filter.Language)
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.SourceID != "" {
		conditions = append(conditions, fmt.Sprintf("source_id = $%d", len(args)+1))
		args = append(args, filter.SourceID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR summary ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+escapeLike(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.PageRequest.Normalize()
	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY published_at DESC NULLS LAST, created_at DESC LIMIT %d OFFSET %d", articleColumns, baseQuery, page.Limit, page.Offset())

	var articles []models.Article
	if err := r.db.SelectContext(ctx, &articles, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list articles: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}

	return articles, total, nil
}

// FindByID returns an article by identifier.
func (r *ArticleRepository) FindByID(ctx context.Context, id string) (*models.Article, error) {
	return r.findOne(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = $1`, id)
}

// FindPublishedBySlug returns a published article by slug.
func (r *ArticleRepository) FindPublishedBySlug(ctx context.Context, slug string) (*models.Article, error) {
	return r.findOne(ctx, `SELECT `+articleColumns+` FROM articles WHERE slug = $1 AND status = 'published'`, slug)
}

func (r *ArticleRepository) findOne(ctx context.Context, query string, arg interface{}) (*models.Article, error) {
	var article models.Article
	if err := r.db.GetContext(ctx, &article, query, arg); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find article: %w", err)
	}
	return &article, nil
}

// Create inserts an article. Duplicate url or slug yields ErrDuplicate.
func (r *ArticleRepository) Create(ctx context.Context, article *models.Article) error {
	prepareArticle(article)
	if _, err := r.db.NamedExecContext(ctx, articleInsert, article); err != nil {
		if translate(err) == ErrDuplicate {
			return ErrDuplicate
		}
		return fmt.Errorf("create article: %w", err)
	}
	return nil
}

// InsertIfAbsent inserts an article unless one with the same url or slug exists.
// It reports whether a row was written.
func (r *ArticleRepository) InsertIfAbsent(ctx context.Context, article *models.Article) (bool, error) {
	prepareArticle(article)
	res, err := r.db.NamedExecContext(ctx, articleInsert+` ON CONFLICT DO NOTHING`, article)
	if err != nil {
		return false, fmt.Errorf("insert article: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert article rows: %w", err)
	}
	return affected > 0, nil
}

// Update writes the editable fields of an article.
func (r *ArticleRepository) Update(ctx context.Context, article *models.Article) error {
	article.UpdatedAt = time.Now().UTC()
	const query = `UPDATE articles SET title = :title, slug = :slug, summary = :summary, content = :content, url = :url,
image_url = :image_url, author = :author, source_id = :source_id, category = :category, language = :language,
status = :status, tags = :tags, published_at = :published_at, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, article)
	if err != nil {
		if translate(err) == ErrDuplicate {
			return ErrDuplicate
		}
		return fmt.Errorf("update article: %w", err)
	}
	return requireAffected(res)
}

// UpdateStatus changes the editorial status and the publication timestamp.
func (r *ArticleRepository) UpdateStatus(ctx context.Context, id string, status models.ArticleStatus, publishedAt *time.Time) error {
	const query = `UPDATE articles SET status = $2, published_at = $3, updated_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, publishedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update article status: %w", err)
	}
	return requireAffected(res)
}

// Delete removes an article.
func (r *ArticleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM articles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	return requireAffected(res)
}

// CountByStatus tallies articles per status.
func (r *ArticleRepository) CountByStatus(ctx context.Context) ([]models.ArticleStatusCount, error) {
	const query = `SELECT status, COUNT(*) AS count FROM articles GROUP BY status ORDER BY status`
	var counts []models.ArticleStatusCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count articles by status: %w", err)
	}
	return counts, nil
}

func prepareArticle(article *models.Article) {
	if article.ID == "" {
		article.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if article.CreatedAt.IsZero() {
		article.CreatedAt = now
	}
	article.UpdatedAt = now
	if article.Status == "" {
		article.Status = models.ArticleStatusDraft
	}
	if article.Tags == nil {
		article.Tags = []string{}
	}
}

// requireAffected turns a zero-row write into sql.ErrNoRows.
func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func escapeLike(raw string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(raw)
}
