package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/newsroom-api/internal/models"
)

func TestSourceRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSourceRepository(db)

	mock.ExpectExec("INSERT INTO sources").WillReturnError(&pq.Error{Code: "23505", Constraint: "sources_url_key"})

	err := repo.Create(context.Background(), &models.Source{Name: "Go Blog", URL: "https://go.dev/blog/feed.atom", Type: models.SourceTypeRSS, Language: "en"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSourceRepositoryInsertIfAbsent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSourceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (url) DO NOTHING")).WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := repo.InsertIfAbsent(context.Background(), &models.Source{Name: "dup", URL: "https://example.com/rss", Type: models.SourceTypeRSS, Language: "en"})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSourceRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSourceRepository(db)

	active := true
	typ := models.SourceTypeRSS
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "url", "type", "language", "category", "is_active", "last_fetched_at", "last_error", "created_at", "updated_at"}).
		AddRow("s1", "Go Blog", "https://go.dev/blog/feed.atom", "rss", "en", "tech", true, nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM sources WHERE 1=1 AND type = $1 AND language = $2 AND is_active = $3 ORDER BY name ASC LIMIT 20 OFFSET 0")).
		WithArgs(typ, "en", true).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM sources")).
		WithArgs(typ, "en", true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	sources, total, err := repo.List(context.Background(), models.SourceFilter{Type: &typ, Language: "en", Active: &active})
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, 1, total)
	assert.Nil(t, sources[0].LastFetchedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSourceRepositoryCounts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSourceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("COUNT(*) FILTER (WHERE is_active) AS active FROM sources")).
		WillReturnRows(sqlmock.NewRows([]string{"total", "active"}).AddRow(7, 5))

	total, active, err := repo.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	assert.Equal(t, 5, active)
	assert.NoError(t, mock.ExpectationsWereMet())
}
