package models

import (
	"time"

	"github.com/lib/pq"
)

// ArticleStatus is the editorial state of an article.
type ArticleStatus string

const (
	ArticleStatusDraft     ArticleStatus = "draft"
	ArticleStatusPublished ArticleStatus = "published"
	ArticleStatusArchived  ArticleStatus = "archived"
)

// Valid reports whether s is a known status.
func (s ArticleStatus) Valid() bool {
	switch s {
	case ArticleStatusDraft, ArticleStatusPublished, ArticleStatusArchived:
		return true
	}
	return false
}

// Article is a news item, written by an editor or ingested from a feed.
type Article struct {
	ID          string         `db:"id" json:"id"`
	Title       string         `db:"title" json:"title"`
	Slug        string         `db:"slug" json:"slug"`
	Summary     string         `db:"summary" json:"summary"`
	Content     string         `db:"content" json:"content"`
	URL         string         `db:"url" json:"url"`
	ImageURL    string         `db:"image_url" json:"imageUrl"`
	Author      string         `db:"author" json:"author"`
	SourceID    *string        `db:"source_id" json:"sourceId,omitempty"`
	Category    string         `db:"category" json:"category"`
	Language    string         `db:"language" json:"language"`
	Status      ArticleStatus  `db:"status" json:"status"`
	Tags        pq.StringArray `db:"tags" json:"tags"`
	PublishedAt *time.Time     `db:"published_at" json:"publishedAt,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`
}

// ArticleFilter captures filtering criteria for listing articles.
type ArticleFilter struct {
	Status   *ArticleStatus
	Language string
	Category string
	SourceID string
	Search   string
	PageRequest
}

// ArticleStatusCount is one row of the per-status article tally.
type ArticleStatusCount struct {
	Status ArticleStatus `db:"status" json:"status"`
	Count  int           `db:"count" json:"count"`
}
