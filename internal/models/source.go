package models

import "time"

// SourceType enumerates how a source is ingested.
type SourceType string

const (
	SourceTypeRSS SourceType = "rss"
	SourceTypeAPI SourceType = "api"
)

// Source is a publisher the platform aggregates from.
type Source struct {
	ID            string     `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	URL           string     `db:"url" json:"url"`
	Type          SourceType `db:"type" json:"type"`
	Language      string     `db:"language" json:"language"`
	Category      string     `db:"category" json:"category"`
	IsActive      bool       `db:"is_active" json:"isActive"`
	LastFetchedAt *time.Time `db:"last_fetched_at" json:"lastFetchedAt,omitempty"`
	LastError     *string    `db:"last_error" json:"lastError,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updatedAt"`
}

// SourceFilter captures filtering criteria for listing sources.
type SourceFilter struct {
	Type     *SourceType
	Language string
	Active   *bool
	Search   string
	PageRequest
}
