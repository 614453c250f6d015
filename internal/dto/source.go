package dto

// CreateSourceRequest is the admin payload for a new source.
type CreateSourceRequest struct {
	Name     string `json:"name" yaml:"name" validate:"required,max=200"`
	URL      string `json:"url" yaml:"url" validate:"required,url"`
	Type     string `json:"type" yaml:"type" validate:"required,oneof=rss api"`
	Language string `json:"language" yaml:"language" validate:"required,min=2,max=8"`
	Category string `json:"category" yaml:"category" validate:"max=64"`
	IsActive *bool  `json:"isActive" yaml:"active"`
}

// UpdateSourceRequest replaces the editable fields of a source.
type UpdateSourceRequest = CreateSourceRequest

// BulkSourceRequest loads many sources at once; duplicates by url are skipped.
type BulkSourceRequest struct {
	Sources []CreateSourceRequest `json:"sources" yaml:"sources" validate:"required,min=1,max=500,dive"`
}

// SkippedSource reports why a bulk entry was not inserted.
type SkippedSource struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// BulkSourceResult summarises a bulk load.
type BulkSourceResult struct {
	Created []string        `json:"created"`
	Skipped []SkippedSource `json:"skipped"`
}

// FetchResult summarises one feed fetch.
type FetchResult struct {
	SourceID string `json:"sourceId"`
	Fetched  int    `json:"fetched"`
	Inserted int    `json:"inserted"`
	Skipped  int    `json:"skipped"`
}
