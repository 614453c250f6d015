package dto

import (
	"time"

	"github.com/noah-isme/newsroom-api/internal/models"
)

// CreateArticleRequest is the admin payload for a new article.
type CreateArticleRequest struct {
	Title       string     `json:"title" validate:"required,max=300"`
	Slug        string     `json:"slug" validate:"omitempty,max=200"`
	Summary     string     `json:"summary" validate:"max=2000"`
	Content     string     `json:"content"`
	URL         string     `json:"url" validate:"required,url"`
	ImageURL    string     `json:"imageUrl" validate:"omitempty,url"`
	Author      string     `json:"author" validate:"max=200"`
	SourceID    *string    `json:"sourceId" validate:"omitempty,uuid"`
	Category    string     `json:"category" validate:"max=64"`
	Language    string     `json:"language" validate:"required,min=2,max=8"`
	Status      string     `json:"status" validate:"omitempty,oneof=draft published archived"`
	Tags        []string   `json:"tags" validate:"max=20,dive,max=64"`
	PublishedAt *time.Time `json:"publishedAt"`
}

// UpdateArticleRequest replaces the editable fields of an article.
type UpdateArticleRequest = CreateArticleRequest

// UpdateArticleStatusRequest moves an article between editorial states.
type UpdateArticleStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft published archived"`
}

// ArticlePage is a page of articles with its pagination metadata.
type ArticlePage struct {
	Items      []models.Article   `json:"items"`
	Pagination *models.Pagination `json:"pagination"`
}
