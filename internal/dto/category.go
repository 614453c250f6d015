package dto

// CreateCategoryRequest is the admin payload for a new category.
type CreateCategoryRequest struct {
	Key         string `json:"key" validate:"required,max=64,lowercase,excludesall= /?#"`
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=500"`
	SortOrder   int    `json:"sortOrder"`
}

// UpdateCategoryRequest replaces the editable fields of a category.
type UpdateCategoryRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=500"`
	SortOrder   int    `json:"sortOrder"`
}
