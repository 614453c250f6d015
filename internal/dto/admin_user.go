package dto

// CreateAdminRequest bootstraps an admin account from the CLI.
type CreateAdminRequest struct {
	Username string  `json:"username" validate:"required,min=3,max=64"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
	FullName string  `json:"fullName" validate:"required,max=120"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Role     string  `json:"role" validate:"required,oneof=SUPERADMIN EDITOR"`
}
