package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/newsroom-api/internal/dto"
	"github.com/noah-isme/newsroom-api/internal/models"
	"github.com/noah-isme/newsroom-api/internal/repository"
	appErrors "github.com/noah-isme/newsroom-api/pkg/errors"
)

type adminUserCreator interface {
	Create(ctx context.Context, user *models.AdminUser) error
}

// AdminUserService provisions admin accounts.
type AdminUserService struct {
	repo      adminUserCreator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAdminUserService constructs the service.
func NewAdminUserService(repo adminUserCreator, validate *validator.Validate, logger *zap.Logger) *AdminUserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminUserService{repo: repo, validator: validate, logger: logger}
}

// Create stores an active admin with a bcrypt hash of the password.
func (s *AdminUserService) Create(ctx context.Context, req dto.CreateAdminRequest) (*models.AdminUser, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Role = strings.ToUpper(strings.TrimSpace(req.Role))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid admin payload")
	}

	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.AdminUser{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(passwordHash),
		FullName:     req.FullName,
		Role:         models.AdminRole(req.Role),
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "username already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create admin")
	}

	s.logger.Info("admin created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// maxPasswordBytes is the bcrypt input limit. Validators count runes, so the byte length is checked here.
const maxPasswordBytes = 72

func hashPassword(password string) ([]byte, error) {
	if len(password) > maxPasswordBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, "password must be at most 72 bytes")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "password must be at most 72 bytes")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	return hash, nil
}
