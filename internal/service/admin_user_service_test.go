package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/newsroom-api/internal/dto"
	"github.com/noah-isme/newsroom-api/internal/models"
	"github.com/noah-isme/newsroom-api/internal/repository"
	appErrors "github.com/noah-isme/newsroom-api/pkg/errors"
)

type adminCreatorStub struct {
	users map[string]*models.AdminUser
	err   error
}

func (s *adminCreatorStub) Create(ctx context.Context, user *models.AdminUser) error {
	if s.err != nil {
		return s.err
	}
	if _, ok := s.users[user.Username]; ok {
		return repository.ErrDuplicate
	}
	user.ID = "admin-" + user.Username
	s.users[user.Username] = user
	return nil
}

func TestAdminUserServiceCreate(t *testing.T) {
	repo := &adminCreatorStub{users: map[string]*models.AdminUser{}}
	svc := NewAdminUserService(repo, nil, nil)

	user, err := svc.Create(context.Background(), dto.CreateAdminRequest{
		Username: " chief ",
		Password: "correct horse",
		FullName: "Chief Editor",
		Role:     "superadmin",
	})
	require.NoError(t, err)
	assert.Equal(t, "chief", user.Username)
	assert.Equal(t, models.RoleSuperAdmin, user.Role)
	assert.True(t, user.IsActive)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct horse")))

	_, err = svc.Create(context.Background(), dto.CreateAdminRequest{Username: "chief", Password: "another pass", FullName: "Dup", Role: "EDITOR"})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestAdminUserServiceCreateValidation(t *testing.T) {
	svc := NewAdminUserService(&adminCreatorStub{users: map[string]*models.AdminUser{}}, nil, nil)

	cases := []dto.CreateAdminRequest{
		{Username: "ab", Password: "long enough", FullName: "X", Role: "EDITOR"},
		{Username: "editor", Password: "short", FullName: "X", Role: "EDITOR"},
		{Username: "editor", Password: "long enough", FullName: "X", Role: "READER"},
	}
	for _, req := range cases {
		_, err := svc.Create(context.Background(), req)
		assert.True(t, errors.Is(err, appErrors.ErrValidation), req.Username+"/"+req.Role)
	}
}

func TestAdminUserServiceCreateStoreFailure(t *testing.T) {
	svc := NewAdminUserService(&adminCreatorStub{err: errors.New("connection reset")}, nil, nil)
	_, err := svc.Create(context.Background(), dto.CreateAdminRequest{Username: "editor", Password: "long enough", FullName: "X", Role: "EDITOR"})
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestAdminUserServiceCreateRejectsPasswordsBcryptCannotHash(t *testing.T) {
	svc := NewAdminUserService(&adminCreatorStub{users: map[string]*models.AdminUser{}}, nil, nil)

	for _, password := range []string{strings.Repeat("a", 73), strings.Repeat("é", 40)} {
		_, err := svc.Create(context.Background(), dto.CreateAdminRequest{Username: "chief", Password: password, FullName: "Chief", Role: "EDITOR"})
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
		assert.Equal(t, 400, appErr.Status)
	}

	_, err := svc.Create(context.Background(), dto.CreateAdminRequest{Username: "chief", Password: strings.Repeat("a", 72), FullName: "Chief", Role: "EDITOR"})
	assert.NoError(t, err)
}
