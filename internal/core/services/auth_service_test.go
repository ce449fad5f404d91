package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ticketdesk/ticketdesk/internal/core/domain"
	apperrors "github.com/ticketdesk/ticketdesk/internal/core/errors"
	"github.com/ticketdesk/ticketdesk/internal/core/mocks"
	"github.com/ticketdesk/ticketdesk/internal/core/services"
)

func registration() domain.UserRegistrationParams {
	return domain.UserRegistrationParams{
		Name:     "Avery Chen",
		Email:    "avery@example.com",
		Password: "Password1",
		Role:     domain.RoleUser,
	}
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		mockRepo.On("GetByEmail", ctx, "avery@example.com").Return(nil, apperrors.ErrUserNotFound)
		mockRepo.On("Create", ctx, mock.AnythingOfType("*domain.User")).
			Return(&domain.User{ID: "u-1", Name: "Avery Chen", Email: "avery@example.com", Role: domain.RoleUser}, nil)

		user, err := svc.Register(ctx, registration())

		require.NoError(t, err)
		assert.Equal(t, "u-1", user.ID)
		mockRepo.AssertExpectations(t)
	})

	t.Run("duplicate email", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		mockRepo.On("GetByEmail", ctx, "avery@example.com").
			Return(&domain.User{ID: "u-1", Email: "avery@example.com"}, nil)

		user, err := svc.Register(ctx, registration())

		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrUserExists)
		mockRepo.AssertNotCalled(t, "Create")
	})

	t.Run("invalid params", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		params := registration()
		params.Email = "bad"

		user, err := svc.Register(ctx, params)

		assert.Nil(t, user)
		assert.Error(t, err)
		mockRepo.AssertNotCalled(t, "GetByEmail")
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	hash, err := domain.HashPassword("Password1")
	require.NoError(t, err)
	stored := &domain.User{ID: "u-1", Email: "avery@example.com", PasswordHash: hash}

	t.Run("success", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		mockRepo.On("GetByEmail", ctx, "avery@example.com").Return(stored, nil)

		user, err := svc.Login(ctx, "avery@example.com", "Password1")

		require.NoError(t, err)
		assert.Equal(t, "u-1", user.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		mockRepo.On("GetByEmail", ctx, "avery@example.com").Return(stored, nil)

		user, err := svc.Login(ctx, "avery@example.com", "nope")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("unknown email does not leak existence", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		mockRepo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, apperrors.ErrUserNotFound)

		user, err := svc.Login(ctx, "ghost@example.com", "Password1")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})
}
