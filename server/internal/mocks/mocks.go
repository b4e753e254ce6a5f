// Package mocks содержит testify моки интерфейсов сервера для тестов.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/maynagashev/idealvisual/models"
	servermodels "github.com/maynagashev/idealvisual/server/internal/models"
	"github.com/maynagashev/idealvisual/server/internal/services"
)

// UserRepository - мок repository.UserRepository.
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) CreateUser(ctx context.Context, account *servermodels.Account) (int64, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(int64), args.Error(1)
}

func (m *UserRepository) GetUserByUsername(ctx context.Context, username string) (*servermodels.Account, error) {
	args := m.Called(ctx, username)
	account, _ := args.Get(0).(*servermodels.Account)
	return account, args.Error(1)
}

func (m *UserRepository) GetUserByID(ctx context.Context, id int64) (*servermodels.Account, error) {
	args := m.Called(ctx, id)
	account, _ := args.Get(0).(*servermodels.Account)
	return account, args.Error(1)
}

func (m *UserRepository) UpdateUser(ctx context.Context, account *servermodels.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// RevocationStore - мок storage.RevocationStore.
type RevocationStore struct {
	mock.Mock
}

func (m *RevocationStore) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	args := m.Called(ctx, sessionID, ttl)
	return args.Error(0)
}

func (m *RevocationStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	args := m.Called(ctx, sessionID)
	return args.Bool(0), args.Error(1)
}

// AuthService - мок services.AuthService.
type AuthService struct {
	mock.Mock
}

func (m *AuthService) Register(ctx context.Context, user models.User) (*models.User, error) {
	args := m.Called(ctx, user)
	created, _ := args.Get(0).(*models.User)
	return created, args.Error(1)
}

func (m *AuthService) Login(ctx context.Context, username, password string) (*models.User, error) {
	args := m.Called(ctx, username, password)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *AuthService) Update(ctx context.Context, userID int64, changes models.User) (*models.User, error) {
	args := m.Called(ctx, userID, changes)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *AuthService) Logout(ctx context.Context, claims *services.Claims) error {
	args := m.Called(ctx, claims)
	return args.Error(0)
}

func (m *AuthService) VerifyToken(ctx context.Context, token string) (*services.Claims, error) {
	args := m.Called(ctx, token)
	claims, _ := args.Get(0).(*services.Claims)
	return claims, args.Error(1)
}
