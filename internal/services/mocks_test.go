package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"greendrake/realty/internal/models"
)

// mockUserService is a testify mock for IUserService.
type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) CreateUser(ctx context.Context, name, email, password string, role models.Role, phoneNumber string) (*models.User, error) {
	args := m.Called(ctx, name, email, password, role, phoneNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserService) FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserService) FindAgentCard(ctx context.Context, userID primitive.ObjectID) (*models.AgentCard, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AgentCard), args.Error(1)
}

func (m *mockUserService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, update ProfileUpdate) (*models.User, error) {
	args := m.Called(ctx, userID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserService) ChangePassword(ctx context.Context, userID primitive.ObjectID, currentPassword, newPassword string) error {
	return m.Called(ctx, userID, currentPassword, newPassword).Error(0)
}

func (m *mockUserService) SetResetToken(ctx context.Context, userID primitive.ObjectID, digest string, expires time.Time) error {
	return m.Called(ctx, userID, digest, expires).Error(0)
}

func (m *mockUserService) ResetPasswordByToken(ctx context.Context, digest, newPassword string) (*models.User, error) {
	args := m.Called(ctx, digest, newPassword)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserService) ValidatePassword(password string) error {
	return m.Called(password).Error(0)
}

func (m *mockUserService) AddSavedHome(ctx context.Context, userID, propertyID primitive.ObjectID) error {
	return m.Called(ctx, userID, propertyID).Error(0)
}

func (m *mockUserService) RemoveSavedHome(ctx context.Context, userID, propertyID primitive.ObjectID) error {
	return m.Called(ctx, userID, propertyID).Error(0)
}

func (m *mockUserService) ListSavedHomes(ctx context.Context, userID primitive.ObjectID) ([]models.Property, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Property), args.Error(1)
}

func (m *mockUserService) ListSavedSearches(ctx context.Context, userID primitive.ObjectID) ([]models.SavedSearch, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SavedSearch), args.Error(1)
}

func (m *mockUserService) AddSavedSearch(ctx context.Context, userID primitive.ObjectID, name string, query map[string]string) (*models.SavedSearch, error) {
	args := m.Called(ctx, userID, name, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SavedSearch), args.Error(1)
}

func (m *mockUserService) RemoveSavedSearch(ctx context.Context, userID, searchID primitive.ObjectID) error {
	return m.Called(ctx, userID, searchID).Error(0)
}

// stubGeocoder resolves every address to the same point.
type stubGeocoder struct {
	point *models.GeoJSON
	err   error
	calls []string
}

func (g *stubGeocoder) Geocode(ctx context.Context, address string) (*models.GeoJSON, error) {
	g.calls = append(g.calls, address)
	return g.point, g.err
}
