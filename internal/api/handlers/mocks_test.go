package handlers_test

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"greendrake/realty/internal/models"
	"greendrake/realty/internal/services"
	"greendrake/realty/internal/tasks"
)

// --- Mocks ---

// MockUserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) userResult(args mock.Arguments) (*models.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) CreateUser(ctx context.Context, name, email, password string, role models.Role, phoneNumber string) (*models.User, error) {
	return m.userResult(m.Called(ctx, name, email, password, role, phoneNumber))
}
func (m *MockUserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.userResult(m.Called(ctx, email))
}
func (m *MockUserService) FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	return m.userResult(m.Called(ctx, userID))
}
func (m *MockUserService) FindAgentCard(ctx context.Context, userID primitive.ObjectID) (*models.AgentCard, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AgentCard), args.Error(1)
}
func (m *MockUserService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, update services.ProfileUpdate) (*models.User, error) {
	return m.userResult(m.Called(ctx, userID, update))
}
func (m *MockUserService) ChangePassword(ctx context.Context, userID primitive.ObjectID, currentPassword, newPassword string) error {
	return m.Called(ctx, userID, currentPassword, newPassword).Error(0)
}
func (m *MockUserService) SetResetToken(ctx context.Context, userID primitive.ObjectID, digest string, expires time.Time) error {
	return m.Called(ctx, userID, digest, expires).Error(0)
}
func (m *MockUserService) ResetPasswordByToken(ctx context.Context, digest, newPassword string) (*models.User, error) {
	return m.userResult(m.Called(ctx, digest, newPassword))
}
func (m *MockUserService) ValidatePassword(password string) error {
	return m.Called(password).Error(0)
}
func (m *MockUserService) AddSavedHome(ctx context.Context, userID, propertyID primitive.ObjectID) error {
	return m.Called(ctx, userID, propertyID).Error(0)
}
func (m *MockUserService) RemoveSavedHome(ctx context.Context, userID, propertyID primitive.ObjectID) error {
	return m.Called(ctx, userID, propertyID).Error(0)
}
func (m *MockUserService) ListSavedHomes(ctx context.Context, userID primitive.ObjectID) ([]models.Property, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Property), args.Error(1)
}
func (m *MockUserService) ListSavedSearches(ctx context.Context, userID primitive.ObjectID) ([]models.SavedSearch, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SavedSearch), args.Error(1)
}
func (m *MockUserService) AddSavedSearch(ctx context.Context, userID primitive.ObjectID, name string, query map[string]string) (*models.SavedSearch, error) {
	args := m.Called(ctx, userID, name, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SavedSearch), args.Error(1)
}
func (m *MockUserService) RemoveSavedSearch(ctx context.Context, userID, searchID primitive.ObjectID) error {
	return m.Called(ctx, userID, searchID).Error(0)
}

// MockAuthService
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) authResult(args mock.Arguments) (*services.AuthResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.AuthResult), args.Error(1)
}

func (m *MockAuthService) Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error) {
	return m.authResult(m.Called(ctx, in))
}
func (m *MockAuthService) Login(ctx context.Context, email, password string) (*services.AuthResult, error) {
	return m.authResult(m.Called(ctx, email, password))
}
func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (*services.AuthResult, error) {
	return m.authResult(m.Called(ctx, refreshToken))
}
func (m *MockAuthService) RequestPasswordReset(ctx context.Context, email string) (*services.PasswordReset, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PasswordReset), args.Error(1)
}
func (m *MockAuthService) ResetPassword(ctx context.Context, token, newPassword string) (*models.User, error) {
	args := m.Called(ctx, token, newPassword)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockPropertyService
type MockPropertyService struct {
	mock.Mock
}

func (m *MockPropertyService) propertyResult(args mock.Arguments) (*models.Property, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyService) Create(ctx context.Context, agentID primitive.ObjectID, details models.PropertyDetails, geometry *models.GeoJSON) (*models.Property, error) {
	return m.propertyResult(m.Called(ctx, agentID, details, geometry))
}
func (m *MockPropertyService) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Property, error) {
	return m.propertyResult(m.Called(ctx, id))
}
func (m *MockPropertyService) Update(ctx context.Context, id, agentID primitive.ObjectID, details map[string]interface{}, geometry *models.GeoJSON) (*models.Property, error) {
	return m.propertyResult(m.Called(ctx, id, agentID, details, geometry))
}
func (m *MockPropertyService) Delete(ctx context.Context, id, agentID primitive.ObjectID) error {
	return m.Called(ctx, id, agentID).Error(0)
}
func (m *MockPropertyService) AddPhotos(ctx context.Context, id, agentID primitive.ObjectID, urls []string) (*models.Property, error) {
	return m.propertyResult(m.Called(ctx, id, agentID, urls))
}
func (m *MockPropertyService) CheckOwner(ctx context.Context, id, agentID primitive.ObjectID) (*models.Property, error) {
	return m.propertyResult(m.Called(ctx, id, agentID))
}
func (m *MockPropertyService) ListByAgent(ctx context.Context, agentID primitive.ObjectID) ([]models.Property, error) {
	args := m.Called(ctx, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Property), args.Error(1)
}
func (m *MockPropertyService) Search(ctx context.Context, q services.PropertyQuery) (*models.PropertyPage, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PropertyPage), args.Error(1)
}

// MockInterestService
type MockInterestService struct {
	mock.Mock
}

func (m *MockInterestService) Create(ctx context.Context, clientID, propertyID primitive.ObjectID, message string) (*models.Interest, *models.Property, error) {
	args := m.Called(ctx, clientID, propertyID, message)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.Interest), args.Get(1).(*models.Property), args.Error(2)
}
func (m *MockInterestService) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Interest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Interest), args.Error(1)
}
func (m *MockInterestService) ListForAgent(ctx context.Context, agentID primitive.ObjectID, status models.InterestStatus) ([]models.InterestView, error) {
	args := m.Called(ctx, agentID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.InterestView), args.Error(1)
}
func (m *MockInterestService) ListForClient(ctx context.Context, clientID primitive.ObjectID) ([]models.InterestView, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.InterestView), args.Error(1)
}
func (m *MockInterestService) UpdateStatus(ctx context.Context, id, agentID primitive.ObjectID, status models.InterestStatus) (*models.Interest, error) {
	args := m.Called(ctx, id, agentID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Interest), args.Error(1)
}

// MockContactService
type MockContactService struct {
	mock.Mock
}

func (m *MockContactService) Create(ctx context.Context, in services.ContactInput) (*models.Contact, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contact), args.Error(1)
}
func (m *MockContactService) List(ctx context.Context, status models.ContactStatus) ([]models.Contact, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Contact), args.Error(1)
}
func (m *MockContactService) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.ContactStatus) (*models.Contact, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contact), args.Error(1)
}

// MockImageStorage
type MockImageStorage struct {
	mock.Mock
}

func (m *MockImageStorage) Upload(ctx context.Context, folder, name string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, folder, name, data, contentType)
	return args.String(0), args.Error(1)
}

// MockAsynqClient records enqueued tasks.
type MockAsynqClient struct {
	mock.Mock
}

func (m *MockAsynqClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}

var _ tasks.Enqueuer = (*MockAsynqClient)(nil)

// emailTask matches an email:deliver task for the given template and recipient.
func emailTask(templateID, to string) interface{} {
	return mock.MatchedBy(func(task *asynq.Task) bool {
		if task.Type() != tasks.TypeEmailDelivery {
			return false
		}
		var p tasks.EmailTaskPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			return false
		}
		return p.TemplateID == templateID && p.To == to
	})
}

// emailPayload decodes the payload of an enqueued email task.
func emailPayload(task *asynq.Task) tasks.EmailTaskPayload {
	var p tasks.EmailTaskPayload
	_ = json.Unmarshal(task.Payload(), &p)
	return p
}
