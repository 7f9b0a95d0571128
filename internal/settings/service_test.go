package settings

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

var testUserID = uuid.MustParse("a9f3a4a0-6d3a-4a5e-9a34-24d9cbf06b01")

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetSettings(ctx context.Context, userID uuid.UUID) (*StoredSettings, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*StoredSettings), args.Error(1)
}

func (m *MockRepository) InsertSettings(ctx context.Context, s *StoredSettings) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockRepository) UpdateSettings(ctx context.Context, s *StoredSettings) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockRepository) DeleteSettings(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*ProfileSettings, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ProfileSettings), args.Error(1)
}

func (m *MockRepository) UpdateProfile(ctx context.Context, userID uuid.UUID, patch *ProfilePatch) error {
	args := m.Called(ctx, userID, patch)
	return args.Error(0)
}

func (m *MockRepository) GetHealthProfile(ctx context.Context, userID uuid.UUID) (*HealthProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*HealthProfile), args.Error(1)
}

func (m *MockRepository) InsertHealthProfile(ctx context.Context, p *HealthProfile) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockRepository) UpdateHealthProfile(ctx context.Context, p *HealthProfile) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockRepository) DeleteHealthProfile(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockRepository) GetThresholds(ctx context.Context, userID uuid.UUID) (*AlertThresholds, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*AlertThresholds), args.Error(1)
}

func (m *MockRepository) InsertThresholds(ctx context.Context, t *AlertThresholds) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockRepository) UpdateThresholds(ctx context.Context, t *AlertThresholds) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockRepository) DeleteThresholds(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockRepository) ListEmergencyContacts(ctx context.Context, userID uuid.UUID) ([]EmergencyContact, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]EmergencyContact), args.Error(1)
}

func (m *MockRepository) ReplaceEmergencyContacts(ctx context.Context, userID uuid.UUID, contacts []EmergencyContact) error {
	args := m.Called(ctx, userID, contacts)
	return args.Error(0)
}

func newTestService(repo Repository) *Service {
	return NewService(repo, NewValidator(), zap.NewNop())
}

func stubAggregateReads(repo *MockRepository, stored *StoredSettings) {
	repo.On("GetProfile", mock.Anything, testUserID).Return(&ProfileSettings{Email: "ana@example.com"}, nil)
	repo.On("GetSettings", mock.Anything, testUserID).Return(stored, nil)
	repo.On("GetHealthProfile", mock.Anything, testUserID).Return(DefaultHealthProfile(testUserID), nil)
	repo.On("ListEmergencyContacts", mock.Anything, testUserID).Return([]EmergencyContact{}, nil)
}

func TestGetSettingsMissingRow(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetProfile", mock.Anything, testUserID).Return(&ProfileSettings{}, nil)
	repo.On("GetSettings", mock.Anything, testUserID).Return(nil, nil)
	repo.On("GetHealthProfile", mock.Anything, testUserID).Return(nil, nil)
	repo.On("ListEmergencyContacts", mock.Anything, testUserID).Return([]EmergencyContact{}, nil)

	svc := newTestService(repo)
	agg, err := svc.GetSettings(context.Background(), testUserID)

	assert.Nil(t, agg)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetSettingsMissingUserRow(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetProfile", mock.Anything, testUserID).Return(nil, nil)
	repo.On("GetSettings", mock.Anything, testUserID).Return(DefaultStoredSettings(testUserID), nil)
	repo.On("GetHealthProfile", mock.Anything, testUserID).Return(DefaultHealthProfile(testUserID), nil)
	repo.On("ListEmergencyContacts", mock.Anything, testUserID).Return([]EmergencyContact{}, nil)

	svc := newTestService(repo)
	agg, err := svc.GetSettings(context.Background(), testUserID)

	assert.Nil(t, agg)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateDisplayThemeKeepsOtherFields(t *testing.T) {
	repo := new(MockRepository)
	stored := DefaultStoredSettings(testUserID)
	stored.Display.Theme = "light"
	stored.Display.Language = "de"
	stubAggregateReads(repo, stored)
	repo.On("UpdateSettings", mock.Anything, mock.AnythingOfType("*settings.StoredSettings")).Return(nil)

	svc := newTestService(repo)
	agg, err := svc.UpdateSection(context.Background(), testUserID, &UpdateRequest{
		Type: "display",
		Data: json.RawMessage(`{"theme":"dark"}`),
	})

	assert.NoError(t, err)
	assert.Equal(t, "dark", agg.Display.Theme)
	assert.Equal(t, "de", agg.Display.Language)
	assert.Equal(t, "celsius", agg.Display.TemperatureUnit)
	repo.AssertCalled(t, "UpdateSettings", mock.Anything, mock.AnythingOfType("*settings.StoredSettings"))
}

func TestUpdatePrivacyPartialPatchIsolation(t *testing.T) {
	repo := new(MockRepository)
	stored := DefaultStoredSettings(testUserID)
	stored.Privacy.RefreshInterval = 15
	stubAggregateReads(repo, stored)

	var written *StoredSettings
	repo.On("UpdateSettings", mock.Anything, mock.AnythingOfType("*settings.StoredSettings")).
		Run(func(args mock.Arguments) {
			written = args.Get(1).(*StoredSettings)
		}).Return(nil)

	svc := newTestService(repo)
	before := stored.Notifications
	_, err := svc.UpdateSection(context.Background(), testUserID, &UpdateRequest{
		Type: "privacy",
		Data: json.RawMessage(`{"refreshInterval":30}`),
	})

	assert.NoError(t, err)
	assert.Equal(t, 30, written.Privacy.RefreshInterval)
	assert.Equal(t, "90days", written.Privacy.DataRetention)
	assert.Equal(t, before, written.Notifications)
}

func TestUpdateHealthRejectsInvalidAgeBeforeWrite(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetHealthProfile", mock.Anything, testUserID).Return(DefaultHealthProfile(testUserID), nil)

	svc := newTestService(repo)
	_, err := svc.UpdateSection(context.Background(), testUserID, &UpdateRequest{
		Type: "health",
		Data: json.RawMessage(`{"age":150}`),
	})

	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "age", verr.Violations[0].Field)
	repo.AssertNotCalled(t, "UpdateHealthProfile", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "ReplaceEmergencyContacts", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateHealthEmptyContactListClears(t *testing.T) {
	repo := new(MockRepository)
	stored := DefaultStoredSettings(testUserID)
	stubAggregateReads(repo, stored)
	repo.On("UpdateHealthProfile", mock.Anything, mock.AnythingOfType("*settings.HealthProfile")).Return(nil)
	repo.On("ReplaceEmergencyContacts", mock.Anything, testUserID, []EmergencyContact{}).Return(nil)

	svc := newTestService(repo)
	_, err := svc.UpdateSection(context.Background(), testUserID, &UpdateRequest{
		Type: "health",
		Data: json.RawMessage(`{"emergencyContacts":[]}`),
	})

	assert.NoError(t, err)
	repo.AssertCalled(t, "ReplaceEmergencyContacts", mock.Anything, testUserID, []EmergencyContact{})
}

func TestUpdateHealthNilContactsLeaveTableAlone(t *testing.T) {
	repo := new(MockRepository)
	stored := DefaultStoredSettings(testUserID)
	stubAggregateReads(repo, stored)
	repo.On("UpdateHealthProfile", mock.Anything, mock.AnythingOfType("*settings.HealthProfile")).Return(nil)

	svc := newTestService(repo)
	_, err := svc.UpdateSection(context.Background(), testUserID, &UpdateRequest{
		Type: "health",
		Data: json.RawMessage(`{"age":55}`),
	})

	assert.NoError(t, err)
	repo.AssertNotCalled(t, "ReplaceEmergencyContacts", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateUnknownSection(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	_, err := svc.UpdateSection(context.Background(), testUserID, &UpdateRequest{
		Type: "appearance",
		Data: json.RawMessage(`{}`),
	})

	assert.Error(t, err)
	repo.AssertNotCalled(t, "UpdateSettings", mock.Anything, mock.Anything)
}

func TestInitializeInsertsAllThreeRows(t *testing.T) {
	repo := new(MockRepository)
	repo.On("InsertSettings", mock.Anything, mock.AnythingOfType("*settings.StoredSettings")).Return(nil)
	repo.On("InsertHealthProfile", mock.Anything, mock.AnythingOfType("*settings.HealthProfile")).Return(nil)
	repo.On("InsertThresholds", mock.Anything, mock.AnythingOfType("*settings.AlertThresholds")).Return(nil)

	svc := newTestService(repo)
	err := svc.Initialize(context.Background(), testUserID)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestInitializeFailsWhenOneInsertFails(t *testing.T) {
	repo := new(MockRepository)
	repo.On("InsertSettings", mock.Anything, mock.AnythingOfType("*settings.StoredSettings")).Return(nil).Maybe()
	repo.On("InsertHealthProfile", mock.Anything, mock.AnythingOfType("*settings.HealthProfile")).Return(errors.New("boom")).Once()
	repo.On("InsertThresholds", mock.Anything, mock.AnythingOfType("*settings.AlertThresholds")).Return(nil).Maybe()

	svc := newTestService(repo)
	err := svc.Initialize(context.Background(), testUserID)

	assert.Error(t, err)
}
