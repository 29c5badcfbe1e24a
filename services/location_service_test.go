package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"geoclock/models"
	"geoclock/utils"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type locationUpdate struct {
	ProjectName string
	EmployeeID  string
	Location    *models.CurrentLocation
	LastChanged time.Time
}

// locationStoreRecorder fakes the store surface: one linkable employee,
// recorded writes, injectable failures.
type locationStoreRecorder struct {
	employee    *models.Employee
	projectName string

	updates []locationUpdate
	logs    []*models.LocationLog

	updateErr error
	logErr    error
}

func (r *locationStoreRecorder) FindEmployeeByChat(_ context.Context, chatID string) (*models.Employee, string, error) {
	if r.employee != nil && r.employee.TelegramChatID == chatID {
		return r.employee, r.projectName, nil
	}
	return nil, "", nil
}

func (r *locationStoreRecorder) UpdateCurrentLocation(_ context.Context, projectName, employeeID string, location *models.CurrentLocation, lastChanged time.Time) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updates = append(r.updates, locationUpdate{projectName, employeeID, location, lastChanged})
	return nil
}

func (r *locationStoreRecorder) AppendLocationLog(_ context.Context, _ string, log *models.LocationLog) error {
	if r.logErr != nil {
		return r.logErr
	}
	r.logs = append(r.logs, log)
	return nil
}

type locationFixture struct {
	service  *LocationService
	store    *locationStoreRecorder
	registry *LiveRegistry
	sessions *SessionService
	clock    *clockwork.FakeClock
}

func newLocationFixture(t *testing.T) *locationFixture {
	t.Helper()

	clock := clockwork.NewFakeClockAt(time.Date(2025, time.September, 10, 9, 0, 0, 0, time.UTC))
	store := &locationStoreRecorder{
		employee: &models.Employee{
			ID:             "emp-id-1",
			UID:            "emp-1",
			TelegramChatID: "100",
		},
		projectName: "default",
	}
	registry := NewLiveRegistry(clock)
	sessions := NewSessionService()

	return &locationFixture{
		service:  NewLocationService(store, registry, sessions, nil, clock),
		store:    store,
		registry: registry,
		sessions: sessions,
		clock:    clock,
	}
}

func locationEvent(chatID int64, messageID int) models.LocationEvent {
	return models.LocationEvent{
		ChatID:    chatID,
		MessageID: messageID,
		Latitude:  -1.28,
		Longitude: 36.81,
	}
}

func TestOnLocationEvent_UnresolvedChatDropped(t *testing.T) {
	fx := newLocationFixture(t)

	err := fx.service.OnLocationEvent(context.Background(), locationEvent(999, 1))

	require.Error(t, err)
	serviceErr, ok := utils.GetServiceError(err)
	require.True(t, ok)
	assert.Equal(t, utils.ErrCodeContextUnresolved, serviceErr.Code)

	assert.Empty(t, fx.store.updates)
	assert.Empty(t, fx.store.logs)
	assert.Equal(t, 0, fx.registry.Len())
}

func TestOnLocationEvent_LiveShareReduction(t *testing.T) {
	fx := newLocationFixture(t)

	event := locationEvent(100, 7)
	event.LivePeriodSeconds = 600
	event.Accuracy = utils.Float64Ptr(12.5)
	event.Heading = utils.Float64Ptr(90)
	event.Speed = utils.Float64Ptr(1.4)

	require.NoError(t, fx.service.OnLocationEvent(context.Background(), event))

	require.Len(t, fx.store.updates, 1)
	update := fx.store.updates[0]
	assert.Equal(t, "default", update.ProjectName)
	assert.Equal(t, "emp-id-1", update.EmployeeID)

	location := update.Location
	assert.Equal(t, models.SourceTelegramLive, location.Source)
	assert.True(t, location.IsLive)
	assert.Equal(t, "7", location.LiveMessageID)
	assert.Equal(t, "100", location.LiveChatID)
	require.NotNil(t, location.LiveUntil)
	assert.Equal(t, fx.clock.Now().Add(10*time.Minute), *location.LiveUntil)
	assert.Nil(t, location.EndedAt)
	require.NotNil(t, location.Speed)
	assert.Equal(t, 1.4, *location.Speed)

	require.Len(t, fx.store.logs, 1)
	log := fx.store.logs[0]
	assert.Equal(t, models.SourceTelegramLive, log.Source)
	require.NotNil(t, log.LivePeriodSeconds)
	assert.Equal(t, 600, *log.LivePeriodSeconds)

	assert.Equal(t, 1, fx.registry.Len())
}

func TestOnLocationEvent_StaticShareReduction(t *testing.T) {
	fx := newLocationFixture(t)

	require.NoError(t, fx.service.OnLocationEvent(context.Background(), locationEvent(100, 8)))

	require.Len(t, fx.store.updates, 1)
	location := fx.store.updates[0].Location
	assert.Equal(t, models.SourceTelegram, location.Source)
	assert.False(t, location.IsLive)
	assert.Nil(t, location.LiveUntil)
	assert.Nil(t, location.EndedAt)
	assert.Nil(t, location.Speed)

	require.Len(t, fx.store.logs, 1)
	assert.Nil(t, fx.store.logs[0].LivePeriodSeconds)

	// A static share never enters the live registry.
	assert.Equal(t, 0, fx.registry.Len())
}

func TestOnLocationEvent_LogAppendBestEffort(t *testing.T) {
	fx := newLocationFixture(t)
	fx.store.logErr = errors.New("log collection unavailable")

	err := fx.service.OnLocationEvent(context.Background(), locationEvent(100, 9))

	require.NoError(t, err)
	require.Len(t, fx.store.updates, 1)
	assert.Empty(t, fx.store.logs)
}

func TestOnLocationEvent_UpdateFailure(t *testing.T) {
	fx := newLocationFixture(t)
	fx.store.updateErr = errors.New("mongo down")

	err := fx.service.OnLocationEvent(context.Background(), locationEvent(100, 10))

	require.Error(t, err)
	serviceErr, ok := utils.GetServiceError(err)
	require.True(t, ok)
	assert.Equal(t, utils.ErrCodeWriteFailed, serviceErr.Code)
	assert.Empty(t, fx.store.logs)
}

func TestOnLocationEvent_SessionMapShortCircuitsLookup(t *testing.T) {
	fx := newLocationFixture(t)
	fx.store.employee = nil // store knows nothing; only the session map does
	fx.sessions.Upsert(200, models.EmployeeContext{
		EmployeeID:  "emp-id-2",
		UID:         "emp-2",
		ProjectName: "acme",
	})

	require.NoError(t, fx.service.OnLocationEvent(context.Background(), locationEvent(200, 1)))

	require.Len(t, fx.store.updates, 1)
	assert.Equal(t, "acme", fx.store.updates[0].ProjectName)
	assert.Equal(t, "emp-id-2", fx.store.updates[0].EmployeeID)
}
