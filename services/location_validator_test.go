package services

import (
	"testing"
	"time"

	"geoclock/models"
	"geoclock/utils"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testArea = `[[[36.80,-1.29],[36.82,-1.29],[36.82,-1.27],[36.80,-1.27]]]`

func newTestValidator(t *testing.T) (*LocationValidator, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, time.September, 10, 9, 0, 0, 0, time.UTC))
	return NewLocationValidator(clock), clock
}

func liveLocation(clock clockwork.Clock, age time.Duration, lat, lon float64) *models.CurrentLocation {
	return &models.CurrentLocation{
		Latitude:  lat,
		Longitude: lon,
		Source:    models.SourceTelegramLive,
		IsLive:    true,
		UpdatedAt: clock.Now().UTC().Add(-age),
	}
}

func TestValidate_NoLocation(t *testing.T) {
	validator, _ := newTestValidator(t)

	verdict := validator.Validate(nil, testArea, 10, "UTC")

	assert.False(t, verdict.IsValid)
	assert.Equal(t, ErrKindNoLocation, verdict.ErrorKind)
}

func TestValidate_SharingEnded(t *testing.T) {
	validator, clock := newTestValidator(t)

	ended := clock.Now().UTC()
	location := liveLocation(clock, 2*time.Minute, -1.28, 36.81)
	location.IsLive = false
	location.EndedAt = &ended

	verdict := validator.Validate(location, testArea, 10, "UTC")

	assert.False(t, verdict.IsValid)
	assert.Equal(t, ErrKindSharingEnded, verdict.ErrorKind)
}

func TestValidate_LiveInsideArea(t *testing.T) {
	validator, clock := newTestValidator(t)

	verdict := validator.Validate(liveLocation(clock, 2*time.Minute, -1.28, 36.81), testArea, 10, "UTC")

	assert.True(t, verdict.IsValid)
	assert.Equal(t, ErrKindNone, verdict.ErrorKind)
	assert.True(t, verdict.IsLive)
	assert.Equal(t, 2, verdict.LocationAgeMinutes)
}

func TestValidate_LiveOutsideArea(t *testing.T) {
	validator, clock := newTestValidator(t)

	verdict := validator.Validate(liveLocation(clock, 2*time.Minute, -1.40, 36.70), testArea, 10, "UTC")

	assert.False(t, verdict.IsValid)
	assert.Equal(t, ErrKindOutsideArea, verdict.ErrorKind)
	require.NotNil(t, verdict.Coordinates)
	assert.Equal(t, -1.40, verdict.Coordinates.Latitude)
}

func TestValidate_BadWorkingArea(t *testing.T) {
	validator, clock := newTestValidator(t)

	verdict := validator.Validate(liveLocation(clock, time.Minute, -1.28, 36.81), "not json", 10, "UTC")

	assert.False(t, verdict.IsValid)
	assert.Equal(t, ErrKindBadWorkingArea, verdict.ErrorKind)
	assert.NotNil(t, verdict.Coordinates)
}

func TestValidate_LiveUntilExpired(t *testing.T) {
	validator, clock := newTestValidator(t)

	// Live flag still set, but the platform deadline has passed: the
	// non-live path applies and a fresh-enough location is NOT_LIVE.
	location := liveLocation(clock, 2*time.Minute, -1.28, 36.81)
	expired := clock.Now().UTC().Add(-time.Minute)
	location.LiveUntil = &expired

	verdict := validator.Validate(location, testArea, 10, "UTC")

	assert.False(t, verdict.IsValid)
	assert.Equal(t, ErrKindNotLive, verdict.ErrorKind)
	assert.False(t, verdict.IsLive)
}

func TestValidate_StaleLocation(t *testing.T) {
	validator, clock := newTestValidator(t)

	location := liveLocation(clock, 45*time.Minute, -1.28, 36.81)
	location.IsLive = false

	verdict := validator.Validate(location, testArea, 10, "UTC")

	assert.False(t, verdict.IsValid)
	assert.Equal(t, ErrKindStaleLocation, verdict.ErrorKind)
	assert.Equal(t, 45, verdict.LocationAgeMinutes)
}

func TestValidate_NotLive(t *testing.T) {
	validator, clock := newTestValidator(t)

	location := liveLocation(clock, 5*time.Minute, -1.28, 36.81)
	location.IsLive = false
	location.Source = models.SourceTelegram

	verdict := validator.Validate(location, testArea, 10, "UTC")

	assert.False(t, verdict.IsValid)
	assert.Equal(t, ErrKindNotLive, verdict.ErrorKind)
}

// Totality: exactly one verdict, and IsValid iff the kind is none.
func TestValidate_Totality(t *testing.T) {
	validator, clock := newTestValidator(t)

	ended := clock.Now().UTC()
	endedLoc := liveLocation(clock, time.Minute, -1.28, 36.81)
	endedLoc.IsLive = false
	endedLoc.EndedAt = &ended

	staleLoc := liveLocation(clock, time.Hour, -1.28, 36.81)
	staleLoc.IsLive = false

	cases := []*models.CurrentLocation{
		nil,
		endedLoc,
		staleLoc,
		liveLocation(clock, time.Minute, -1.28, 36.81),
		liveLocation(clock, time.Minute, 50.0, 50.0),
	}

	for _, location := range cases {
		verdict := validator.Validate(location, testArea, 10, "UTC")
		assert.Equal(t, verdict.IsValid, verdict.ErrorKind == ErrKindNone)
	}
}

func TestActionableKinds(t *testing.T) {
	actionable := []ValidationErrorKind{
		ErrKindOutsideArea, ErrKindNotLive, ErrKindSharingEnded, ErrKindStaleLocation,
	}
	for _, kind := range actionable {
		assert.True(t, kind.Actionable(), string(kind))
	}

	notActionable := []ValidationErrorKind{
		ErrKindNone, ErrKindNoLocation, ErrKindBadWorkingArea,
	}
	for _, kind := range notActionable {
		assert.False(t, kind.Actionable(), string(kind))
	}
}

func TestValidate_StaleMessageMentionsAge(t *testing.T) {
	validator, clock := newTestValidator(t)

	location := liveLocation(clock, 45*time.Minute, -1.28, 36.81)
	location.IsLive = false

	verdict := validator.Validate(location, testArea, 10, utils.DefaultTimezone)
	assert.Contains(t, verdict.ErrorMessage, "45 minutes ago")
}
