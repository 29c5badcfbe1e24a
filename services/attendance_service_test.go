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

func newTestAttendanceService(t *testing.T) (*AttendanceService, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, time.September, 10, 17, 30, 0, 0, time.UTC))
	return NewAttendanceService(nil, clock), clock
}

func openAttendance(clock clockwork.Clock, hoursAgo float64) *models.Attendance {
	clockIn := clock.Now().UTC().Add(-time.Duration(hoursAgo * float64(time.Hour)))
	return &models.Attendance{
		ID:                   "att-1",
		UID:                  "emp-1",
		Year:                 2025,
		Month:                "September",
		MonthlyWorkedHours:   40,
		LastClockInTimestamp: &clockIn,
		Values:               make(models.DailyValues, 31),
	}
}

func TestApplyAutoClockOut_StateConsistency(t *testing.T) {
	service, clock := newTestAttendanceService(t)
	attendance := openAttendance(clock, 8.5)

	hours, err := service.ApplyAutoClockOut(attendance, "UTC")
	require.NoError(t, err)
	assert.InDelta(t, 8.5, hours, 1e-9)

	// Clock-in was at 09:00 UTC on the 10th.
	assert.Nil(t, attendance.LastClockInTimestamp)
	assert.InDelta(t, 48.5, attendance.MonthlyWorkedHours, 1e-9)

	day := attendance.Values[9]
	require.NotNil(t, day)
	assert.Equal(t, 10, day.Day)
	require.NotNil(t, day.Value)
	assert.Equal(t, models.ValueAbsent, *day.Value)
	assert.Equal(t, models.StatusSubmitted, day.Status)
	assert.InDelta(t, 8.5, day.DailyWorkedHours, 1e-9)

	require.NotEmpty(t, day.WorkedHours)
	last := day.WorkedHours[len(day.WorkedHours)-1]
	assert.Equal(t, models.EntryClockOut, last.Type)
	assert.Equal(t, clock.Now().UTC(), last.Timestamp)
	assert.Equal(t, "5:30 PM", last.Hour)
	assert.NotEmpty(t, last.ID)
}

func TestApplyAutoClockOut_NoPriorClockIn(t *testing.T) {
	service, _ := newTestAttendanceService(t)

	attendance := &models.Attendance{UID: "emp-1", Values: make(models.DailyValues, 31)}
	_, err := service.ApplyAutoClockOut(attendance, "UTC")

	require.Error(t, err)
	serviceErr, ok := utils.GetServiceError(err)
	require.True(t, ok)
	assert.Equal(t, utils.ErrCodeNoPriorClockIn, serviceErr.Code)
}

func TestApplyAutoClockOut_ExistingDayPreserved(t *testing.T) {
	service, clock := newTestAttendanceService(t)
	attendance := openAttendance(clock, 2)

	clockInEntry := models.WorkedHoursEntry{
		ID:        "entry-1",
		Timestamp: attendance.LastClockInTimestamp.UTC(),
		Type:      models.EntryClockIn,
		Hour:      "3:30 PM",
	}
	attendance.Values[9] = &models.DailyAttendance{
		ID:               "day-10",
		Day:              10,
		Status:           models.StatusNA,
		DailyWorkedHours: 3,
		WorkedHours:      []models.WorkedHoursEntry{clockInEntry},
	}

	_, err := service.ApplyAutoClockOut(attendance, "UTC")
	require.NoError(t, err)

	day := attendance.Values[9]
	assert.Equal(t, "day-10", day.ID)
	assert.InDelta(t, 5, day.DailyWorkedHours, 1e-9)
	require.Len(t, day.WorkedHours, 2)
	assert.Equal(t, models.EntryClockIn, day.WorkedHours[0].Type)
	assert.Equal(t, models.EntryClockOut, day.WorkedHours[1].Type)
}

func TestApplyAutoClockOut_ShortValuesArrayExtended(t *testing.T) {
	service, clock := newTestAttendanceService(t)

	attendance := openAttendance(clock, 1)
	attendance.Values = models.DailyValues{} // sparse document with no days yet

	_, err := service.ApplyAutoClockOut(attendance, "UTC")
	require.NoError(t, err)

	require.Len(t, attendance.Values, 10) // dense through day index 9
	require.NotNil(t, attendance.Values[9])
	assert.Nil(t, attendance.Values[0])
}

func TestApplyAutoClockOut_LocalizedHour(t *testing.T) {
	service, clock := newTestAttendanceService(t)
	attendance := openAttendance(clock, 1)

	_, err := service.ApplyAutoClockOut(attendance, "Africa/Nairobi")
	require.NoError(t, err)

	day := attendance.Values[9]
	last := day.WorkedHours[len(day.WorkedHours)-1]
	// 17:30 UTC is 20:30 in Nairobi (UTC+3).
	assert.Equal(t, "8:30 PM", last.Hour)
}

func TestLastClockOut(t *testing.T) {
	service, clock := newTestAttendanceService(t)

	attendance := openAttendance(clock, 2)
	assert.Nil(t, LastClockOut(attendance))

	outAt := clock.Now().UTC().Add(-time.Minute)
	attendance.Values[9] = &models.DailyAttendance{
		Day: 10,
		WorkedHours: []models.WorkedHoursEntry{
			{Type: models.EntryClockIn, Timestamp: outAt.Add(-time.Hour)},
			{Type: models.EntryClockOut, Timestamp: outAt},
		},
	}

	got := LastClockOut(attendance)
	require.NotNil(t, got)
	assert.Equal(t, outAt, *got)

	// No open clock-in means no dedup target.
	_, err := service.ApplyAutoClockOut(attendance, "UTC")
	require.NoError(t, err)
	assert.Nil(t, LastClockOut(attendance))
}
