package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type finalizeCall struct {
	ProjectName string
	EmployeeID  string
	EndedAt     time.Time
}

type finalizeRecorder struct {
	calls []finalizeCall
	err   error
}

func (f *finalizeRecorder) finalize(_ context.Context, projectName, employeeID string, endedAt time.Time) error {
	f.calls = append(f.calls, finalizeCall{projectName, employeeID, endedAt})
	return f.err
}

func newTestRegistry(t *testing.T) (*LiveRegistry, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, time.September, 10, 9, 0, 0, 0, time.UTC))
	return NewLiveRegistry(clock), clock
}

func TestUpsert_WithLivePeriodCreatesDeadline(t *testing.T) {
	registry, clock := newTestRegistry(t)
	key := SessionKey{ChatID: 100, MessageID: 1}

	result := registry.Upsert(key, "emp-1", "default", 600, false)

	assert.True(t, result.IsLive)
	require.NotNil(t, result.LiveUntil)
	assert.Equal(t, clock.Now().Add(10*time.Minute), *result.LiveUntil)

	session, ok := registry.Get(key)
	require.True(t, ok)
	assert.Equal(t, "emp-1", session.EmployeeID)
}

func TestUpsert_ExistingEntryAdvancesLastUpdateOnly(t *testing.T) {
	registry, clock := newTestRegistry(t)
	key := SessionKey{ChatID: 100, MessageID: 1}

	first := registry.Upsert(key, "emp-1", "default", 600, false)
	clock.Advance(3 * time.Minute)
	second := registry.Upsert(key, "emp-1", "default", 0, true)

	assert.True(t, second.IsLive)
	require.NotNil(t, second.LiveUntil)
	assert.Equal(t, *first.LiveUntil, *second.LiveUntil) // deadline preserved

	session, _ := registry.Get(key)
	assert.Equal(t, clock.Now(), session.LastUpdate)
}

func TestUpsert_EditForUnknownKeyCreatesOpenEndedSession(t *testing.T) {
	registry, _ := newTestRegistry(t)
	key := SessionKey{ChatID: 100, MessageID: 7}

	result := registry.Upsert(key, "emp-1", "default", 0, true)

	assert.True(t, result.IsLive)
	assert.Nil(t, result.LiveUntil)
	assert.Equal(t, 1, registry.Len())
}

func TestUpsert_StaticShareLeavesRegistryUntouched(t *testing.T) {
	registry, _ := newTestRegistry(t)

	result := registry.Upsert(SessionKey{ChatID: 100, MessageID: 2}, "emp-1", "default", 0, false)

	assert.False(t, result.IsLive)
	assert.Equal(t, 0, registry.Len())
}

func TestSweepOnce_FinalizesByDuration(t *testing.T) {
	registry, clock := newTestRegistry(t)
	key := SessionKey{ChatID: 100, MessageID: 1}

	// 60-second live share, no further events: the deadline is the live
	// period, which is shorter than the grace window.
	registry.Upsert(key, "emp-1", "default", 60, false)
	recorder := &finalizeRecorder{}

	clock.Advance(30 * time.Second)
	assert.Equal(t, 0, registry.SweepOnce(context.Background(), recorder.finalize))

	clock.Advance(31 * time.Second)
	finalized := registry.SweepOnce(context.Background(), recorder.finalize)

	assert.Equal(t, 1, finalized)
	require.Len(t, recorder.calls, 1)
	assert.Equal(t, "emp-1", recorder.calls[0].EmployeeID)
	assert.Equal(t, 0, registry.Len())
}

func TestSweepOnce_OpenEndedSessionFinalizedAfterGrace(t *testing.T) {
	registry, clock := newTestRegistry(t)
	key := SessionKey{ChatID: 100, MessageID: 1}

	registry.Upsert(key, "emp-1", "default", 0, true) // unknown duration
	recorder := &finalizeRecorder{}

	clock.Advance(LiveGrace - time.Second)
	assert.Equal(t, 0, registry.SweepOnce(context.Background(), recorder.finalize))

	clock.Advance(2 * time.Second)
	assert.Equal(t, 1, registry.SweepOnce(context.Background(), recorder.finalize))
}

func TestSweepOnce_UpdatesPushGraceWindow(t *testing.T) {
	registry, clock := newTestRegistry(t)
	key := SessionKey{ChatID: 100, MessageID: 1}

	registry.Upsert(key, "emp-1", "default", 0, true)

	clock.Advance(90 * time.Second)
	registry.Upsert(key, "emp-1", "default", 0, true) // edit refreshes LastUpdate

	clock.Advance(90 * time.Second)
	// 180s since creation but only 90s since the last edit: still alive.
	assert.Equal(t, 0, registry.SweepOnce(context.Background(), (&finalizeRecorder{}).finalize))
}

func TestSweepOnce_StoreFailureLeavesEntry(t *testing.T) {
	registry, clock := newTestRegistry(t)
	key := SessionKey{ChatID: 100, MessageID: 1}

	registry.Upsert(key, "emp-1", "default", 60, false)
	recorder := &finalizeRecorder{err: errors.New("mongo down")}

	clock.Advance(5 * time.Minute)
	assert.Equal(t, 0, registry.SweepOnce(context.Background(), recorder.finalize))
	assert.Equal(t, 1, registry.Len()) // retried next sweep

	recorder.err = nil
	assert.Equal(t, 1, registry.SweepOnce(context.Background(), recorder.finalize))
	assert.Equal(t, 0, registry.Len())
}

func TestSweepOnce_DeadlineIsEarlierOfPeriodAndGrace(t *testing.T) {
	registry, clock := newTestRegistry(t)

	// Live period longer than the grace window, no updates: grace wins.
	registry.Upsert(SessionKey{ChatID: 1, MessageID: 1}, "emp-1", "default", 3600, false)
	recorder := &finalizeRecorder{}

	clock.Advance(LiveGrace + time.Second)
	assert.Equal(t, 1, registry.SweepOnce(context.Background(), recorder.finalize))
}
