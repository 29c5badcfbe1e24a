package services

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// LiveGrace is the tolerance for absent live updates before the sweeper
// finalizes a session.
const LiveGrace = 120 * time.Second

// SessionKey identifies a live-location stream on the chat platform.
type SessionKey struct {
	ChatID    int64
	MessageID int
}

// LiveSession is one in-memory registry entry.
type LiveSession struct {
	EmployeeID  string
	ProjectName string

	// LiveUntil is when the platform says sharing ends; nil when the
	// duration is unknown (session created from an edit event).
	LiveUntil *time.Time

	LastUpdate time.Time
}

// UpsertResult tells the ingestion path how the event affected liveness.
type UpsertResult struct {
	IsLive    bool
	LiveUntil *time.Time
}

// FinalizeFunc marks an employee's live session as ended in the store.
type FinalizeFunc func(ctx context.Context, projectName, employeeID string, endedAt time.Time) error

// LiveRegistry is the process-wide map of active live shares. All access is
// serialized through a single mutex; the underlying map is never exposed.
type LiveRegistry struct {
	clock    clockwork.Clock
	mutex    sync.Mutex
	sessions map[SessionKey]*LiveSession
}

func NewLiveRegistry(clock clockwork.Clock) *LiveRegistry {
	return &LiveRegistry{
		clock:    clock,
		sessions: make(map[SessionKey]*LiveSession),
	}
}

// Upsert applies the per-event registry rules:
//   - a positive live period (re)creates the entry with a fresh deadline;
//   - an event for a known entry advances LastUpdate, keeping the deadline;
//   - an edit for an unknown entry creates an open-ended session;
//   - a static share with no prior entry leaves the registry untouched.
func (r *LiveRegistry) Upsert(key SessionKey, employeeID, projectName string, livePeriodSeconds int, isEdit bool) UpsertResult {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := r.clock.Now()

	if livePeriodSeconds > 0 {
		until := now.Add(time.Duration(livePeriodSeconds) * time.Second)
		r.sessions[key] = &LiveSession{
			EmployeeID:  employeeID,
			ProjectName: projectName,
			LiveUntil:   &until,
			LastUpdate:  now,
		}
		return UpsertResult{IsLive: true, LiveUntil: &until}
	}

	if session, ok := r.sessions[key]; ok {
		session.LastUpdate = now
		return UpsertResult{IsLive: true, LiveUntil: session.LiveUntil}
	}

	if isEdit {
		r.sessions[key] = &LiveSession{
			EmployeeID:  employeeID,
			ProjectName: projectName,
			LiveUntil:   nil,
			LastUpdate:  now,
		}
		return UpsertResult{IsLive: true}
	}

	return UpsertResult{IsLive: false}
}

// Get returns a copy of the entry for the key.
func (r *LiveRegistry) Get(key SessionKey) (LiveSession, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	session, ok := r.sessions[key]
	if !ok {
		return LiveSession{}, false
	}
	return *session, true
}

// Delete removes the entry for the key.
func (r *LiveRegistry) Delete(key SessionKey) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.sessions, key)
}

// ForEach calls fn with a snapshot of every entry.
func (r *LiveRegistry) ForEach(fn func(key SessionKey, session LiveSession)) {
	for key, session := range r.snapshot() {
		fn(key, session)
	}
}

// Len returns the number of active entries.
func (r *LiveRegistry) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.sessions)
}

func (r *LiveRegistry) snapshot() map[SessionKey]LiveSession {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	out := make(map[SessionKey]LiveSession, len(r.sessions))
	for key, session := range r.sessions {
		out[key] = *session
	}
	return out
}

// SweepOnce finalizes every entry whose deadline has passed. The deadline is
// the earlier of the platform's live-until and the last update plus the
// grace window. Finalization is best-effort: a store failure leaves the
// entry in place for the next sweep. Returns the number of finalized
// sessions.
func (r *LiveRegistry) SweepOnce(ctx context.Context, finalize FinalizeFunc) int {
	now := r.clock.Now()
	finalized := 0

	for key, session := range r.snapshot() {
		threshold := session.LastUpdate.Add(LiveGrace)
		if session.LiveUntil != nil && session.LiveUntil.Before(threshold) {
			threshold = *session.LiveUntil
		}

		if now.Before(threshold) {
			continue
		}

		endedAt := now.UTC()
		if err := finalize(ctx, session.ProjectName, session.EmployeeID, endedAt); err != nil {
			logrus.WithFields(logrus.Fields{
				"project":    session.ProjectName,
				"employeeId": session.EmployeeID,
				"chatId":     key.ChatID,
				"messageId":  key.MessageID,
			}).Errorf("Failed to finalize live session, will retry next sweep: %v", err)
			continue
		}

		r.Delete(key)
		finalized++

		logrus.WithFields(logrus.Fields{
			"employeeId": session.EmployeeID,
			"chatId":     key.ChatID,
			"messageId":  key.MessageID,
		}).Info("Live location session finalized")
	}

	return finalized
}
