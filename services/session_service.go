package services

import (
	"sync"

	"geoclock/models"
)

// SessionService is the process-wide chat-session map: chat id to the
// employee context resolved during linking. The ingestion path only reads
// it; the linking flow writes it. The underlying map is never exposed.
type SessionService struct {
	mutex    sync.RWMutex
	sessions map[int64]*models.EmployeeContext
}

func NewSessionService() *SessionService {
	return &SessionService{
		sessions: make(map[int64]*models.EmployeeContext),
	}
}

// Get returns the employee context linked to the chat, if any.
func (ss *SessionService) Get(chatID int64) (*models.EmployeeContext, bool) {
	ss.mutex.RLock()
	defer ss.mutex.RUnlock()

	ctx, ok := ss.sessions[chatID]
	if !ok {
		return nil, false
	}
	clone := *ctx
	return &clone, true
}

// Upsert stores the employee context for the chat.
func (ss *SessionService) Upsert(chatID int64, ctx models.EmployeeContext) {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()
	ss.sessions[chatID] = &ctx
}

// Delete unlinks the chat.
func (ss *SessionService) Delete(chatID int64) {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()
	delete(ss.sessions, chatID)
}

// ForEach calls fn with a snapshot of every linked chat.
func (ss *SessionService) ForEach(fn func(chatID int64, ctx models.EmployeeContext)) {
	ss.mutex.RLock()
	snapshot := make(map[int64]models.EmployeeContext, len(ss.sessions))
	for chatID, ctx := range ss.sessions {
		snapshot[chatID] = *ctx
	}
	ss.mutex.RUnlock()

	for chatID, ctx := range snapshot {
		fn(chatID, ctx)
	}
}
