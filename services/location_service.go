package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"geoclock/models"
	"geoclock/utils"

	"github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

const chatContextTTL = 10 * time.Minute

// LocationStore is the store surface the ingestion path needs. Implemented by
// ManagerLocationStore over the project manager; narrowed to an interface so
// ingestion is testable.
type LocationStore interface {
	// FindEmployeeByChat returns the employee linked to the chat and the
	// project it lives in, or nil when no project knows the chat.
	FindEmployeeByChat(ctx context.Context, chatID string) (*models.Employee, string, error)
	UpdateCurrentLocation(ctx context.Context, projectName, employeeID string, location *models.CurrentLocation, lastChanged time.Time) error
	AppendLocationLog(ctx context.Context, projectName string, log *models.LocationLog) error
}

// LocationService translates chat-transport location events into registry
// and store writes.
type LocationService struct {
	store    LocationStore
	registry *LiveRegistry
	sessions *SessionService
	redis    *redis.Client // optional chat-context cache
	clock    clockwork.Clock
}

func NewLocationService(store LocationStore, registry *LiveRegistry, sessions *SessionService, redisClient *redis.Client, clock clockwork.Clock) *LocationService {
	return &LocationService{
		store:    store,
		registry: registry,
		sessions: sessions,
		redis:    redisClient,
		clock:    clock,
	}
}

// OnLocationEvent ingests one location event: resolve the employee behind
// the chat, update the live registry, reduce to currentLocation, and append
// a log record. An unresolvable chat drops the event with a warning.
func (ls *LocationService) OnLocationEvent(ctx context.Context, event models.LocationEvent) error {
	empCtx, err := ls.resolveContext(ctx, event.ChatID)
	if err != nil {
		logrus.Warnf("Dropping location event for chat %d: %v", event.ChatID, err)
		return err
	}

	key := SessionKey{ChatID: event.ChatID, MessageID: event.MessageID}
	upsert := ls.registry.Upsert(key, empCtx.EmployeeID, empCtx.ProjectName, event.LivePeriodSeconds, event.IsEdit)

	now := ls.clock.Now().UTC()

	source := models.SourceTelegram
	if upsert.IsLive {
		source = models.SourceTelegramLive
	}

	location := &models.CurrentLocation{
		Latitude:      event.Latitude,
		Longitude:     event.Longitude,
		Accuracy:      event.Accuracy,
		Heading:       event.Heading,
		Speed:         event.Speed,
		Source:        source,
		IsLive:        upsert.IsLive,
		UpdatedAt:     now,
		LiveMessageID: strconv.Itoa(event.MessageID),
		LiveChatID:    strconv.FormatInt(event.ChatID, 10),
		LiveUntil:     upsert.LiveUntil,
		EndedAt:       nil,
	}

	err = ls.store.UpdateCurrentLocation(ctx, empCtx.ProjectName, empCtx.EmployeeID, location, now)
	if err != nil {
		return utils.NewWriteFailedError("update current location", err)
	}

	// Log append is best-effort; a failure must not fail the event.
	livePeriod := (*int)(nil)
	if event.LivePeriodSeconds > 0 {
		p := event.LivePeriodSeconds
		livePeriod = &p
	}

	logErr := ls.store.AppendLocationLog(ctx, empCtx.ProjectName, &models.LocationLog{
		EmployeeID:        empCtx.EmployeeID,
		Latitude:          event.Latitude,
		Longitude:         event.Longitude,
		Source:            source,
		ChatID:            event.ChatID,
		MessageID:         event.MessageID,
		LivePeriodSeconds: livePeriod,
		EventTimestamp:    now,
	})
	if logErr != nil {
		logrus.Errorf("Failed to append location log for employee %s: %v", empCtx.EmployeeID, logErr)
	}

	logrus.WithFields(logrus.Fields{
		"uid":    empCtx.UID,
		"isLive": upsert.IsLive,
		"source": source,
	}).Debug("Location event ingested")

	return nil
}

// resolveContext finds the employee behind a chat id: the in-process session
// map first, then the Redis cache, then the store scan.
func (ls *LocationService) resolveContext(ctx context.Context, chatID int64) (*models.EmployeeContext, error) {
	if empCtx, ok := ls.sessions.Get(chatID); ok {
		return empCtx, nil
	}

	if empCtx := ls.cacheGet(ctx, chatID); empCtx != nil {
		return empCtx, nil
	}

	employee, projectName, err := ls.store.FindEmployeeByChat(ctx, strconv.FormatInt(chatID, 10))
	if err != nil {
		logrus.Warnf("Chat lookup failed for chat %d: %v", chatID, err)
	}
	if employee == nil {
		return nil, utils.NewContextUnresolvedError(chatID)
	}

	empCtx := &models.EmployeeContext{
		EmployeeID:  employee.ID,
		UID:         employee.UID,
		ProjectName: projectName,
	}
	ls.cacheSet(ctx, chatID, empCtx)
	return empCtx, nil
}

func chatContextKey(chatID int64) string {
	return fmt.Sprintf("chatctx:%d", chatID)
}

func (ls *LocationService) cacheGet(ctx context.Context, chatID int64) *models.EmployeeContext {
	if ls.redis == nil {
		return nil
	}

	raw, err := ls.redis.Get(ctx, chatContextKey(chatID)).Result()
	if err != nil {
		if err != redis.Nil {
			logrus.Debugf("Chat-context cache read failed: %v", err)
		}
		return nil
	}

	var empCtx models.EmployeeContext
	if err := json.Unmarshal([]byte(raw), &empCtx); err != nil {
		return nil
	}
	return &empCtx
}

func (ls *LocationService) cacheSet(ctx context.Context, chatID int64, empCtx *models.EmployeeContext) {
	if ls.redis == nil {
		return
	}

	raw, err := json.Marshal(empCtx)
	if err != nil {
		return
	}
	if err := ls.redis.Set(ctx, chatContextKey(chatID), raw, chatContextTTL).Err(); err != nil {
		logrus.Debugf("Chat-context cache write failed: %v", err)
	}
}
