package models

import (
	"time"
)

// Location sources.
const (
	SourceTelegram     = "telegram"
	SourceTelegramLive = "telegram_live"
)

// CurrentLocation is the single latest reduction of all observed chat
// location events for an employee.
//
// Invariants: IsLive implies EndedAt == nil; EndedAt != nil implies
// IsLive == false; LiveUntil, when set, is not before UpdatedAt. A finalized
// session is never revived by stale updates.
type CurrentLocation struct {
	Latitude  float64 `json:"latitude" bson:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" bson:"longitude" validate:"gte=-180,lte=180"`

	Accuracy *float64 `json:"accuracy" bson:"accuracy"` // meters, nil when unknown
	Heading  *float64 `json:"heading" bson:"heading"`   // degrees, nil when unknown
	Speed    *float64 `json:"speed" bson:"speed"`       // m/s, nil when unknown

	Source string `json:"source" bson:"source"` // telegram, telegram_live
	IsLive bool   `json:"isLive" bson:"isLive"`

	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`

	// Correlation identifiers for the live session.
	LiveMessageID string `json:"liveMessageId,omitempty" bson:"liveMessageId,omitempty"`
	LiveChatID    string `json:"liveChatId,omitempty" bson:"liveChatId,omitempty"`

	LiveUntil *time.Time `json:"liveUntil" bson:"liveUntil"` // nil when duration unknown
	EndedAt   *time.Time `json:"endedAt" bson:"endedAt"`     // nil while the session is active
}

// LocationLog is one append-only record per observed chat location event.
type LocationLog struct {
	ID         string `json:"id" bson:"_id,omitempty"`
	EmployeeID string `json:"employeeId" bson:"employeeId"`

	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
	Source    string  `json:"source" bson:"source"`

	ChatID    int64 `json:"chatId" bson:"chatId"`
	MessageID int   `json:"messageId" bson:"messageId"`

	LivePeriodSeconds *int `json:"livePeriodSeconds" bson:"livePeriodSeconds"`

	EventTimestamp time.Time `json:"eventTimestamp" bson:"eventTimestamp"`
	CreatedAt      time.Time `json:"createdAt" bson:"createdAt"`
}

// LocationEvent is one inbound chat-transport event, already reduced to the
// fields the ingestion path cares about.
type LocationEvent struct {
	ChatID    int64
	MessageID int

	Latitude  float64
	Longitude float64
	Accuracy  *float64
	Heading   *float64
	Speed     *float64

	// LivePeriodSeconds is 0 when the event carried no live period.
	LivePeriodSeconds int

	// IsEdit is true for edited_message updates, the platform's signal that
	// this event belongs to a live stream in progress.
	IsEdit bool
}
