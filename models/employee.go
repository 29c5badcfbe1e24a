package models

import (
	"time"
)

// Employee is the subset of the employee document the enforcer reads and
// writes. Documents are owned by the attendance product; the enforcer only
// touches currentLocation and lastChanged.
type Employee struct {
	ID  string `json:"id" bson:"_id,omitempty"`
	UID string `json:"uid" bson:"uid"`

	Name           string `json:"name" bson:"name"`
	TelegramChatID string `json:"telegramChatID,omitempty" bson:"telegramChatID,omitempty"`

	// WorkingArea is a JSON-encoded multi-polygon; empty means the employee
	// is exempt from geofence enforcement.
	WorkingArea string `json:"workingArea,omitempty" bson:"workingArea,omitempty"`

	// Timezone is an IANA zone name; empty falls back to DEFAULT_TZ.
	Timezone string `json:"timezone,omitempty" bson:"timezone,omitempty"`

	ReportingLineManager string `json:"reportingLineManager,omitempty" bson:"reportingLineManager,omitempty"`

	CurrentLocation *CurrentLocation `json:"currentLocation,omitempty" bson:"currentLocation,omitempty"`

	LastChanged time.Time `json:"lastChanged,omitempty" bson:"lastChanged,omitempty"`
}

// EmployeeContext identifies an employee within a specific project database.
// It is what chat-context resolution produces for the ingestion path.
type EmployeeContext struct {
	EmployeeID  string `json:"employeeId"`
	UID         string `json:"uid"`
	ProjectName string `json:"projectName"`
}
