package models

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Attendance classification codes.
const (
	ValuePresent     = "P"
	ValueHalfPresent = "H"
	ValueAbsent      = "A"
)

// Daily attendance statuses.
const (
	StatusNA        = "N/A"
	StatusSubmitted = "Submitted"
)

// Worked-hours entry types.
const (
	EntryClockIn  = "Clock In"
	EntryClockOut = "Clock Out"
)

// WorkedHoursEntry is one clock-in or clock-out mark inside a day. Entries
// are appended in event order, which is monotonic in Timestamp by
// construction.
type WorkedHoursEntry struct {
	ID        string    `json:"id" bson:"id"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	Type      string    `json:"type" bson:"type"` // Clock In, Clock Out
	Hour      string    `json:"hour" bson:"hour"` // localized "h:mm AM/PM"
}

// DailyAttendance is one day's record inside the monthly values array.
type DailyAttendance struct {
	ID               string             `json:"id" bson:"id"`
	Day              int                `json:"day" bson:"day"`
	Value            *string            `json:"value" bson:"value"` // P, H, A or nil
	Timestamp        *time.Time         `json:"timestamp" bson:"timestamp"`
	From             string             `json:"from,omitempty" bson:"from,omitempty"`
	To               string             `json:"to,omitempty" bson:"to,omitempty"`
	Status           string             `json:"status" bson:"status"`
	DailyWorkedHours float64            `json:"dailyWorkedHours" bson:"dailyWorkedHours"`
	WorkedHours      []WorkedHoursEntry `json:"workedHours" bson:"workedHours"`
}

// DailyValues is the per-month values array, indexed by day-of-month minus
// one. Older documents may have the field serialized as an object with
// numeric string keys instead of an array; unmarshalling normalizes both
// shapes to a dense slice, preserving indices, and marshalling always writes
// an array.
type DailyValues []*DailyAttendance

// UnmarshalBSONValue accepts either an array or a numeric-keyed document.
func (v *DailyValues) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	switch t {
	case bson.TypeNull, bson.TypeUndefined:
		*v = nil
		return nil
	case bson.TypeArray:
		var arr []*DailyAttendance
		if err := bson.UnmarshalValue(bson.TypeArray, data, &arr); err != nil {
			return err
		}
		*v = arr
		return nil
	case bson.TypeEmbeddedDocument:
		var byKey map[string]*DailyAttendance
		if err := bson.Unmarshal(data, &byKey); err != nil {
			return err
		}
		indices := make([]int, 0, len(byKey))
		maxIdx := -1
		for k := range byKey {
			idx, err := strconv.Atoi(k)
			if err != nil || idx < 0 {
				return fmt.Errorf("values: non-numeric day key %q", k)
			}
			indices = append(indices, idx)
			if idx > maxIdx {
				maxIdx = idx
			}
		}
		sort.Ints(indices)
		dense := make(DailyValues, maxIdx+1)
		for _, idx := range indices {
			dense[idx] = byKey[strconv.Itoa(idx)]
		}
		*v = dense
		return nil
	default:
		return fmt.Errorf("values: unsupported BSON type %s", t)
	}
}

// Clone returns a shallow copy of the slice so a mutation pass can build the
// written array without aliasing the source document.
func (v DailyValues) Clone() DailyValues {
	out := make(DailyValues, len(v))
	copy(out, v)
	return out
}

// Attendance is one employee-month attendance document, keyed by
// (uid, year, month).
type Attendance struct {
	ID  string `json:"id" bson:"_id,omitempty"`
	UID string `json:"uid" bson:"uid"`

	Year  int    `json:"year" bson:"year"`
	Month string `json:"month" bson:"month"` // English month name, e.g. "September"

	MonthlyWorkedHours float64 `json:"monthlyWorkedHours" bson:"monthlyWorkedHours"`

	// LastClockInTimestamp is non-nil iff the employee is currently
	// clocked in.
	LastClockInTimestamp *time.Time `json:"lastClockInTimestamp" bson:"lastClockInTimestamp"`

	Values DailyValues `json:"values" bson:"values"`

	LastChanged time.Time `json:"lastChanged,omitempty" bson:"lastChanged,omitempty"`
}

// IsClockedIn reports whether the document represents an open clock-in.
func (a *Attendance) IsClockedIn() bool {
	return a.LastClockInTimestamp != nil
}

// ClockedInEmployee is the scanner's join of an open attendance document
// with its employee, tagged with the project it came from.
type ClockedInEmployee struct {
	Employee    *Employee
	Attendance  *Attendance
	ProjectName string
}

// AutoClockOutResult records one successful automatic clock-out for the
// notification pass at the end of a monitor tick.
type AutoClockOutResult struct {
	Employee    *Employee
	ProjectName string
	Reason      string
	ClockedOut  time.Time
}
