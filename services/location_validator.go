package services

import (
	"fmt"

	"geoclock/models"
	"geoclock/utils"

	"github.com/jonboulle/clockwork"
)

// ValidationErrorKind classifies why a location failed validation.
type ValidationErrorKind string

const (
	ErrKindNone           ValidationErrorKind = ""
	ErrKindNoLocation     ValidationErrorKind = "NO_LOCATION"
	ErrKindSharingEnded   ValidationErrorKind = "SHARING_ENDED"
	ErrKindStaleLocation  ValidationErrorKind = "STALE_LOCATION"
	ErrKindNotLive        ValidationErrorKind = "NOT_LIVE"
	ErrKindOutsideArea    ValidationErrorKind = "OUTSIDE_AREA"
	ErrKindBadWorkingArea ValidationErrorKind = "BAD_WORKING_AREA"
)

// Actionable reports whether the kind triggers an automatic clock-out.
// NO_LOCATION and BAD_WORKING_AREA are observed but not actioned.
func (k ValidationErrorKind) Actionable() bool {
	switch k {
	case ErrKindOutsideArea, ErrKindNotLive, ErrKindSharingEnded, ErrKindStaleLocation:
		return true
	default:
		return false
	}
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Verdict is the validator's output. IsValid is true iff ErrorKind is none.
type Verdict struct {
	IsValid            bool                `json:"isValid"`
	ErrorKind          ValidationErrorKind `json:"errorKind,omitempty"`
	ErrorMessage       string              `json:"errorMessage,omitempty"`
	Accuracy           *float64            `json:"accuracy,omitempty"`
	Coordinates        *Coordinates        `json:"coordinates,omitempty"`
	LocationAgeMinutes int                 `json:"locationAgeMinutes"`
	IsLive             bool                `json:"isLive"`
}

// LocationValidator maps (current location, working area, policy) to a
// verdict with a typed failure reason.
type LocationValidator struct {
	clock clockwork.Clock
}

func NewLocationValidator(clock clockwork.Clock) *LocationValidator {
	return &LocationValidator{clock: clock}
}

// Validate applies the decision order, first match wins:
// no location, sharing ended, then the live path (working area containment)
// or the non-live path (staleness).
func (lv *LocationValidator) Validate(location *models.CurrentLocation, workingArea string, maxAgeMinutes int, timezone string) Verdict {
	if location == nil {
		return Verdict{
			ErrorKind:    ErrKindNoLocation,
			ErrorMessage: "No location data has been shared",
		}
	}

	if location.EndedAt != nil {
		return Verdict{
			ErrorKind:    ErrKindSharingEnded,
			ErrorMessage: "Your live location sharing has ended",
		}
	}

	now := lv.clock.Now().UTC()
	ageMinutes := utils.AgeMinutes(now, location.UpdatedAt)

	isLive := location.IsLive && (location.LiveUntil == nil || now.Before(*location.LiveUntil))

	coords := &Coordinates{Latitude: location.Latitude, Longitude: location.Longitude}

	if isLive {
		area, err := utils.ParseWorkingArea(workingArea)
		if err != nil {
			return Verdict{
				ErrorKind:          ErrKindBadWorkingArea,
				ErrorMessage:       "Your working area configuration is invalid",
				Accuracy:           location.Accuracy,
				Coordinates:        coords,
				LocationAgeMinutes: ageMinutes,
				IsLive:             true,
			}
		}

		if !area.Contains(location.Longitude, location.Latitude) {
			return Verdict{
				ErrorKind:          ErrKindOutsideArea,
				ErrorMessage:       "You are outside your designated working area",
				Accuracy:           location.Accuracy,
				Coordinates:        coords,
				LocationAgeMinutes: ageMinutes,
				IsLive:             true,
			}
		}

		return Verdict{
			IsValid:            true,
			Accuracy:           location.Accuracy,
			Coordinates:        coords,
			LocationAgeMinutes: ageMinutes,
			IsLive:             true,
		}
	}

	if ageMinutes > maxAgeMinutes {
		return Verdict{
			ErrorKind: ErrKindStaleLocation,
			ErrorMessage: fmt.Sprintf("Your last location update was at %s, %d minutes ago (maximum allowed is %d)",
				utils.FormatHour(location.UpdatedAt, timezone), ageMinutes, maxAgeMinutes),
			Accuracy:           location.Accuracy,
			Coordinates:        coords,
			LocationAgeMinutes: ageMinutes,
		}
	}

	return Verdict{
		ErrorKind:          ErrKindNotLive,
		ErrorMessage:       "Your location is not being shared live",
		Accuracy:           location.Accuracy,
		Coordinates:        coords,
		LocationAgeMinutes: ageMinutes,
	}
}
