package interfaces

import (
	"context"

	"geoclock/database"
	"geoclock/models"
	"geoclock/services"
)

// Contracts the workers consume, narrowed so they can be faked in tests.

// ProjectSource answers which project databases are currently healthy.
type ProjectSource interface {
	Healthy(ctx context.Context) []*database.Project
}

// ClockedInScanner finds every currently clocked-in employee.
type ClockedInScanner interface {
	ScanClockedIn(ctx context.Context, projects []*database.Project) []models.ClockedInEmployee
}

// ClockOutService applies an automatic clock-out to an attendance document.
type ClockOutService interface {
	AutoClockOut(ctx context.Context, projectName string, attendance *models.Attendance, timezone string) error
}

// LocationValidator produces a verdict for an employee's current location.
type LocationValidator interface {
	Validate(location *models.CurrentLocation, workingArea string, maxAgeMinutes int, timezone string) services.Verdict
}

// AutoClockOutNotifier fans out notifications after a monitor tick.
type AutoClockOutNotifier interface {
	NotifyAutoClockOuts(ctx context.Context, results []models.AutoClockOutResult)
}

// SessionFinalizer marks a live session as ended in the store.
type SessionFinalizer interface {
	SweepOnce(ctx context.Context, finalize services.FinalizeFunc) int
}
