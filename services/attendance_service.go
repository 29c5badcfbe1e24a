package services

import (
	"context"
	"time"

	"geoclock/database"
	"geoclock/models"
	"geoclock/repositories"
	"geoclock/utils"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// AttendanceService applies automatic clock-outs and scans for currently
// clocked-in employees across project databases.
type AttendanceService struct {
	manager *database.Manager
	clock   clockwork.Clock
}

func NewAttendanceService(manager *database.Manager, clock clockwork.Clock) *AttendanceService {
	return &AttendanceService{
		manager: manager,
		clock:   clock,
	}
}

// ApplyAutoClockOut mutates the attendance document in memory: appends a
// Clock-Out entry on the clock-in's day, adds the fractional hours worked,
// forces the day to Absent/Submitted, and clears the open clock-in. Returns
// the hours added.
//
// The day classification is asserted to "A" rather than derived from the
// presence thresholds the human path uses: an automatic clock-out records an
// enforcement breach.
func (as *AttendanceService) ApplyAutoClockOut(attendance *models.Attendance, timezone string) (float64, error) {
	if attendance.LastClockInTimestamp == nil {
		return 0, utils.NewNoPriorClockInError(attendance.UID)
	}

	clockIn := attendance.LastClockInTimestamp.UTC()
	now := as.clock.Now().UTC()

	// Day index is UTC-based, matching the human clock-in path.
	dayIndex := clockIn.Day() - 1
	hoursWorked := now.Sub(clockIn).Hours()

	base := attendance.Values.Clone()
	for len(base) <= dayIndex {
		base = append(base, nil)
	}

	var day models.DailyAttendance
	if base[dayIndex] != nil {
		day = *base[dayIndex]
		day.WorkedHours = append([]models.WorkedHoursEntry{}, day.WorkedHours...)
	} else {
		day = models.DailyAttendance{
			ID:          utils.GenerateUUID(),
			Day:         dayIndex + 1,
			Status:      models.StatusNA,
			WorkedHours: []models.WorkedHoursEntry{},
		}
	}

	day.WorkedHours = append(day.WorkedHours, models.WorkedHoursEntry{
		ID:        utils.GenerateUUID(),
		Timestamp: now,
		Type:      models.EntryClockOut,
		Hour:      utils.FormatHour(now, timezone),
	})

	day.DailyWorkedHours += hoursWorked
	value := models.ValueAbsent
	day.Value = &value
	day.Status = models.StatusSubmitted
	timestamp := now
	day.Timestamp = &timestamp

	base[dayIndex] = &day

	attendance.Values = base
	attendance.MonthlyWorkedHours += hoursWorked
	attendance.LastClockInTimestamp = nil
	attendance.LastChanged = now

	return hoursWorked, nil
}

// AutoClockOut applies the mutation and writes the document back as one
// update through the retrying store adapter.
func (as *AttendanceService) AutoClockOut(ctx context.Context, projectName string, attendance *models.Attendance, timezone string) error {
	hoursWorked, err := as.ApplyAutoClockOut(attendance, timezone)
	if err != nil {
		return err
	}

	project := as.manager.Get(projectName)
	if project == nil {
		return utils.NewWriteFailedError("update attendance",
			utils.NewDatabaseError("resolve project "+projectName, nil))
	}

	attendanceRepo := repositories.NewAttendanceRepository(project.Database)

	err = database.WithRetry(ctx, projectName, "update attendance", func(ctx context.Context) error {
		return attendanceRepo.Update(ctx, attendance)
	})
	if err != nil {
		return utils.NewWriteFailedError("update attendance", err)
	}

	logrus.WithFields(logrus.Fields{
		"project": projectName,
		"uid":     attendance.UID,
		"hours":   hoursWorked,
	}).Info("Automatic clock-out written")

	return nil
}

// ScanClockedIn finds every currently clocked-in employee across the given
// projects: all attendance documents for the current UTC year and month,
// filtered client-side to open clock-ins, joined with their employees.
// Per-project and per-document failures are logged and skipped.
func (as *AttendanceService) ScanClockedIn(ctx context.Context, projects []*database.Project) []models.ClockedInEmployee {
	now := as.clock.Now().UTC()
	year := now.Year()
	month := utils.MonthName(now)

	var results []models.ClockedInEmployee

	for _, project := range projects {
		attendanceRepo := repositories.NewAttendanceRepository(project.Database)
		employeeRepo := repositories.NewEmployeeRepository(project.Database)

		docs, err := attendanceRepo.GetMonth(ctx, year, month)
		if err != nil {
			logrus.Errorf("Failed to read attendance for project %s: %v", project.Name, err)
			continue
		}

		for _, doc := range docs {
			if !doc.IsClockedIn() {
				continue
			}

			employee, err := employeeRepo.GetByUID(ctx, doc.UID)
			if err != nil {
				logrus.Errorf("Failed to load employee %s on project %s: %v", doc.UID, project.Name, err)
				continue
			}
			if employee == nil {
				logrus.Warnf("Clocked-in attendance %s has no employee on project %s", doc.UID, project.Name)
				continue
			}

			results = append(results, models.ClockedInEmployee{
				Employee:    employee,
				Attendance:  doc,
				ProjectName: project.Name,
			})
		}
	}

	return results
}

// LastClockOut returns the timestamp of the most recent Clock-Out entry on
// the open clock-in's day, or nil. The monitor uses it to avoid repeated
// clock-outs within one check interval.
func LastClockOut(attendance *models.Attendance) *time.Time {
	if attendance.LastClockInTimestamp == nil {
		return nil
	}

	dayIndex := attendance.LastClockInTimestamp.UTC().Day() - 1
	if dayIndex < 0 || dayIndex >= len(attendance.Values) || attendance.Values[dayIndex] == nil {
		return nil
	}

	entries := attendance.Values[dayIndex].WorkedHours
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Type == models.EntryClockOut {
			t := entries[i].Timestamp
			return &t
		}
	}
	return nil
}
