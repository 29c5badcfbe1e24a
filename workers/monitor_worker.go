package workers

import (
	"context"
	"sync"
	"time"

	"geoclock/interfaces"
	"geoclock/models"
	"geoclock/services"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

const monitorWarmUp = 30 * time.Second

type MonitorWorkerConfig struct {
	CheckInterval        time.Duration `json:"checkInterval"`
	MaxLocationAge       time.Duration `json:"maxLocationAge"`
	Enabled              bool          `json:"enabled"`
	NotificationsEnabled bool          `json:"notificationsEnabled"`
	DefaultTimezone      string        `json:"defaultTimezone"`
}

type MonitorWorkerStats struct {
	TicksCompleted   int64     `json:"ticksCompleted"`
	EmployeesChecked int64     `json:"employeesChecked"`
	ClockOutsWritten int64     `json:"clockOutsWritten"`
	SkippedNoArea    int64     `json:"skippedNoArea"`
	SkippedDedup     int64     `json:"skippedDedup"`
	Failures         int64     `json:"failures"`
	LastTickAt       time.Time `json:"lastTickAt"`
	StartTime        time.Time `json:"startTime"`
}

// MonitorWorker is the periodic driver of geofence enforcement: each tick it
// scans clocked-in employees, validates their locations, writes automatic
// clock-outs for actionable failures, and fans out notifications.
type MonitorWorker struct {
	projects  interfaces.ProjectSource
	scanner   interfaces.ClockedInScanner
	validator interfaces.LocationValidator
	clockOut  interfaces.ClockOutService
	notifier  interfaces.AutoClockOutNotifier
	clock     clockwork.Clock

	config MonitorWorkerConfig

	isRunning bool
	mutex     sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stats      MonitorWorkerStats
	statsMutex sync.RWMutex
}

func NewMonitorWorker(
	projects interfaces.ProjectSource,
	scanner interfaces.ClockedInScanner,
	validator interfaces.LocationValidator,
	clockOut interfaces.ClockOutService,
	notifier interfaces.AutoClockOutNotifier,
	clock clockwork.Clock,
	config MonitorWorkerConfig,
) *MonitorWorker {
	ctx, cancel := context.WithCancel(context.Background())

	return &MonitorWorker{
		projects:  projects,
		scanner:   scanner,
		validator: validator,
		clockOut:  clockOut,
		notifier:  notifier,
		clock:     clock,
		config:    config,
		ctx:       ctx,
		cancel:    cancel,
		stats: MonitorWorkerStats{
			StartTime: clock.Now(),
		},
	}
}

// Start schedules the first tick after a warm-up, then one per check
// interval. Idempotent; a disabled worker never starts.
func (mw *MonitorWorker) Start() error {
	mw.mutex.Lock()
	defer mw.mutex.Unlock()

	if !mw.config.Enabled {
		logrus.Info("Location monitor is disabled")
		return nil
	}

	if mw.isRunning {
		return nil
	}

	mw.isRunning = true

	logrus.Infof("Starting location monitor (interval %s, max location age %s)",
		mw.config.CheckInterval, mw.config.MaxLocationAge)

	mw.wg.Add(1)
	go mw.run()

	return nil
}

// Stop cancels the timer. An in-flight tick runs to completion; no further
// ticks are scheduled. Safe to call when stopped.
func (mw *MonitorWorker) Stop() error {
	mw.mutex.Lock()
	defer mw.mutex.Unlock()

	if !mw.isRunning {
		return nil
	}

	logrus.Info("Stopping location monitor...")

	mw.cancel()
	mw.isRunning = false
	mw.wg.Wait()

	logrus.Info("Location monitor stopped")
	return nil
}

// IsRunning reports whether the periodic loop is scheduled.
func (mw *MonitorWorker) IsRunning() bool {
	mw.mutex.RLock()
	defer mw.mutex.RUnlock()
	return mw.isRunning
}

func (mw *MonitorWorker) run() {
	defer mw.wg.Done()

	select {
	case <-mw.clock.After(monitorWarmUp):
	case <-mw.ctx.Done():
		return
	}

	mw.RunTick(mw.ctx)

	ticker := mw.clock.NewTicker(mw.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			mw.RunTick(mw.ctx)
		case <-mw.ctx.Done():
			return
		}
	}
}

// RunTick performs one monitor pass. Per-employee failures are isolated: a
// single error never aborts the tick.
func (mw *MonitorWorker) RunTick(ctx context.Context) {
	healthy := mw.projects.Healthy(ctx)
	if len(healthy) == 0 {
		logrus.Warn("Monitor tick skipped: no healthy project database")
		return
	}

	clockedIn := mw.scanner.ScanClockedIn(ctx, healthy)
	logrus.Debugf("Monitor tick: %d clocked-in employee(s)", len(clockedIn))

	maxAgeMinutes := int(mw.config.MaxLocationAge.Minutes())
	var results []models.AutoClockOutResult

	for _, item := range clockedIn {
		mw.incrementChecked()

		if item.Employee.WorkingArea == "" {
			mw.incrementSkippedNoArea()
			continue
		}

		timezone := item.Employee.Timezone
		if timezone == "" {
			timezone = mw.config.DefaultTimezone
		}

		verdict := mw.validator.Validate(item.Employee.CurrentLocation, item.Employee.WorkingArea, maxAgeMinutes, timezone)
		if verdict.IsValid {
			continue
		}

		if !verdict.ErrorKind.Actionable() {
			logrus.WithFields(logrus.Fields{
				"uid":  item.Employee.UID,
				"kind": verdict.ErrorKind,
			}).Debug("Location invalid but not actionable")
			continue
		}

		// One clock-out per attendance document per interval.
		if last := services.LastClockOut(item.Attendance); last != nil {
			if mw.clock.Now().UTC().Sub(*last) < mw.config.CheckInterval {
				mw.incrementSkippedDedup()
				continue
			}
		}

		if err := mw.clockOut.AutoClockOut(ctx, item.ProjectName, item.Attendance, timezone); err != nil {
			mw.incrementFailures()
			logrus.WithFields(logrus.Fields{
				"project": item.ProjectName,
				"uid":     item.Employee.UID,
			}).Errorf("Automatic clock-out failed: %v", err)
			continue
		}

		mw.incrementClockOuts()
		results = append(results, models.AutoClockOutResult{
			Employee:    item.Employee,
			ProjectName: item.ProjectName,
			Reason:      verdict.ErrorMessage,
			ClockedOut:  mw.clock.Now().UTC(),
		})
	}

	if mw.config.NotificationsEnabled && len(results) > 0 {
		mw.notifier.NotifyAutoClockOuts(ctx, results)
	}

	mw.finishTick()
}

func (mw *MonitorWorker) GetStats() MonitorWorkerStats {
	mw.statsMutex.RLock()
	defer mw.statsMutex.RUnlock()
	return mw.stats
}

func (mw *MonitorWorker) finishTick() {
	mw.statsMutex.Lock()
	defer mw.statsMutex.Unlock()
	mw.stats.TicksCompleted++
	mw.stats.LastTickAt = mw.clock.Now()
}

func (mw *MonitorWorker) incrementChecked() {
	mw.statsMutex.Lock()
	mw.stats.EmployeesChecked++
	mw.statsMutex.Unlock()
}

func (mw *MonitorWorker) incrementClockOuts() {
	mw.statsMutex.Lock()
	mw.stats.ClockOutsWritten++
	mw.statsMutex.Unlock()
}

func (mw *MonitorWorker) incrementSkippedNoArea() {
	mw.statsMutex.Lock()
	mw.stats.SkippedNoArea++
	mw.statsMutex.Unlock()
}

func (mw *MonitorWorker) incrementSkippedDedup() {
	mw.statsMutex.Lock()
	mw.stats.SkippedDedup++
	mw.statsMutex.Unlock()
}

func (mw *MonitorWorker) incrementFailures() {
	mw.statsMutex.Lock()
	mw.stats.Failures++
	mw.statsMutex.Unlock()
}
