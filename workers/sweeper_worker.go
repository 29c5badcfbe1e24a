package workers

import (
	"context"
	"sync"
	"time"

	"geoclock/database"
	"geoclock/interfaces"
	"geoclock/repositories"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

const sweepInterval = 60 * time.Second

type SweeperWorkerStats struct {
	SweepsCompleted   int64     `json:"sweepsCompleted"`
	SessionsFinalized int64     `json:"sessionsFinalized"`
	LastSweepAt       time.Time `json:"lastSweepAt"`
	StartTime         time.Time `json:"startTime"`
}

// SweeperWorker drives the live-session registry's expiry sweep every
// minute, finalizing sessions whose live period or grace window has lapsed.
type SweeperWorker struct {
	registry interfaces.SessionFinalizer
	manager  *database.Manager
	clock    clockwork.Clock

	isRunning bool
	mutex     sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stats      SweeperWorkerStats
	statsMutex sync.RWMutex
}

func NewSweeperWorker(registry interfaces.SessionFinalizer, manager *database.Manager, clock clockwork.Clock) *SweeperWorker {
	ctx, cancel := context.WithCancel(context.Background())

	return &SweeperWorker{
		registry: registry,
		manager:  manager,
		clock:    clock,
		ctx:      ctx,
		cancel:   cancel,
		stats: SweeperWorkerStats{
			StartTime: clock.Now(),
		},
	}
}

func (sw *SweeperWorker) Start() error {
	sw.mutex.Lock()
	defer sw.mutex.Unlock()

	if sw.isRunning {
		return nil
	}
	sw.isRunning = true

	logrus.Infof("Starting live-session sweeper (interval %s)", sweepInterval)

	sw.wg.Add(1)
	go sw.run()

	return nil
}

func (sw *SweeperWorker) Stop() error {
	sw.mutex.Lock()
	defer sw.mutex.Unlock()

	if !sw.isRunning {
		return nil
	}

	sw.cancel()
	sw.isRunning = false
	sw.wg.Wait()

	logrus.Info("Live-session sweeper stopped")
	return nil
}

func (sw *SweeperWorker) run() {
	defer sw.wg.Done()

	ticker := sw.clock.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			sw.RunSweep(sw.ctx)
		case <-sw.ctx.Done():
			return
		}
	}
}

// RunSweep performs one registry sweep. Store writes go through the retrying
// adapter; a write that still fails leaves the entry for the next sweep.
func (sw *SweeperWorker) RunSweep(ctx context.Context) {
	finalized := sw.registry.SweepOnce(ctx, sw.finalize)

	sw.statsMutex.Lock()
	sw.stats.SweepsCompleted++
	sw.stats.SessionsFinalized += int64(finalized)
	sw.stats.LastSweepAt = sw.clock.Now()
	sw.statsMutex.Unlock()
}

func (sw *SweeperWorker) finalize(ctx context.Context, projectName, employeeID string, endedAt time.Time) error {
	project := sw.manager.Get(projectName)
	if project == nil {
		logrus.Errorf("Cannot finalize session: project %s not configured", projectName)
		return nil // entry is unrecoverable, let the sweep drop it
	}

	employeeRepo := repositories.NewEmployeeRepository(project.Database)

	return database.WithRetry(ctx, projectName, "finalize live session", func(ctx context.Context) error {
		return employeeRepo.FinalizeLiveLocation(ctx, employeeID, endedAt)
	})
}

func (sw *SweeperWorker) GetStats() SweeperWorkerStats {
	sw.statsMutex.RLock()
	defer sw.statsMutex.RUnlock()
	return sw.stats
}
