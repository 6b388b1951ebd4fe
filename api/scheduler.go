/*
scheduler.go - Automated period snapshots

PURPOSE:
  Periodically checks whether the reporting period containing "now" already
  has rows in the history ledger, and if not, appends a snapshot of the
  current result under that period's label.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Skips while no tables are loaded
  - Skips periods that already have rows (manual or automatic)
  - Takes at most one snapshot per period

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: false, see
    periods.autoSnapshot in the config file)

USAGE:
  scheduler := NewSnapshotScheduler(session, logger)
  scheduler.Enabled = cfg.Periods.AutoSnapshot
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: CreateSnapshot endpoint (manual snapshot)
  - generic/period.go: PeriodCalendar
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/capacity-engine/capacity"
	"go.uber.org/zap"
)

// SnapshotScheduler appends one snapshot per reporting period.
type SnapshotScheduler struct {
	Session       *capacity.Session
	CheckInterval time.Duration
	Enabled       bool
	Now           func() time.Time

	logger *zap.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSnapshotScheduler creates a disabled scheduler with a one hour interval.
func NewSnapshotScheduler(session *capacity.Session, logger *zap.Logger) *SnapshotScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotScheduler{
		Session:       session,
		CheckInterval: 1 * time.Hour,
		Now:           time.Now,
		logger:        logger.Named("scheduler"),
	}
}

// Start begins the scheduler.
func (s *SnapshotScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.logger.Info("disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go s.run()

	s.logger.Info("started", zap.Duration("interval", s.CheckInterval))
}

// Stop stops the scheduler and waits for a running check to finish.
func (s *SnapshotScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.ticker = nil
		s.logger.Info("stopped")
	}
}

func (s *SnapshotScheduler) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.RunNow(context.Background())

	for {
		select {
		case <-s.ticker.C:
			s.RunNow(context.Background())
		case <-s.stop:
			return
		}
	}
}

// RunNow performs one check. It returns the period that was snapshotted,
// or "" when nothing was appended.
func (s *SnapshotScheduler) RunNow(ctx context.Context) string {
	if !s.Session.Loaded() {
		s.logger.Debug("no tables loaded, skipping")
		return ""
	}

	period := s.Session.PeriodLabel(s.Now())
	existing, err := s.Session.History(ctx, period)
	if err != nil {
		s.logger.Error("failed to read history", zap.String("period", period), zap.Error(err))
		return ""
	}
	if len(existing) > 0 {
		s.logger.Debug("period already recorded", zap.String("period", period))
		return ""
	}

	rows, err := s.Session.Snapshot(ctx, period)
	if err != nil {
		s.logger.Error("failed to append snapshot", zap.String("period", period), zap.Error(err))
		return ""
	}
	s.logger.Info("period snapshot appended", zap.String("period", period), zap.Int("rows", len(rows)))
	return period
}

// NextRunTime returns when the next scheduled check will occur.
func (s *SnapshotScheduler) NextRunTime() time.Time {
	return s.Now().Add(s.CheckInterval)
}
