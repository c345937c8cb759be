// Package housekeeping runs scheduled maintenance over the installer's
// on-disk working areas.
package housekeeping

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/lumenide/pluginhub/internal/config"
	"github.com/lumenide/pluginhub/internal/installer"
)

// restartPingSchedule controls how often the pending-restart indicator is
// re-published for event clients that connected after it was raised.
const restartPingSchedule = "@every 1m"

// Scheduler runs cron-based maintenance jobs: sweeping staged archives that
// were never installed or discarded, and re-publishing the pending-restart
// indicator.
type Scheduler struct {
	cron        *cron.Cron
	driver      *installer.Driver
	cfg         *config.HousekeepingConfig
	ttl         time.Duration
	restartPing func()
	logger      *zap.Logger

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a scheduler. Jobs are registered but do not fire
// until Start. restartPing may be nil.
func NewScheduler(cfg *config.HousekeepingConfig, driver *installer.Driver, restartPing func(), logger *zap.Logger) (*Scheduler, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(cfg.SweepSchedule); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", cfg.SweepSchedule, err)
	}

	s := &Scheduler{
		cron:        cron.New(),
		driver:      driver,
		cfg:         cfg,
		ttl:         cfg.StagingTTL,
		restartPing: restartPing,
		logger:      logger,
	}

	if _, err := s.cron.AddFunc(cfg.SweepSchedule, s.sweepStaging); err != nil {
		return nil, fmt.Errorf("failed to register sweep job: %w", err)
	}
	if restartPing != nil {
		if _, err := s.cron.AddFunc(restartPingSchedule, restartPing); err != nil {
			return nil, fmt.Errorf("failed to register restart ping job: %w", err)
		}
	}
	return s, nil
}

// Start begins firing scheduled jobs. Safe to call once.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || !s.cfg.Enabled {
		return
	}
	s.running = true
	s.cron.Start()
	s.logger.Info("housekeeping started",
		zap.String("sweep_schedule", s.cfg.SweepSchedule),
		zap.Duration("staging_ttl", s.ttl),
	)
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	<-s.cron.Stop().Done()
	s.logger.Info("housekeeping stopped")
}

func (s *Scheduler) sweepStaging() {
	removed, err := s.driver.SweepStaging(s.ttl)
	if err != nil {
		s.logger.Error("staging sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		s.logger.Info("staging sweep removed stale archives", zap.Int("count", removed))
	}
}

// SweepNow runs the staging sweep immediately, outside the schedule.
func (s *Scheduler) SweepNow() (int, error) {
	return s.driver.SweepStaging(s.ttl)
}
