/**
 * @description
 * Cron scheduler setup for the settlement sweeps.
 */
package app

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/labelhq/settlement-service/internal/config"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger *slog.Logger
	config config.Config
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(jobs *Jobs, logger *slog.Logger, cfg config.Config) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:   c,
		jobs:   jobs,
		logger: logger,
		config: cfg,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.config.EarningSettlementSchedule, s.jobs.SettlePendingEarnings); err != nil {
		s.logger.Error("failed to schedule earnings settlement sweep", "error", err)
	} else {
		s.logger.Info("scheduled earnings settlement sweep", "schedule", s.config.EarningSettlementSchedule)
	}

	if _, err := s.cron.AddFunc(s.config.StaleOrderSweepSchedule, s.jobs.SweepStaleOrders); err != nil {
		s.logger.Error("failed to schedule stale order sweep", "error", err)
	} else {
		s.logger.Info("scheduled stale order sweep", "schedule", s.config.StaleOrderSweepSchedule)
	}

	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
