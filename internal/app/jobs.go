/**
 * @description
 * Scheduled job implementations: the earnings settlement sweep and the stale
 * unpaid order sweep.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/labelhq/settlement-service/internal/store"
)

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	repo          store.Repository
	service       *Service
	logger        *slog.Logger
	batchSize     int
	staleOrderTTL time.Duration
}

// NewJobs creates a new Jobs runner.
func NewJobs(repo store.Repository, service *Service, logger *slog.Logger, batchSize int, staleOrderTTL time.Duration) *Jobs {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Jobs{
		repo:          repo,
		service:       service,
		logger:        logger,
		batchSize:     batchSize,
		staleOrderTTL: staleOrderTTL,
	}
}

// SettlePendingEarnings claims and settles pending music earnings, one batch
// per run. Individual failures are logged and skipped so one bad earning
// cannot stall the sweep.
func (j *Jobs) SettlePendingEarnings() {
	j.logger.Info("starting earnings settlement sweep")
	ctx := context.Background()

	ids, err := j.repo.ListUnsettledEarningIDs(ctx, j.batchSize)
	if err != nil {
		j.logger.Error("failed to list unsettled earnings", "error", err)
		return
	}
	if len(ids) == 0 {
		j.logger.Info("no pending earnings to settle")
		return
	}

	settled := 0
	for _, id := range ids {
		earning, err := j.service.SettleEarning(ctx, id)
		if err != nil {
			j.logger.Error("failed to settle earning", "earning_id", id, "error", err)
			continue
		}
		if earning != nil {
			settled++
		}
	}

	j.logger.Info("earnings settlement sweep finished", "evaluated", len(ids), "settled", settled)
}

// SweepStaleOrders cancels unpaid orders older than the configured TTL.
// Disabled when no TTL is configured.
func (j *Jobs) SweepStaleOrders() {
	if j.staleOrderTTL <= 0 {
		return
	}

	j.logger.Info("starting stale order sweep")
	ctx := context.Background()

	cutoff := time.Now().UTC().Add(-j.staleOrderTTL)
	orders, err := j.repo.ListStaleUnpaidOrders(ctx, cutoff, j.batchSize)
	if err != nil {
		j.logger.Error("failed to list stale orders", "error", err)
		return
	}
	if len(orders) == 0 {
		j.logger.Info("no stale orders to cancel")
		return
	}

	canceled := 0
	for _, order := range orders {
		// The conditional cancel loses gracefully to a webhook confirming
		// payment in the meantime.
		result, err := j.repo.CancelOrder(ctx, order.ID)
		if err != nil {
			j.logger.Error("failed to cancel stale order", "order_id", order.ID, "error", err)
			continue
		}
		if result != nil {
			canceled++
		}
	}

	j.logger.Info("stale order sweep finished", "evaluated", len(orders), "canceled", canceled)
}
