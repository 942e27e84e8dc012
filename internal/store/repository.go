/**
 * @description
 * This file defines the `Repository` interface, the contract for every data
 * access operation the settlement core needs. Keeping the interface separate
 * from the PostgreSQL implementation lets the webhook processor and the
 * admin service be exercised against in-memory stubs in tests.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For entity identifiers.
 * - github.com/shopspring/decimal: Exact monetary amounts.
 * - internal/domain: The service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/labelhq/settlement-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Order methods. ConfirmOrderPayment is conditional on the order still
	// being in the new state and returns (nil, nil) when the claim is lost,
	// so concurrent webhook deliveries collapse to one winner.
	FindOrderByCorrelationKey(ctx context.Context, key string) (*domain.Order, error)
	FindOrderByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	ConfirmOrderPayment(ctx context.Context, orderID uuid.UUID, processingFee, platformFee decimal.Decimal, paidAt time.Time) (*domain.Order, error)
	MarkOrderSent(ctx context.Context, orderID uuid.UUID) error
	CancelOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	ListStaleUnpaidOrders(ctx context.Context, olderThan time.Time, limit int) ([]domain.Order, error)

	// Brand fee configuration.
	GetBrandFeeConfig(ctx context.Context, brandID uuid.UUID) (*domain.BrandFeeConfig, error)

	// Music earning settlement. ClaimEarningForSettlement moves a pending
	// earning into settling and returns (nil, nil) when another worker
	// already holds it; ReleaseEarningClaim hands a claim back so the sweep
	// can retry the earning. ConsumeRecuperableBalance drains at most upTo
	// from the release's outstanding balance and reports the amount it
	// actually recovered, all inside one transaction.
	ClaimEarningForSettlement(ctx context.Context, earningID uuid.UUID) (*domain.MusicEarning, error)
	ReleaseEarningClaim(ctx context.Context, earningID uuid.UUID) error
	MarkEarningSettled(ctx context.Context, earningID uuid.UUID, netRevenue, platformFee decimal.Decimal, settledAt time.Time) error
	ListUnsettledEarningIDs(ctx context.Context, limit int) ([]uuid.UUID, error)
	OutstandingRecuperableBalance(ctx context.Context, releaseID uuid.UUID) (decimal.Decimal, error)
	ConsumeRecuperableBalance(ctx context.Context, releaseID uuid.UUID, upTo decimal.Decimal) (decimal.Decimal, error)
	SumRoyaltiesForEarning(ctx context.Context, earningID uuid.UUID) (decimal.Decimal, error)

	// Audit sink. Append-only; never updated or deleted.
	InsertAuditEvent(ctx context.Context, event domain.EscalationEvent) error
}
