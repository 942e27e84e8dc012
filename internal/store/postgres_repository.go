/**
 * @description
 * PostgreSQL implementation of the `Repository` interface. All monetary
 * columns are NUMERIC; they are selected with ::text casts and parsed into
 * shopspring decimals so no precision is lost crossing the driver boundary.
 * Status transitions are expressed as conditional UPDATE ... WHERE status =
 * ... RETURNING statements so two concurrent writers cannot both observe the
 * prior state.
 *
 * @dependencies
 * - context, errors, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver.
 * - github.com/shopspring/decimal: Exact monetary amounts.
 * - internal/domain: Domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/labelhq/settlement-service/internal/domain"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrFeeConfigNotFound = errors.New("brand fee config not found")
	ErrEarningNotFound   = errors.New("earning not found")
	// ErrOrderNotDispatchable flags a sent transition on an order that exists
	// but is no longer in payment_confirmed.
	ErrOrderNotDispatchable = errors.New("order is not awaiting confirmation dispatch")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const orderColumns = `
	id, kind, brand_id, buyer_email, description,
	unit_price::text, quantity, status, correlation_key,
	payment_processing_fee::text, platform_fee::text,
	date_paid, created_at, updated_at
`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		order         domain.Order
		unitPrice     string
		processingFee string
		platformFee   string
	)
	err := row.Scan(
		&order.ID,
		&order.Kind,
		&order.BrandID,
		&order.BuyerEmail,
		&order.Description,
		&unitPrice,
		&order.Quantity,
		&order.Status,
		&order.CorrelationKey,
		&processingFee,
		&platformFee,
		&order.DatePaid,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if order.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
		return nil, fmt.Errorf("parse unit price: %w", err)
	}
	if order.PaymentProcessingFee, err = decimal.NewFromString(processingFee); err != nil {
		return nil, fmt.Errorf("parse processing fee: %w", err)
	}
	if order.PlatformFee, err = decimal.NewFromString(platformFee); err != nil {
		return nil, fmt.Errorf("parse platform fee: %w", err)
	}
	return &order, nil
}

// FindOrderByCorrelationKey resolves the order an incoming webhook refers to.
// The correlation key carries a unique index, so at most one row can match.
func (r *PostgresRepository) FindOrderByCorrelationKey(ctx context.Context, key string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE correlation_key = $1`
	order, err := scanOrder(r.db.QueryRow(ctx, query, key))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// FindOrderByID retrieves an order by its primary key.
func (r *PostgresRepository) FindOrderByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	order, err := scanOrder(r.db.QueryRow(ctx, query, orderID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// ConfirmOrderPayment transitions an order from new to payment_confirmed,
// persisting the gateway processing fee, the computed platform fee and the
// payment timestamp in the same statement. The WHERE clause makes the claim
// atomic: when a concurrent delivery already won, zero rows match and
// (nil, nil) is returned so the caller can classify the replay.
func (r *PostgresRepository) ConfirmOrderPayment(ctx context.Context, orderID uuid.UUID, processingFee, platformFee decimal.Decimal, paidAt time.Time) (*domain.Order, error) {
	query := `
		UPDATE orders
		SET status = $2,
		    payment_processing_fee = $3::numeric,
		    platform_fee = $4::numeric,
		    date_paid = $5,
		    updated_at = NOW()
		WHERE id = $1 AND status = $6
		RETURNING ` + orderColumns
	order, err := scanOrder(r.db.QueryRow(ctx, query,
		orderID,
		domain.OrderStatusPaymentConfirmed,
		processingFee.String(),
		platformFee.String(),
		paidAt,
		domain.OrderStatusNew,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return order, nil
}

// MarkOrderSent records a successful confirmation dispatch. Conditional on
// payment_confirmed so a late dispatch cannot resurrect a canceled order. A
// missing order and a superseded status are reported as distinct errors so
// callers can tell the two apart.
func (r *PostgresRepository) MarkOrderSent(ctx context.Context, orderID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`, orderID, domain.OrderStatusSent, domain.OrderStatusPaymentConfirmed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrOrderNotFound
		}
		return ErrOrderNotDispatchable
	}
	return nil
}

// CancelOrder performs the administrative cancel transition. Absorbing
// states and already-sent orders are left untouched.
func (r *PostgresRepository) CancelOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	query := `
		UPDATE orders
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ($3, $4)
		RETURNING ` + orderColumns
	order, err := scanOrder(r.db.QueryRow(ctx, query,
		orderID,
		domain.OrderStatusCanceled,
		domain.OrderStatusNew,
		domain.OrderStatusPaymentConfirmed,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return order, nil
}

// ListStaleUnpaidOrders returns orders still in the new state that were
// created before the cutoff, oldest first.
func (r *PostgresRepository) ListStaleUnpaidOrders(ctx context.Context, olderThan time.Time, limit int) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC
		LIMIT $3`
	rows, err := r.db.Query(ctx, query, domain.OrderStatusNew, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

// GetBrandFeeConfig fetches a brand's fee settings across all three revenue
// domains.
func (r *PostgresRepository) GetBrandFeeConfig(ctx context.Context, brandID uuid.UUID) (*domain.BrandFeeConfig, error) {
	var (
		cfg    domain.BrandFeeConfig
		fields [6]string
	)
	query := `
		SELECT brand_id,
		       music_fixed_fee::text, music_percent_fee::text, music_revenue_basis,
		       event_fixed_fee::text, event_percent_fee::text, event_revenue_basis,
		       fundraiser_fixed_fee::text, fundraiser_percent_fee::text, fundraiser_revenue_basis
		FROM brand_fee_configs
		WHERE brand_id = $1
	`
	err := r.db.QueryRow(ctx, query, brandID).Scan(
		&cfg.BrandID,
		&fields[0], &fields[1], &cfg.MusicRevenueBasis,
		&fields[2], &fields[3], &cfg.EventRevenueBasis,
		&fields[4], &fields[5], &cfg.FundraiserBasis,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrFeeConfigNotFound
		}
		return nil, err
	}

	parsed := make([]decimal.Decimal, len(fields))
	for i, raw := range fields {
		if parsed[i], err = decimal.NewFromString(raw); err != nil {
			return nil, fmt.Errorf("parse fee config field: %w", err)
		}
	}
	cfg.MusicFixedFee, cfg.MusicPercentFee = parsed[0], parsed[1]
	cfg.EventFixedFee, cfg.EventPercentFee = parsed[2], parsed[3]
	cfg.FundraiserFixedFee, cfg.FundraiserPercent = parsed[4], parsed[5]
	return &cfg, nil
}

const earningColumns = `
	id, brand_id, release_id, source, amount::text,
	net_revenue::text, platform_fee::text, status, settled_at, created_at
`

func scanEarning(row pgx.Row) (*domain.MusicEarning, error) {
	var (
		earning     domain.MusicEarning
		amount      string
		netRevenue  string
		platformFee string
	)
	err := row.Scan(
		&earning.ID,
		&earning.BrandID,
		&earning.ReleaseID,
		&earning.Source,
		&amount,
		&netRevenue,
		&platformFee,
		&earning.Status,
		&earning.SettledAt,
		&earning.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if earning.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse earning amount: %w", err)
	}
	if earning.NetRevenue, err = decimal.NewFromString(netRevenue); err != nil {
		return nil, fmt.Errorf("parse net revenue: %w", err)
	}
	if earning.PlatformFee, err = decimal.NewFromString(platformFee); err != nil {
		return nil, fmt.Errorf("parse platform fee: %w", err)
	}
	return &earning, nil
}

// ClaimEarningForSettlement atomically moves a pending earning to settling.
// Zero matched rows means another worker holds or already settled it.
func (r *PostgresRepository) ClaimEarningForSettlement(ctx context.Context, earningID uuid.UUID) (*domain.MusicEarning, error) {
	query := `
		UPDATE music_earnings
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING ` + earningColumns
	earning, err := scanEarning(r.db.QueryRow(ctx, query,
		earningID,
		domain.EarningStatusSettling,
		domain.EarningStatusPending,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return earning, nil
}

// ReleaseEarningClaim returns a claimed earning to pending so a later sweep
// or retry can pick it up again. A no-op unless the earning is in settling.
func (r *PostgresRepository) ReleaseEarningClaim(ctx context.Context, earningID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE music_earnings
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`, earningID, domain.EarningStatusPending, domain.EarningStatusSettling)
	return err
}

// MarkEarningSettled records the waterfall output for a claimed earning.
func (r *PostgresRepository) MarkEarningSettled(ctx context.Context, earningID uuid.UUID, netRevenue, platformFee decimal.Decimal, settledAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE music_earnings
		SET status = $2, net_revenue = $3::numeric, platform_fee = $4::numeric,
		    settled_at = $5, updated_at = NOW()
		WHERE id = $1 AND status = $6
	`, earningID, domain.EarningStatusSettled, netRevenue.String(), platformFee.String(), settledAt, domain.EarningStatusSettling)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEarningNotFound
	}
	return nil
}

// ListUnsettledEarningIDs returns pending earnings for the settlement sweep,
// oldest first.
func (r *PostgresRepository) ListUnsettledEarningIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id FROM music_earnings
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`, domain.EarningStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// OutstandingRecuperableBalance sums the remaining balance across all
// recuperable expense rows for a release. Only the aggregate is promised to
// callers; allocation across individual rows is an implementation detail.
func (r *PostgresRepository) OutstandingRecuperableBalance(ctx context.Context, releaseID uuid.UUID) (decimal.Decimal, error) {
	var raw string
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(remaining_balance), 0)::text
		FROM recuperable_expenses
		WHERE release_id = $1
	`, releaseID).Scan(&raw)
	if err != nil {
		return decimal.Zero, err
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse recuperable balance: %w", err)
	}
	return balance, nil
}

// ConsumeRecuperableBalance drains at most upTo from the release's
// outstanding balance, oldest rows first inside a single transaction, and
// returns the amount actually recovered. The row locks make the returned
// amount exact even when two settlements race on the same release; callers
// must build the waterfall from it rather than from a prior balance read.
func (r *PostgresRepository) ConsumeRecuperableBalance(ctx context.Context, releaseID uuid.UUID, upTo decimal.Decimal) (decimal.Decimal, error) {
	if !upTo.IsPositive() {
		return decimal.Zero, nil
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return decimal.Zero, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, remaining_balance::text
		FROM recuperable_expenses
		WHERE release_id = $1 AND remaining_balance > 0
		ORDER BY created_at ASC
		FOR UPDATE
	`, releaseID)
	if err != nil {
		return decimal.Zero, err
	}

	type pending struct {
		id        uuid.UUID
		remaining decimal.Decimal
	}
	var candidates []pending
	for rows.Next() {
		var (
			p   pending
			raw string
		)
		if err := rows.Scan(&p.id, &raw); err != nil {
			rows.Close()
			return decimal.Zero, err
		}
		if p.remaining, err = decimal.NewFromString(raw); err != nil {
			rows.Close()
			return decimal.Zero, fmt.Errorf("parse expense balance: %w", err)
		}
		candidates = append(candidates, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return decimal.Zero, err
	}

	left := upTo
	recovered := decimal.Zero
	for _, candidate := range candidates {
		if !left.IsPositive() {
			break
		}
		take := candidate.remaining
		if take.GreaterThan(left) {
			take = left
		}
		newBalance := candidate.remaining.Sub(take)
		if _, err := tx.Exec(ctx, `
			UPDATE recuperable_expenses
			SET remaining_balance = $2::numeric, updated_at = NOW()
			WHERE id = $1
		`, candidate.id, newBalance.String()); err != nil {
			return decimal.Zero, err
		}
		left = left.Sub(take)
		recovered = recovered.Add(take)
	}

	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, err
	}
	return recovered, nil
}

// SumRoyaltiesForEarning totals the royalty rows tied to one earning.
func (r *PostgresRepository) SumRoyaltiesForEarning(ctx context.Context, earningID uuid.UUID) (decimal.Decimal, error) {
	var raw string
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)::text
		FROM royalties
		WHERE earning_id = $1
	`, earningID).Scan(&raw)
	if err != nil {
		return decimal.Zero, err
	}
	total, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse royalty total: %w", err)
	}
	return total, nil
}

// InsertAuditEvent appends one escalation to the audit log.
func (r *PostgresRepository) InsertAuditEvent(ctx context.Context, event domain.EscalationEvent) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO settlement_audit_events (reason, correlation_key, detail, raw_payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
	`, event.Reason, event.CorrelationKey, event.Detail, event.RawPayload, event.Timestamp)
	return err
}
