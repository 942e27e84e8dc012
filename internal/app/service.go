/**
 * @description
 * Core business logic for the administrative settlement operations: manual
 * confirmation resend, order cancel, and music earning settlement. The
 * webhook processor handles gateway-driven transitions; everything a human
 * or the scheduler triggers lives here.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/labelhq/settlement-service/internal/domain"
	"github.com/labelhq/settlement-service/internal/settlement"
	"github.com/labelhq/settlement-service/internal/store"
)

var (
	// ErrResendNotAllowed is returned when an order has not reached a state
	// from which a confirmation can be (re)sent.
	ErrResendNotAllowed = errors.New("order is not in a resendable state")
	// ErrCancelNotAllowed is returned when an order is already sent or in an
	// absorbing state.
	ErrCancelNotAllowed = errors.New("order cannot be canceled")
)

// Service provides the administrative settlement operations.
type Service struct {
	repo          store.Repository
	mailer        Mailer
	escalator     *Escalator
	publisher     EventPublisher
	notifyTimeout time.Duration
}

// NewService creates the admin settlement service.
func NewService(repo store.Repository, mailer Mailer, escalator *Escalator, publisher EventPublisher, notifyTimeout time.Duration) *Service {
	if notifyTimeout <= 0 {
		notifyTimeout = 10 * time.Second
	}
	return &Service{
		repo:          repo,
		mailer:        mailer,
		escalator:     escalator,
		publisher:     publisher,
		notifyTimeout: notifyTimeout,
	}
}

// GetOrder returns one order for the dashboard.
func (s *Service) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return s.repo.FindOrderByID(ctx, orderID)
}

// ResendOrderConfirmation re-attempts the buyer confirmation for an order
// whose payment is confirmed. On success the order moves to sent; a failure
// leaves it where it was and escalates.
func (s *Service) ResendOrderConfirmation(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanResend() {
		return nil, ErrResendNotAllowed
	}

	notifyCtx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()
	if err := s.mailer.SendOrderConfirmation(notifyCtx, order); err != nil {
		s.escalator.Escalate(ctx, domain.EscalationNotificationFailure, order.CorrelationKey,
			fmt.Sprintf("manual resend failed for order %s: %v", order.ID, err), nil, true)
		return nil, fmt.Errorf("resend confirmation: %w", err)
	}

	if order.Status == domain.OrderStatusPaymentConfirmed {
		if err := s.repo.MarkOrderSent(ctx, order.ID); err != nil {
			log.Printf("level=warn component=admin msg=\"resend succeeded but sent transition failed\" order_id=%s err=%v", order.ID, err)
		}
	}

	return s.repo.FindOrderByID(ctx, orderID)
}

// CancelOrder performs the administrative cancel. The store refuses the
// transition for sent orders and absorbing states.
func (s *Service) CancelOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	canceled, err := s.repo.CancelOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if canceled == nil {
		// Distinguish a missing order from a refused transition.
		if _, findErr := s.repo.FindOrderByID(ctx, orderID); findErr != nil {
			return nil, findErr
		}
		return nil, ErrCancelNotAllowed
	}
	log.Printf("level=info component=admin msg=\"order canceled\" order_id=%s", canceled.ID)
	return canceled, nil
}

// SettleEarning runs one pending music earning through the waterfall and the
// platform fee calculator and persists the result. It returns (nil, nil)
// when the earning was already claimed or settled by another worker. On a
// failure before the balance is touched the claim is handed back so the
// sweep can retry; after the balance is drained the claim is kept and the
// earning is escalated, since a retry would recover the same money twice.
func (s *Service) SettleEarning(ctx context.Context, earningID uuid.UUID) (*domain.MusicEarning, error) {
	earning, err := s.repo.ClaimEarningForSettlement(ctx, earningID)
	if err != nil {
		return nil, fmt.Errorf("claim earning: %w", err)
	}
	if earning == nil {
		return nil, nil
	}

	royaltyTotal, err := s.repo.SumRoyaltiesForEarning(ctx, earning.ID)
	if err != nil {
		s.releaseClaim(ctx, earning.ID)
		return nil, fmt.Errorf("sum royalties: %w", err)
	}

	// The store reports what it actually recovered under row locks, so a
	// concurrent settlement on the same release cannot make the waterfall
	// assume money that was already taken.
	recovered, err := s.repo.ConsumeRecuperableBalance(ctx, earning.ReleaseID, earning.Amount)
	if err != nil {
		s.releaseClaim(ctx, earning.ID)
		return nil, fmt.Errorf("consume recuperable balance: %w", err)
	}

	result := settlement.Run(earning.Amount, settlement.MusicStages(recovered, royaltyTotal))

	fee, err := s.musicPlatformFee(ctx, earning, result.Net)
	if err != nil {
		s.escalateStuckSettlement(ctx, earning, err)
		return nil, err
	}

	settledAt := time.Now().UTC()
	if err := s.repo.MarkEarningSettled(ctx, earning.ID, result.Net, fee.Total, settledAt); err != nil {
		s.escalateStuckSettlement(ctx, earning, err)
		return nil, fmt.Errorf("mark earning settled: %w", err)
	}

	earning.NetRevenue = result.Net
	earning.PlatformFee = fee.Total
	earning.Status = domain.EarningStatusSettled
	earning.SettledAt = &settledAt

	log.Printf("level=info component=admin msg=\"earning settled\" earning_id=%s net=%s platform_fee=%s",
		earning.ID, result.Net.StringFixed(2), fee.Total.StringFixed(2))

	if s.publisher != nil {
		payload := domain.EarningSettledEvent{
			EarningID:   earning.ID.String(),
			ReleaseID:   earning.ReleaseID.String(),
			Amount:      earning.Amount.StringFixed(2),
			NetRevenue:  result.Net.StringFixed(2),
			PlatformFee: fee.Total.StringFixed(2),
			SettledAt:   settledAt,
		}
		if err := s.publisher.Publish(ctx, EventsExchange, "settlement.earning.settled", payload); err != nil {
			log.Printf("level=warn component=admin msg=\"failed to publish earning settled event\" earning_id=%s err=%v", earning.ID, err)
		}
	}

	return earning, nil
}

// OutstandingRecuperableBalance reports the remaining unrecovered expense
// balance for a release.
func (s *Service) OutstandingRecuperableBalance(ctx context.Context, releaseID uuid.UUID) (decimal.Decimal, error) {
	return s.repo.OutstandingRecuperableBalance(ctx, releaseID)
}

// releaseClaim hands a claimed earning back to pending, best effort.
func (s *Service) releaseClaim(ctx context.Context, earningID uuid.UUID) {
	if err := s.repo.ReleaseEarningClaim(ctx, earningID); err != nil {
		log.Printf("level=warn component=admin msg=\"failed to release earning claim\" earning_id=%s err=%v", earningID, err)
	}
}

// escalateStuckSettlement records an earning left in settling after its
// release balance was already drained. Only a human can reconcile it.
func (s *Service) escalateStuckSettlement(ctx context.Context, earning *domain.MusicEarning, cause error) {
	s.escalator.Escalate(ctx, domain.EscalationStorageFailure, "",
		fmt.Sprintf("earning %s stuck in settling after balance recovery: %v", earning.ID, cause), nil, true)
}

func (s *Service) musicPlatformFee(ctx context.Context, earning *domain.MusicEarning, net decimal.Decimal) (settlement.FeeResult, error) {
	feeCfg := settlement.ZeroFeeConfig()
	brandCfg, err := s.repo.GetBrandFeeConfig(ctx, earning.BrandID)
	if err != nil {
		if !errors.Is(err, store.ErrFeeConfigNotFound) {
			return settlement.FeeResult{}, fmt.Errorf("load brand fee config: %w", err)
		}
	} else {
		fixed, percent, basis := brandCfg.ForDomain(domain.RevenueDomainMusic)
		feeCfg = settlement.FeeConfig{Fixed: fixed, Percent: percent, Basis: basis}
	}
	return settlement.ComputeFee(feeCfg, earning.Amount, net), nil
}
