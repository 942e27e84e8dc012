/**
 * @description
 * The payment webhook processor: the orchestration layer that turns a
 * verified gateway delivery into exactly one order state transition. It owns
 * no money math itself; the waterfall and fee calculator are pure functions
 * in internal/settlement, and all I/O goes through the store, the mailer
 * client and the event producer.
 *
 * Every path through ProcessEvent returns a definite Outcome so the HTTP
 * layer can acknowledge the gateway appropriately: permanently-invalid
 * deliveries are acknowledged so the gateway stops retrying, while storage
 * failures are not, so it retries later.
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

// Mailer is the notification dispatch collaborator. Both calls are
// best-effort for the processor; a failure never rolls back a confirmed
// payment.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, order *domain.Order) error
	SendAdminAlert(ctx context.Context, subject, body string) error
}

// EventPublisher defines the interface for publishing internal events.
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

// ReplayCache suppresses duplicate deliveries that already reached an
// acknowledged outcome. Seen never writes; Mark is called only once an
// outcome is acknowledged, so an unacknowledged failure leaves the
// redelivery free to run again. Errors are treated as a miss; correctness
// does not depend on the cache, only on the conditional confirm in the store.
type ReplayCache interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

// OutcomeCode classifies the result of processing one delivery.
type OutcomeCode string

const (
	OutcomeConfirmed        OutcomeCode = "confirmed"
	OutcomeAlreadyConfirmed OutcomeCode = "already_confirmed"
	OutcomeDuplicateEvent   OutcomeCode = "duplicate_event"
	OutcomeOrderAbsorbed    OutcomeCode = "order_absorbed"
	OutcomeMalformedPayload OutcomeCode = "malformed_payload"
	OutcomeUnsupportedEvent OutcomeCode = "unsupported_event_type"
	OutcomeOrderNotFound    OutcomeCode = "order_not_found"
	OutcomeStorageFailure   OutcomeCode = "storage_failure"
)

// Outcome is the processor's definite answer for one delivery. Ack tells the
// HTTP layer whether to return success to the gateway; only storage failures
// withhold the acknowledgement so the gateway redelivers.
type Outcome struct {
	Code   OutcomeCode
	Ack    bool
	Detail string
}

// WebhookProcessor drives order state from gateway deliveries.
type WebhookProcessor struct {
	repo           store.Repository
	mailer         Mailer
	escalator      *Escalator
	replay         ReplayCache
	publisher      EventPublisher
	haircutPercent decimal.Decimal
	notifyTimeout  time.Duration
}

// NewWebhookProcessor wires the processor. publisher and replay may be nil.
func NewWebhookProcessor(repo store.Repository, mailer Mailer, escalator *Escalator, replay ReplayCache, publisher EventPublisher, haircutPercent decimal.Decimal, notifyTimeout time.Duration) *WebhookProcessor {
	if notifyTimeout <= 0 {
		notifyTimeout = 10 * time.Second
	}
	return &WebhookProcessor{
		repo:           repo,
		mailer:         mailer,
		escalator:      escalator,
		replay:         replay,
		publisher:      publisher,
		haircutPercent: haircutPercent,
		notifyTimeout:  notifyTimeout,
	}
}

// ProcessEvent handles one webhook body whose signature has already been
// verified by the HTTP layer.
func (p *WebhookProcessor) ProcessEvent(ctx context.Context, raw []byte) Outcome {
	event, err := domain.ParseGatewayEvent(raw)
	if err != nil {
		return p.rejectParse(ctx, raw, err)
	}

	if p.replay != nil && event.EventID() != "" {
		seen, cacheErr := p.replay.Seen(ctx, event.EventID())
		if cacheErr != nil {
			log.Printf("level=warn component=webhook msg=\"replay cache unavailable\" event_id=%s err=%v", event.EventID(), cacheErr)
		} else if seen {
			log.Printf("level=info component=webhook msg=\"duplicate delivery suppressed\" event_id=%s", event.EventID())
			return Outcome{Code: OutcomeDuplicateEvent, Ack: true}
		}
	}

	outcome := p.handleEvent(ctx, event, raw)

	// Only acknowledged outcomes are remembered. An unacknowledged failure
	// must not suppress the redelivery it asked the gateway for.
	if outcome.Ack && p.replay != nil && event.EventID() != "" {
		if err := p.replay.Mark(ctx, event.EventID()); err != nil {
			log.Printf("level=warn component=webhook msg=\"failed to mark event in replay cache\" event_id=%s err=%v", event.EventID(), err)
		}
	}

	return outcome
}

func (p *WebhookProcessor) handleEvent(ctx context.Context, event domain.GatewayEvent, raw []byte) Outcome {
	order, err := p.repo.FindOrderByCorrelationKey(ctx, event.CorrelationKey())
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			// The most serious failure mode: money may have moved with no
			// record to attach it to.
			p.escalator.Escalate(ctx, domain.EscalationOrderNotFound, event.CorrelationKey(),
				fmt.Sprintf("no order matches %s event %s", event.Type(), event.EventID()), raw, true)
			return Outcome{Code: OutcomeOrderNotFound, Ack: true, Detail: event.CorrelationKey()}
		}
		p.escalator.Escalate(ctx, domain.EscalationStorageFailure, event.CorrelationKey(), err.Error(), raw, false)
		return Outcome{Code: OutcomeStorageFailure, Ack: false}
	}

	if order.Status.PaymentReflected() {
		// Webhooks are delivered at least once; a replay for a confirmed
		// order is success, not an error.
		log.Printf("level=info component=webhook msg=\"idempotent replay for confirmed order\" order_id=%s status=%s", order.ID, order.Status)
		return Outcome{Code: OutcomeAlreadyConfirmed, Ack: true}
	}

	if order.Status.Absorbing() {
		// A canceled order must never be reopened, even by a real payment.
		p.escalator.Escalate(ctx, domain.EscalationCanceledOrderPayment, order.CorrelationKey,
			fmt.Sprintf("payment webhook for %s order %s", order.Status, order.ID), raw, true)
		return Outcome{Code: OutcomeOrderAbsorbed, Ack: true}
	}

	processingFee := domain.TotalProcessingFee(event.Attempts())
	platformFee, err := p.computePlatformFee(ctx, order, processingFee)
	if err != nil {
		p.escalator.Escalate(ctx, domain.EscalationStorageFailure, order.CorrelationKey, err.Error(), raw, false)
		return Outcome{Code: OutcomeStorageFailure, Ack: false}
	}

	paidAt := time.Now().UTC()
	confirmed, err := p.repo.ConfirmOrderPayment(ctx, order.ID, processingFee, platformFee.Total, paidAt)
	if err != nil {
		p.escalator.Escalate(ctx, domain.EscalationStorageFailure, order.CorrelationKey, err.Error(), raw, false)
		return Outcome{Code: OutcomeStorageFailure, Ack: false}
	}
	if confirmed == nil {
		return p.classifyLostClaim(ctx, order.ID, raw)
	}

	log.Printf("level=info component=webhook msg=\"payment confirmed\" order_id=%s processing_fee=%s platform_fee=%s",
		confirmed.ID, processingFee.String(), platformFee.Total.String())

	p.dispatchConfirmation(ctx, confirmed, raw)
	p.sendAdminSummary(ctx, confirmed.ID, raw)
	p.publishConfirmed(ctx, confirmed)

	return Outcome{Code: OutcomeConfirmed, Ack: true}
}

func (p *WebhookProcessor) rejectParse(ctx context.Context, raw []byte, err error) Outcome {
	switch {
	case errors.Is(err, domain.ErrUnsupportedEventType):
		p.escalator.Escalate(ctx, domain.EscalationUnsupportedEvent, "", err.Error(), raw, false)
		return Outcome{Code: OutcomeUnsupportedEvent, Ack: true}
	default:
		p.escalator.Escalate(ctx, domain.EscalationMalformedPayload, "", err.Error(), raw, false)
		return Outcome{Code: OutcomeMalformedPayload, Ack: true}
	}
}

// classifyLostClaim refetches after a lost conditional confirm to decide
// between an idempotent replay and an absorbed order.
func (p *WebhookProcessor) classifyLostClaim(ctx context.Context, orderID uuid.UUID, raw []byte) Outcome {
	fresh, err := p.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		p.escalator.Escalate(ctx, domain.EscalationStorageFailure, "", err.Error(), raw, false)
		return Outcome{Code: OutcomeStorageFailure, Ack: false}
	}
	if fresh.Status.PaymentReflected() {
		log.Printf("level=info component=webhook msg=\"concurrent delivery lost confirm race\" order_id=%s", orderID)
		return Outcome{Code: OutcomeAlreadyConfirmed, Ack: true}
	}
	if fresh.Status.Absorbing() {
		p.escalator.Escalate(ctx, domain.EscalationCanceledOrderPayment, fresh.CorrelationKey,
			fmt.Sprintf("payment webhook raced an administrative %s on order %s", fresh.Status, orderID), raw, true)
		return Outcome{Code: OutcomeOrderAbsorbed, Ack: true}
	}
	// Still new after a lost claim should not happen; let the gateway retry.
	return Outcome{Code: OutcomeStorageFailure, Ack: false}
}

func (p *WebhookProcessor) computePlatformFee(ctx context.Context, order *domain.Order, processingFee decimal.Decimal) (settlement.FeeResult, error) {
	feeCfg := settlement.ZeroFeeConfig()
	brandCfg, err := p.repo.GetBrandFeeConfig(ctx, order.BrandID)
	if err != nil {
		if !errors.Is(err, store.ErrFeeConfigNotFound) {
			return settlement.FeeResult{}, fmt.Errorf("load brand fee config: %w", err)
		}
		// Brands that never configured fees settle with a zero fee rather
		// than blocking payment confirmation.
		log.Printf("level=info component=webhook msg=\"no fee config for brand; settling with zero fee\" brand_id=%s", order.BrandID)
	} else {
		fixed, percent, basis := brandCfg.ForDomain(order.Kind.RevenueDomain())
		feeCfg = settlement.FeeConfig{Fixed: fixed, Percent: percent, Basis: basis}
	}

	gross := order.GrossAmount()
	net := settlement.OrderNet(gross, processingFee, p.haircutPercent)
	return settlement.ComputeFee(feeCfg, gross, net), nil
}

// dispatchConfirmation attempts the buyer confirmation email and, on
// success, advances the order to sent. Failure leaves the order in
// payment_confirmed for a manual resend.
func (p *WebhookProcessor) dispatchConfirmation(ctx context.Context, order *domain.Order, raw []byte) {
	notifyCtx, cancel := context.WithTimeout(ctx, p.notifyTimeout)
	defer cancel()

	if err := p.mailer.SendOrderConfirmation(notifyCtx, order); err != nil {
		p.escalator.Escalate(ctx, domain.EscalationNotificationFailure, order.CorrelationKey,
			fmt.Sprintf("confirmation dispatch failed for order %s: %v", order.ID, err), raw, true)
		return
	}

	if err := p.repo.MarkOrderSent(ctx, order.ID); err != nil {
		if errors.Is(err, store.ErrOrderNotDispatchable) {
			log.Printf("level=info component=webhook msg=\"sent transition superseded by another status change\" order_id=%s", order.ID)
			return
		}
		log.Printf("level=warn component=webhook msg=\"confirmation sent but sent transition failed\" order_id=%s err=%v", order.ID, err)
	}
}

// sendAdminSummary reloads the order so the summary reflects the fees just
// persisted, then attempts the administrative notification. Failure here
// never touches the payment outcome.
func (p *WebhookProcessor) sendAdminSummary(ctx context.Context, orderID uuid.UUID, raw []byte) {
	fresh, err := p.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		log.Printf("level=warn component=webhook msg=\"reload for admin summary failed\" order_id=%s err=%v", orderID, err)
		return
	}

	notifyCtx, cancel := context.WithTimeout(ctx, p.notifyTimeout)
	defer cancel()

	subject := fmt.Sprintf("Payment confirmed: %s %s", fresh.Kind, fresh.ID)
	body := fmt.Sprintf(
		"Order %s (%s) paid. Gross %s, processing fee %s, platform fee %s.",
		fresh.ID, fresh.Description, fresh.GrossAmount().StringFixed(2),
		fresh.PaymentProcessingFee.StringFixed(2), fresh.PlatformFee.StringFixed(2),
	)
	if err := p.mailer.SendAdminAlert(notifyCtx, subject, body); err != nil {
		p.escalator.Escalate(ctx, domain.EscalationNotificationFailure, fresh.CorrelationKey,
			fmt.Sprintf("admin summary failed for order %s: %v", fresh.ID, err), raw, false)
	}
}

func (p *WebhookProcessor) publishConfirmed(ctx context.Context, order *domain.Order) {
	if p.publisher == nil {
		return
	}
	payload := domain.OrderConfirmedEvent{
		OrderID:              order.ID.String(),
		Kind:                 order.Kind,
		CorrelationKey:       order.CorrelationKey,
		GrossAmount:          order.GrossAmount().StringFixed(2),
		PaymentProcessingFee: order.PaymentProcessingFee.StringFixed(2),
		PlatformFee:          order.PlatformFee.StringFixed(2),
		PaidAt:               time.Now().UTC(),
	}
	if order.DatePaid != nil {
		payload.PaidAt = *order.DatePaid
	}
	if err := p.publisher.Publish(ctx, EventsExchange, "settlement.order.confirmed", payload); err != nil {
		log.Printf("level=warn component=webhook msg=\"failed to publish order confirmed event\" order_id=%s err=%v", order.ID, err)
	}
}
