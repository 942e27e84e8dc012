/**
 * @description
 * This file models the webhook payloads delivered by the payment gateway.
 * The gateway's event taxonomy is a closed, versioned contract: an envelope
 * carrying an event type of either "link" or "checkout_session", a nested
 * resource holding the correlation identifier, and zero or more embedded
 * payment attempts each optionally reporting a processing fee in minor
 * currency units. Anything outside that contract is rejected at the parsing
 * boundary rather than widened silently downstream.
 */
package domain

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrMalformedPayload flags a body that is not valid JSON or is missing
	// required envelope fields.
	ErrMalformedPayload = errors.New("malformed gateway payload")
	// ErrUnsupportedEventType flags an event type outside the closed contract.
	ErrUnsupportedEventType = errors.New("unsupported gateway event type")
	// ErrMissingCorrelationKey flags an event whose resource carries no
	// identifier to resolve an order with.
	ErrMissingCorrelationKey = errors.New("gateway event missing correlation key")
)

// GatewayEventType enumerates the recognized gateway event shapes.
type GatewayEventType string

const (
	GatewayEventLink            GatewayEventType = "link"
	GatewayEventCheckoutSession GatewayEventType = "checkout_session"
)

// PaymentAttempt is one payment attempt embedded in a gateway event. A single
// event may bundle several attempts; every reported fee contributes to the
// order's processing fee total.
type PaymentAttempt struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	FeeMinor  *int64 `json:"fee,omitempty"`
}

// GatewayEvent is the closed tagged union of recognized webhook shapes,
// resolved once at the parsing boundary.
type GatewayEvent interface {
	// Type identifies the concrete shape.
	Type() GatewayEventType
	// EventID is the gateway's delivery identifier, used for replay suppression.
	EventID() string
	// CorrelationKey is the shape-specific identifier that resolves the event
	// to exactly one order.
	CorrelationKey() string
	// Attempts returns the embedded payment attempts.
	Attempts() []PaymentAttempt

	isGatewayEvent()
}

// LinkEvent is a webhook for a payment link.
type LinkEvent struct {
	ID       string
	LinkID   string
	Payments []PaymentAttempt
}

func (e LinkEvent) Type() GatewayEventType { return GatewayEventLink }

func (e LinkEvent) EventID() string { return e.ID }

func (e LinkEvent) CorrelationKey() string { return e.LinkID }

func (e LinkEvent) Attempts() []PaymentAttempt { return e.Payments }

func (e LinkEvent) isGatewayEvent() {}

// CheckoutSessionEvent is a webhook for a hosted checkout session. The
// session client key, not the session id, is what order rows store.
type CheckoutSessionEvent struct {
	ID        string
	SessionID string
	ClientKey string
	Payments  []PaymentAttempt
}

func (e CheckoutSessionEvent) Type() GatewayEventType { return GatewayEventCheckoutSession }

func (e CheckoutSessionEvent) EventID() string { return e.ID }

func (e CheckoutSessionEvent) CorrelationKey() string { return e.ClientKey }

func (e CheckoutSessionEvent) Attempts() []PaymentAttempt { return e.Payments }

func (e CheckoutSessionEvent) isGatewayEvent() {}

// TotalProcessingFee sums the reported fee across all payment attempts and
// converts it from minor units. Attempts without a fee contribute nothing.
func TotalProcessingFee(attempts []PaymentAttempt) decimal.Decimal {
	total := decimal.Zero
	for _, attempt := range attempts {
		if attempt.FeeMinor == nil {
			continue
		}
		total = total.Add(FromMinorUnits(*attempt.FeeMinor))
	}
	return total
}

type gatewayEnvelope struct {
	Event string `json:"event"`
	ID    string `json:"id"`
	Data  struct {
		Link struct {
			ID string `json:"id"`
		} `json:"link"`
		Session struct {
			ID        string `json:"id"`
			ClientKey string `json:"client_key"`
		} `json:"session"`
		Payments []PaymentAttempt `json:"payments"`
	} `json:"data"`
}

// ParseGatewayEvent decodes a raw webhook body into one of the recognized
// event shapes. It is the only place the wire format is inspected.
func ParseGatewayEvent(raw []byte) (GatewayEvent, error) {
	var envelope gatewayEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, ErrMalformedPayload
	}

	eventType := strings.TrimSpace(strings.ToLower(envelope.Event))
	if eventType == "" {
		return nil, ErrMalformedPayload
	}

	switch GatewayEventType(eventType) {
	case GatewayEventLink:
		if strings.TrimSpace(envelope.Data.Link.ID) == "" {
			return nil, ErrMissingCorrelationKey
		}
		return LinkEvent{
			ID:       envelope.ID,
			LinkID:   envelope.Data.Link.ID,
			Payments: envelope.Data.Payments,
		}, nil
	case GatewayEventCheckoutSession:
		if strings.TrimSpace(envelope.Data.Session.ClientKey) == "" {
			return nil, ErrMissingCorrelationKey
		}
		return CheckoutSessionEvent{
			ID:        envelope.ID,
			SessionID: envelope.Data.Session.ID,
			ClientKey: envelope.Data.Session.ClientKey,
			Payments:  envelope.Data.Payments,
		}, nil
	default:
		return nil, ErrUnsupportedEventType
	}
}
