/**
 * @description
 * Domain model for the order entities the settlement core mutates: event
 * tickets and fundraiser donations. Both share the same lifecycle, driven by
 * payment gateway webhooks and explicit administrative actions. Orders are
 * never deleted; every state change is a status transition kept for audit.
 */
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderKind distinguishes the two order-shaped revenue sources.
type OrderKind string

const (
	OrderKindTicket   OrderKind = "ticket"
	OrderKindDonation OrderKind = "donation"
)

// RevenueDomain maps an order kind onto the fee configuration slice that
// governs it.
func (k OrderKind) RevenueDomain() RevenueDomain {
	if k == OrderKindDonation {
		return RevenueDomainFundraiser
	}
	return RevenueDomainEvent
}

// OrderStatus enumerates the order lifecycle states.
type OrderStatus string

const (
	OrderStatusNew              OrderStatus = "new"
	OrderStatusPaymentConfirmed OrderStatus = "payment_confirmed"
	OrderStatusSent             OrderStatus = "sent"
	OrderStatusCanceled         OrderStatus = "canceled"
	OrderStatusRefunded         OrderStatus = "refunded"
)

// PaymentReflected reports whether the status already accounts for a
// confirmed payment. A webhook replay against such an order is a no-op.
func (s OrderStatus) PaymentReflected() bool {
	switch s {
	case OrderStatusPaymentConfirmed, OrderStatusSent, OrderStatusRefunded:
		return true
	default:
		return false
	}
}

// Absorbing reports whether the status permits no further transitions.
func (s OrderStatus) Absorbing() bool {
	return s == OrderStatusCanceled || s == OrderStatusRefunded
}

// CanResend reports whether a manual confirmation resend is permitted.
func (s OrderStatus) CanResend() bool {
	return s == OrderStatusPaymentConfirmed || s == OrderStatusSent
}

// CanCancel reports whether an administrative cancel is permitted.
func (s OrderStatus) CanCancel() bool {
	return s == OrderStatusNew || s == OrderStatusPaymentConfirmed
}

// Order is a ticket or donation row. CorrelationKey is the gateway link or
// checkout-session identifier assigned at order time; it is immutable and is
// the sole lookup key for incoming webhooks.
type Order struct {
	ID                   uuid.UUID       `json:"id"`
	Kind                 OrderKind       `json:"kind"`
	BrandID              uuid.UUID       `json:"brand_id"`
	BuyerEmail           string          `json:"buyer_email"`
	Description          string          `json:"description"`
	UnitPrice            decimal.Decimal `json:"unit_price"`
	Quantity             int             `json:"quantity"`
	Status               OrderStatus     `json:"status"`
	CorrelationKey       string          `json:"correlation_key"`
	PaymentProcessingFee decimal.Decimal `json:"payment_processing_fee"`
	PlatformFee          decimal.Decimal `json:"platform_fee"`
	DatePaid             *time.Time      `json:"date_paid,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// GrossAmount is the full order value before any deductions.
func (o *Order) GrossAmount() decimal.Decimal {
	qty := o.Quantity
	if qty < 1 {
		qty = 1
	}
	return o.UnitPrice.Mul(decimal.NewFromInt(int64(qty)))
}
