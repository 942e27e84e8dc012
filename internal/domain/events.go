package domain

import "time"

// EscalationReason codes every failure path the webhook processor can take.
type EscalationReason string

const (
	EscalationInvalidSignature    EscalationReason = "invalid_signature"
	EscalationMalformedPayload    EscalationReason = "malformed_payload"
	EscalationUnsupportedEvent    EscalationReason = "unsupported_event_type"
	EscalationOrderNotFound       EscalationReason = "order_not_found"
	EscalationStorageFailure      EscalationReason = "storage_failure"
	EscalationNotificationFailure EscalationReason = "notification_failure"
	// EscalationCanceledOrderPayment flags a confirmed payment arriving for
	// an order in an absorbing state. The order is left untouched, but money
	// moved against it, so a human needs to reconcile.
	EscalationCanceledOrderPayment EscalationReason = "canceled_order_payment"
)

// EscalationEvent is published to the events exchange whenever settlement
// needs a human to look at something. The raw payload rides along so the
// delivery can be replayed forensically.
type EscalationEvent struct {
	Reason         EscalationReason `json:"reason"`
	CorrelationKey string           `json:"correlation_key,omitempty"`
	Detail         string           `json:"detail,omitempty"`
	RawPayload     string           `json:"raw_payload,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
}

// OrderConfirmedEvent announces a completed payment confirmation.
type OrderConfirmedEvent struct {
	OrderID              string    `json:"order_id"`
	Kind                 OrderKind `json:"kind"`
	CorrelationKey       string    `json:"correlation_key"`
	GrossAmount          string    `json:"gross_amount"`
	PaymentProcessingFee string    `json:"payment_processing_fee"`
	PlatformFee          string    `json:"platform_fee"`
	PaidAt               time.Time `json:"paid_at"`
}

// EarningSettledEvent announces a settled music earning.
type EarningSettledEvent struct {
	EarningID   string    `json:"earning_id"`
	ReleaseID   string    `json:"release_id"`
	Amount      string    `json:"amount"`
	NetRevenue  string    `json:"net_revenue"`
	PlatformFee string    `json:"platform_fee"`
	SettledAt   time.Time `json:"settled_at"`
}
