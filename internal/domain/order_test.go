package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestOrderStatusPredicates(t *testing.T) {
	cases := []struct {
		status    OrderStatus
		reflected bool
		absorbing bool
		resend    bool
		cancel    bool
	}{
		{OrderStatusNew, false, false, false, true},
		{OrderStatusPaymentConfirmed, true, false, true, true},
		{OrderStatusSent, true, false, true, false},
		{OrderStatusCanceled, false, true, false, false},
		{OrderStatusRefunded, true, true, false, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			if got := tc.status.PaymentReflected(); got != tc.reflected {
				t.Fatalf("PaymentReflected = %v, want %v", got, tc.reflected)
			}
			if got := tc.status.Absorbing(); got != tc.absorbing {
				t.Fatalf("Absorbing = %v, want %v", got, tc.absorbing)
			}
			if got := tc.status.CanResend(); got != tc.resend {
				t.Fatalf("CanResend = %v, want %v", got, tc.resend)
			}
			if got := tc.status.CanCancel(); got != tc.cancel {
				t.Fatalf("CanCancel = %v, want %v", got, tc.cancel)
			}
		})
	}
}

func TestOrderKindRevenueDomain(t *testing.T) {
	if got := OrderKindTicket.RevenueDomain(); got != RevenueDomainEvent {
		t.Fatalf("ticket maps to %s, want event", got)
	}
	if got := OrderKindDonation.RevenueDomain(); got != RevenueDomainFundraiser {
		t.Fatalf("donation maps to %s, want fundraiser", got)
	}
}

func TestOrderGrossAmount(t *testing.T) {
	order := &Order{UnitPrice: decimal.RequireFromString("500.00"), Quantity: 2}
	if !order.GrossAmount().Equal(decimal.RequireFromString("1000.00")) {
		t.Fatalf("expected 1000.00, got %s", order.GrossAmount())
	}

	// Legacy rows with a zero quantity are treated as a single unit.
	order.Quantity = 0
	if !order.GrossAmount().Equal(decimal.RequireFromString("500.00")) {
		t.Fatalf("expected 500.00, got %s", order.GrossAmount())
	}
}
