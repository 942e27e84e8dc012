package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseGatewayEvent_Link(t *testing.T) {
	raw := []byte(`{"event":"link","id":"evt_1","data":{"link":{"id":"plink_9"},"payments":[{"reference":"pay_1","status":"successful","fee":2000},{"reference":"pay_2","status":"failed"}]}}`)

	event, err := ParseGatewayEvent(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	link, ok := event.(LinkEvent)
	if !ok {
		t.Fatalf("expected LinkEvent, got %T", event)
	}
	if link.EventID() != "evt_1" {
		t.Fatalf("expected event id evt_1, got %q", link.EventID())
	}
	if link.CorrelationKey() != "plink_9" {
		t.Fatalf("expected correlation key plink_9, got %q", link.CorrelationKey())
	}
	if len(link.Attempts()) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(link.Attempts()))
	}
}

func TestParseGatewayEvent_CheckoutSession(t *testing.T) {
	raw := []byte(`{"event":"checkout_session","id":"evt_2","data":{"session":{"id":"cs_1","client_key":"ck_7"},"payments":[]}}`)

	event, err := ParseGatewayEvent(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Type() != GatewayEventCheckoutSession {
		t.Fatalf("expected checkout_session, got %s", event.Type())
	}
	// The client key, not the session id, resolves the order.
	if event.CorrelationKey() != "ck_7" {
		t.Fatalf("expected ck_7, got %q", event.CorrelationKey())
	}
}

func TestParseGatewayEvent_Rejections(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want error
	}{
		{"invalid json", `{`, ErrMalformedPayload},
		{"empty event type", `{"event":"","data":{}}`, ErrMalformedPayload},
		{"unknown event type", `{"event":"transfer.settled","data":{}}`, ErrUnsupportedEventType},
		{"link without id", `{"event":"link","data":{"link":{"id":"  "}}}`, ErrMissingCorrelationKey},
		{"session without client key", `{"event":"checkout_session","data":{"session":{"id":"cs_1"}}}`, ErrMissingCorrelationKey},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseGatewayEvent([]byte(tc.raw))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestTotalProcessingFee(t *testing.T) {
	fee := func(minor int64) *int64 { return &minor }

	attempts := []PaymentAttempt{
		{Reference: "pay_1", Status: "successful", FeeMinor: fee(2000)},
		{Reference: "pay_2", Status: "failed"},
		{Reference: "pay_3", Status: "successful", FeeMinor: fee(1500)},
	}

	total := TotalProcessingFee(attempts)
	if !total.Equal(decimal.RequireFromString("35.00")) {
		t.Fatalf("expected 35.00, got %s", total)
	}

	if !TotalProcessingFee(nil).IsZero() {
		t.Fatal("no attempts means a zero fee")
	}
}
