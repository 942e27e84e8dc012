package config

import (
	"testing"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ServerPort != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.ServerPort)
	}
	if cfg.TicketNetHaircutPercent != 0.5 {
		t.Fatalf("expected default haircut 0.5, got %f", cfg.TicketNetHaircutPercent)
	}
	if cfg.WebhookReplayTTLMin != 60 {
		t.Fatalf("expected default replay TTL 60, got %d", cfg.WebhookReplayTTLMin)
	}
	if cfg.NotifyTimeoutSeconds != 10 {
		t.Fatalf("expected default notify timeout 10, got %d", cfg.NotifyTimeoutSeconds)
	}
	if cfg.EarningSettlementSchedule != "*/15 * * * *" {
		t.Fatalf("unexpected default settlement schedule %q", cfg.EarningSettlementSchedule)
	}
	if cfg.StaleOrderTTLHours != 0 {
		t.Fatalf("stale order sweep must be off by default, got %d", cfg.StaleOrderTTLHours)
	}
	if cfg.SweepBatchSize != 100 {
		t.Fatalf("expected default sweep batch 100, got %d", cfg.SweepBatchSize)
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("GATEWAY_WEBHOOK_SECRET", "  whsec_abc  ")
	t.Setenv("TICKET_NET_HAIRCUT_PERCENT", "1.25")
	t.Setenv("STALE_ORDER_TTL_HOURS", "72")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ServerPort != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.ServerPort)
	}
	if cfg.GatewayWebhookSecret != "whsec_abc" {
		t.Fatalf("expected trimmed secret, got %q", cfg.GatewayWebhookSecret)
	}
	if cfg.TicketNetHaircutPercent != 1.25 {
		t.Fatalf("expected haircut 1.25, got %f", cfg.TicketNetHaircutPercent)
	}
	if cfg.StaleOrderTTLHours != 72 {
		t.Fatalf("expected stale TTL 72, got %d", cfg.StaleOrderTTLHours)
	}
}

func TestLoadConfig_HaircutClamping(t *testing.T) {
	t.Run("negative coerces to zero", func(t *testing.T) {
		t.Setenv("TICKET_NET_HAIRCUT_PERCENT", "-3")
		cfg, err := LoadConfig(t.TempDir())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.TicketNetHaircutPercent != 0 {
			t.Fatalf("expected 0, got %f", cfg.TicketNetHaircutPercent)
		}
	})

	t.Run("above hundred caps", func(t *testing.T) {
		t.Setenv("TICKET_NET_HAIRCUT_PERCENT", "250")
		cfg, err := LoadConfig(t.TempDir())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.TicketNetHaircutPercent != 100 {
			t.Fatalf("expected 100, got %f", cfg.TicketNetHaircutPercent)
		}
	})
}

func TestLoadConfig_NonPositiveKnobsFallBack(t *testing.T) {
	t.Setenv("WEBHOOK_REPLAY_TTL_MINUTES", "0")
	t.Setenv("NOTIFY_TIMEOUT_SECONDS", "-5")
	t.Setenv("SWEEP_BATCH_SIZE", "0")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.WebhookReplayTTLMin != 60 {
		t.Fatalf("expected replay TTL fallback 60, got %d", cfg.WebhookReplayTTLMin)
	}
	if cfg.NotifyTimeoutSeconds != 10 {
		t.Fatalf("expected notify timeout fallback 10, got %d", cfg.NotifyTimeoutSeconds)
	}
	if cfg.SweepBatchSize != 100 {
		t.Fatalf("expected sweep batch fallback 100, got %d", cfg.SweepBatchSize)
	}
}
