package settlement

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/labelhq/settlement-service/internal/domain"
)

func TestComputeFee_TicketScenario(t *testing.T) {
	// Gross 500.00 x 2 = 1000.00, gateway fee 35.00, fixed 10.00, 5% on net.
	// Net = (1000.00 - 35.00) * 0.995 = 960.175 -> percent 48.00875 ->
	// total round2(10.00 + 48.00875) = 58.01.
	gross := d(t, "1000.00")
	net := OrderNet(gross, d(t, "35.00"), d(t, "0.5"))
	if !net.Equal(d(t, "960.175")) {
		t.Fatalf("expected net 960.175, got %s", net)
	}

	cfg := FeeConfig{Fixed: d(t, "10.00"), Percent: d(t, "5"), Basis: domain.RevenueBasisNet}
	result := ComputeFee(cfg, gross, net)

	if !result.Fixed.Equal(d(t, "10.00")) {
		t.Fatalf("expected fixed 10.00, got %s", result.Fixed)
	}
	if !result.Percent.Equal(d(t, "48.01")) {
		t.Fatalf("expected percent 48.01, got %s", result.Percent)
	}
	if !result.Total.Equal(d(t, "58.01")) {
		t.Fatalf("expected total 58.01, got %s", result.Total)
	}
}

func TestComputeFee_Additivity(t *testing.T) {
	cases := []struct {
		name    string
		fixed   string
		percent string
		basis   domain.RevenueBasis
		gross   string
		net     string
		total   string
	}{
		{"all zero", "0", "0", domain.RevenueBasisGross, "100.00", "90.00", "0"},
		{"fixed only", "25.00", "0", domain.RevenueBasisGross, "100.00", "90.00", "25.00"},
		{"percent on gross", "0", "10", domain.RevenueBasisGross, "123.45", "90.00", "12.35"},
		{"percent on net", "0", "10", domain.RevenueBasisNet, "123.45", "90.00", "9.00"},
		{"fixed plus percent", "5.00", "2.5", domain.RevenueBasisGross, "1000.00", "0", "30.00"},
		{"rounding at final sum only", "0.004", "5", domain.RevenueBasisGross, "0.10", "0", "0.01"},
		{"negative fixed clamped", "-4.00", "0", domain.RevenueBasisGross, "100.00", "0", "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := FeeConfig{Fixed: d(t, tc.fixed), Percent: d(t, tc.percent), Basis: tc.basis}
			result := ComputeFee(cfg, d(t, tc.gross), d(t, tc.net))

			if !result.Total.Equal(d(t, tc.total)) {
				t.Fatalf("expected total %s, got %s", tc.total, result.Total)
			}
			if result.Total.IsNegative() {
				t.Fatalf("total fee must never be negative, got %s", result.Total)
			}
		})
	}
}

func TestComputeFee_BasisSelection(t *testing.T) {
	gross := d(t, "1000.00")
	cfgNet := FeeConfig{Fixed: decimal.Zero, Percent: d(t, "5"), Basis: domain.RevenueBasisNet}
	cfgGross := FeeConfig{Fixed: decimal.Zero, Percent: d(t, "5"), Basis: domain.RevenueBasisGross}
	haircut := d(t, "0.5")

	// On a net basis, a larger processing fee must shrink the percentage fee.
	lowFee := ComputeFee(cfgNet, gross, OrderNet(gross, d(t, "10.00"), haircut))
	highFee := ComputeFee(cfgNet, gross, OrderNet(gross, d(t, "50.00"), haircut))
	if !highFee.Total.LessThan(lowFee.Total) {
		t.Fatalf("net-basis fee should fall as processing fee rises: %s vs %s", highFee.Total, lowFee.Total)
	}

	// On a gross basis the processing fee must have no effect.
	grossLow := ComputeFee(cfgGross, gross, OrderNet(gross, d(t, "10.00"), haircut))
	grossHigh := ComputeFee(cfgGross, gross, OrderNet(gross, d(t, "50.00"), haircut))
	if !grossLow.Total.Equal(grossHigh.Total) {
		t.Fatalf("gross-basis fee should ignore processing fee: %s vs %s", grossLow.Total, grossHigh.Total)
	}
}

func TestOrderNet_Clamping(t *testing.T) {
	// A processing fee larger than gross cannot produce negative net revenue.
	net := OrderNet(d(t, "20.00"), d(t, "35.00"), d(t, "0.5"))
	if !net.IsZero() {
		t.Fatalf("expected zero net, got %s", net)
	}

	// A zero haircut leaves gross minus processing fee untouched.
	net = OrderNet(d(t, "100.00"), d(t, "10.00"), decimal.Zero)
	if !net.Equal(d(t, "90.00")) {
		t.Fatalf("expected 90.00, got %s", net)
	}
}

func TestZeroFeeConfig(t *testing.T) {
	result := ComputeFee(ZeroFeeConfig(), d(t, "5000.00"), d(t, "4000.00"))
	if !result.Total.IsZero() {
		t.Fatalf("unconfigured brand must settle with zero fee, got %s", result.Total)
	}
}
