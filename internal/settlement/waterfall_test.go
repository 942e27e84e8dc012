package settlement

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", value, err)
	}
	return parsed
}

func TestRun_MusicEarningScenario(t *testing.T) {
	// Earning 200.00 on a release with 150.00 outstanding recuperable balance
	// and 30.00 royalties: recuperation leaves 50.00, royalties leave 20.00.
	result := Run(d(t, "200.00"), MusicStages(d(t, "150.00"), d(t, "30.00")))

	if !result.Consumed(StageRecuperation).Equal(d(t, "150.00")) {
		t.Fatalf("expected 150.00 recuperated, got %s", result.Consumed(StageRecuperation))
	}
	if !result.Consumed(StageRoyalties).Equal(d(t, "30.00")) {
		t.Fatalf("expected 30.00 royalties consumed, got %s", result.Consumed(StageRoyalties))
	}
	if !result.Net.Equal(d(t, "20.00")) {
		t.Fatalf("expected net 20.00, got %s", result.Net)
	}
}

func TestRun_RecuperationSwallowsWholeEarning(t *testing.T) {
	// Balance exceeds the earning: net goes to zero after stage one and the
	// royalty stage has nothing left to consume.
	result := Run(d(t, "120.00"), MusicStages(d(t, "500.00"), d(t, "40.00")))

	if !result.Consumed(StageRecuperation).Equal(d(t, "120.00")) {
		t.Fatalf("expected recuperation capped at earning amount, got %s", result.Consumed(StageRecuperation))
	}
	if !result.Consumed(StageRoyalties).IsZero() {
		t.Fatalf("expected no royalties consumed, got %s", result.Consumed(StageRoyalties))
	}
	if !result.Net.IsZero() {
		t.Fatalf("expected zero net, got %s", result.Net)
	}
}

func TestRun_ClampingInvariants(t *testing.T) {
	cases := []struct {
		name   string
		gross  string
		stages []Stage
	}{
		{"no stages", "100.00", nil},
		{"exact consumption", "100.00", []Stage{{Name: "a", Amount: decimal.NewFromInt(100)}}},
		{"over consumption", "100.00", []Stage{{Name: "a", Amount: decimal.NewFromInt(70)}, {Name: "b", Amount: decimal.NewFromInt(90)}}},
		{"zero gross", "0", []Stage{{Name: "a", Amount: decimal.NewFromInt(10)}}},
		{"negative stage treated as zero", "50.00", []Stage{{Name: "a", Amount: decimal.NewFromInt(-10)}}},
		{"many small stages", "10.00", []Stage{
			{Name: "a", Amount: decimal.NewFromFloat(3.33)},
			{Name: "b", Amount: decimal.NewFromFloat(3.33)},
			{Name: "c", Amount: decimal.NewFromFloat(3.33)},
			{Name: "d", Amount: decimal.NewFromFloat(3.33)},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gross := d(t, tc.gross)
			result := Run(gross, tc.stages)

			totalConsumed := decimal.Zero
			for _, stage := range result.Stages {
				if stage.Remainder.IsNegative() {
					t.Fatalf("stage %s produced negative remainder %s", stage.Name, stage.Remainder)
				}
				if stage.Consumed.IsNegative() {
					t.Fatalf("stage %s consumed negative amount %s", stage.Name, stage.Consumed)
				}
				totalConsumed = totalConsumed.Add(stage.Consumed)
			}
			if totalConsumed.GreaterThan(gross) {
				t.Fatalf("stages consumed %s, more than gross %s", totalConsumed, gross)
			}
			if !result.Net.Add(totalConsumed).Equal(gross) {
				t.Fatalf("net %s plus consumed %s does not reconcile to gross %s", result.Net, totalConsumed, gross)
			}
		})
	}
}

func TestRun_StageOrderMatters(t *testing.T) {
	// With only 100.00 to go around, whichever stage runs first gets paid.
	first := Run(d(t, "100.00"), MusicStages(d(t, "80.00"), d(t, "80.00")))
	if !first.Consumed(StageRecuperation).Equal(d(t, "80.00")) {
		t.Fatalf("expected recuperation paid in full first, got %s", first.Consumed(StageRecuperation))
	}
	if !first.Consumed(StageRoyalties).Equal(d(t, "20.00")) {
		t.Fatalf("expected royalties to get the remainder, got %s", first.Consumed(StageRoyalties))
	}
}
