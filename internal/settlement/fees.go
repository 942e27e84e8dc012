/**
 * @description
 * Platform fee computation. One algorithm serves all three revenue domains
 * (music earnings, event tickets, fundraiser donations); the domain only
 * changes which slice of the brand's configuration is read. A fixed fee, when
 * configured, applies once per transaction regardless of volume. A percentage
 * fee applies to the gross amount or to net revenue per the brand's basis
 * setting. The authoritative total is rounded exactly once, at the final sum.
 */
package settlement

import (
	"github.com/shopspring/decimal"

	"github.com/labelhq/settlement-service/internal/domain"
)

// FeeConfig is the domain-specific slice of a brand's fee configuration.
type FeeConfig struct {
	Fixed   decimal.Decimal
	Percent decimal.Decimal
	Basis   domain.RevenueBasis
}

// ZeroFeeConfig is used for brands that never configured fees; settlement
// proceeds with a zero platform fee instead of failing.
func ZeroFeeConfig() FeeConfig {
	return FeeConfig{Fixed: decimal.Zero, Percent: decimal.Zero, Basis: domain.RevenueBasisGross}
}

// FeeResult is the computed platform fee. Fixed and Percent are rounded
// independently for display and storage; Total is round2(fixed + percent)
// computed from the unrounded percentage amount.
type FeeResult struct {
	Fixed   decimal.Decimal
	Percent decimal.Decimal
	Total   decimal.Decimal
}

// ComputeFee calculates the platform fee for one transaction. netRevenue must
// already reflect the applicable waterfall (music) or net formula (tickets,
// donations) when the basis is net; it is ignored for a gross basis.
func ComputeFee(cfg FeeConfig, grossAmount, netRevenue decimal.Decimal) FeeResult {
	fixed := domain.ClampNonNegative(cfg.Fixed)

	percentBase := grossAmount
	if cfg.Basis == domain.RevenueBasisNet {
		percentBase = netRevenue
	}
	percentBase = domain.ClampNonNegative(percentBase)

	percentAmount := decimal.Zero
	if cfg.Percent.IsPositive() {
		percentAmount = domain.PercentOf(percentBase, cfg.Percent)
	}

	return FeeResult{
		Fixed:   domain.Round2(fixed),
		Percent: domain.Round2(percentAmount),
		Total:   domain.Round2(fixed.Add(percentAmount)),
	}
}

// OrderNet computes net revenue for a ticket or donation:
// (gross - processingFee) * (1 - haircutPercent/100), clamped at zero. The
// haircut models the gateway's own reconciliation cost and is configured, not
// hard-coded.
func OrderNet(gross, processingFee, haircutPercent decimal.Decimal) decimal.Decimal {
	afterProcessing := domain.ClampNonNegative(gross.Sub(domain.ClampNonNegative(processingFee)))
	factor := decimal.NewFromInt(1).Sub(domain.ClampNonNegative(haircutPercent).Div(decimal.NewFromInt(100)))
	return domain.ClampNonNegative(afterProcessing.Mul(factor))
}
