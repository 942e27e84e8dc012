/**
 * @description
 * The money waterfall: a pure computation that runs a gross amount through an
 * ordered chain of named deductions and reports what each stage consumed and
 * what remained. Stages never borrow from later ones and the remainder is
 * clamped at zero after every stage, so the sum of consumed amounts can never
 * exceed the original gross amount.
 */
package settlement

import (
	"github.com/shopspring/decimal"

	"github.com/labelhq/settlement-service/internal/domain"
)

// Stage names.
const (
	StageRecuperation = "recuperable_expenses"
	StageRoyalties    = "royalties"
)

// Stage is one deduction in the waterfall: a named non-negative amount to
// subtract from whatever remains at that point.
type Stage struct {
	Name   string
	Amount decimal.Decimal
}

// StageResult records the outcome of one stage.
type StageResult struct {
	Name      string
	Consumed  decimal.Decimal
	Remainder decimal.Decimal
}

// Result is the outcome of a full waterfall run.
type Result struct {
	Gross  decimal.Decimal
	Stages []StageResult
	Net    decimal.Decimal
}

// Consumed returns the amount consumed by the named stage, or zero when the
// stage was not part of the run.
func (r Result) Consumed(name string) decimal.Decimal {
	for _, stage := range r.Stages {
		if stage.Name == name {
			return stage.Consumed
		}
	}
	return decimal.Zero
}

// Run applies the stages in order to the gross amount. Negative stage
// amounts are treated as zero; a stage consumes at most the remainder in
// front of it.
func Run(gross decimal.Decimal, stages []Stage) Result {
	remainder := domain.ClampNonNegative(gross)
	result := Result{Gross: remainder, Stages: make([]StageResult, 0, len(stages))}

	for _, stage := range stages {
		requested := domain.ClampNonNegative(stage.Amount)
		consumed := requested
		if consumed.GreaterThan(remainder) {
			consumed = remainder
		}
		remainder = remainder.Sub(consumed)
		result.Stages = append(result.Stages, StageResult{
			Name:      stage.Name,
			Consumed:  consumed,
			Remainder: remainder,
		})
	}

	result.Net = remainder
	return result
}

// MusicStages builds the fixed deduction chain for a music earning:
// recuperable-expense recovery first, royalties second. The order is part of
// the settlement contract and must not be swapped.
func MusicStages(recuperableBalance, royaltyTotal decimal.Decimal) []Stage {
	return []Stage{
		{Name: StageRecuperation, Amount: recuperableBalance},
		{Name: StageRoyalties, Amount: royaltyTotal},
	}
}
