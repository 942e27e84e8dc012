package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RevenueDomain selects which slice of a brand's fee configuration applies.
type RevenueDomain string

const (
	RevenueDomainMusic      RevenueDomain = "music"
	RevenueDomainEvent      RevenueDomain = "event"
	RevenueDomainFundraiser RevenueDomain = "fundraiser"
)

// RevenueBasis selects whether a percentage fee applies to the gross amount
// or to net revenue after deductions.
type RevenueBasis string

const (
	RevenueBasisGross RevenueBasis = "gross"
	RevenueBasisNet   RevenueBasis = "net"
)

// BrandFeeConfig holds a brand's platform fee settings, one row per brand
// with independent fixed/percentage/basis values per revenue domain. It is
// read-only input to the fee calculator and immutable within a single
// settlement computation.
type BrandFeeConfig struct {
	BrandID uuid.UUID `json:"brand_id"`

	MusicFixedFee      decimal.Decimal `json:"music_fixed_fee"`
	MusicPercentFee    decimal.Decimal `json:"music_percent_fee"`
	MusicRevenueBasis  RevenueBasis    `json:"music_revenue_basis"`
	EventFixedFee      decimal.Decimal `json:"event_fixed_fee"`
	EventPercentFee    decimal.Decimal `json:"event_percent_fee"`
	EventRevenueBasis  RevenueBasis    `json:"event_revenue_basis"`
	FundraiserFixedFee decimal.Decimal `json:"fundraiser_fixed_fee"`
	FundraiserPercent  decimal.Decimal `json:"fundraiser_percent_fee"`
	FundraiserBasis    RevenueBasis    `json:"fundraiser_revenue_basis"`
}

// ForDomain narrows the config to the fixed fee, percentage fee and basis
// for one revenue domain. Unknown domains yield a zero-fee slice.
func (c *BrandFeeConfig) ForDomain(d RevenueDomain) (fixed, percent decimal.Decimal, basis RevenueBasis) {
	switch d {
	case RevenueDomainMusic:
		return c.MusicFixedFee, c.MusicPercentFee, c.MusicRevenueBasis
	case RevenueDomainEvent:
		return c.EventFixedFee, c.EventPercentFee, c.EventRevenueBasis
	case RevenueDomainFundraiser:
		return c.FundraiserFixedFee, c.FundraiserPercent, c.FundraiserBasis
	default:
		return decimal.Zero, decimal.Zero, RevenueBasisGross
	}
}
