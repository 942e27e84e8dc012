package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EarningStatus tracks whether a music earning has been through settlement.
type EarningStatus string

const (
	EarningStatusPending  EarningStatus = "pending"
	EarningStatusSettling EarningStatus = "settling"
	EarningStatusSettled  EarningStatus = "settled"
)

// MusicEarning is a raw monetary event reported for a release. Settlement
// runs it through the waterfall (recuperable expenses, then royalties) and
// records the net remainder and platform fee.
type MusicEarning struct {
	ID          uuid.UUID       `json:"id"`
	BrandID     uuid.UUID       `json:"brand_id"`
	ReleaseID   uuid.UUID       `json:"release_id"`
	Source      string          `json:"source"`
	Amount      decimal.Decimal `json:"amount"`
	NetRevenue  decimal.Decimal `json:"net_revenue"`
	PlatformFee decimal.Decimal `json:"platform_fee"`
	Status      EarningStatus   `json:"status"`
	SettledAt   *time.Time      `json:"settled_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Royalty is an amount owed to an artist for a given earning, deducted from
// net revenue before a platform fee on net is computed.
type Royalty struct {
	ID        uuid.UUID       `json:"id"`
	EarningID uuid.UUID       `json:"earning_id"`
	ArtistID  uuid.UUID       `json:"artist_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// RecuperableExpense is a cost advanced against a release. Its remaining
// balance decreases monotonically as earnings on the release are settled and
// never goes negative. Recovery consumes the release's aggregate outstanding
// balance; no per-line-item FIFO is promised.
type RecuperableExpense struct {
	ID               uuid.UUID       `json:"id"`
	ReleaseID        uuid.UUID       `json:"release_id"`
	Description      string          `json:"description"`
	OriginalAmount   decimal.Decimal `json:"original_amount"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	CreatedAt        time.Time       `json:"created_at"`
}
