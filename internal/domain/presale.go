package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PresaleState is the global fundraising record.
// Corresponds to presale_data table in PostgreSQL.
type PresaleState struct {
	ID           string          `json:"id"`
	TotalRaised  decimal.Decimal `json:"totalRaised"`  // settlement units raised so far
	TotalSupply  decimal.Decimal `json:"totalSupply"`  // used as the goal amount
	CurrentRate  decimal.Decimal `json:"currentRate"`  // tokens per settlement unit
	StageEndTime time.Time       `json:"stageEndTime"` // end of the current sale stage
	IsActive     bool            `json:"isActive"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// PresalePatch holds a partial update of PresaleState. Nil fields are left as-is.
type PresalePatch struct {
	TotalRaised  *decimal.Decimal
	TotalSupply  *decimal.Decimal
	CurrentRate  *decimal.Decimal
	StageEndTime *time.Time
	IsActive     *bool
}

// Apply merges the non-nil fields of p into s and stamps UpdatedAt.
func (p *PresalePatch) Apply(s *PresaleState, now time.Time) {
	if p != nil {
		if p.TotalRaised != nil {
			s.TotalRaised = *p.TotalRaised
		}
		if p.TotalSupply != nil {
			s.TotalSupply = *p.TotalSupply
		}
		if p.CurrentRate != nil {
			s.CurrentRate = *p.CurrentRate
		}
		if p.StageEndTime != nil {
			s.StageEndTime = *p.StageEndTime
		}
		if p.IsActive != nil {
			s.IsActive = *p.IsActive
		}
	}
	s.UpdatedAt = now
}

// Seed values for the first presale stage.
var (
	SeedTotalRaised = decimal.RequireFromString("76735.34")
	SeedTotalSupply = decimal.RequireFromString("200000")
	SeedCurrentRate = decimal.RequireFromString("65")
)

// SeedStageDuration is how long the first stage runs from initialization.
const SeedStageDuration = 3*24*time.Hour + 5*time.Hour + 17*time.Minute + 14*time.Second

// SeedPresaleState returns the initial presale record (without an ID).
func SeedPresaleState(now time.Time) PresaleState {
	return PresaleState{
		TotalRaised:  SeedTotalRaised,
		TotalSupply:  SeedTotalSupply,
		CurrentRate:  SeedCurrentRate,
		StageEndTime: now.Add(SeedStageDuration),
		IsActive:     true,
		UpdatedAt:    now,
	}
}

// PresaleView is the public presale payload: the state plus the
// raised percentage formatted to two decimals.
type PresaleView struct {
	PresaleState
	Percentage string `json:"percentage"`
}

// Quote is the result of pricing a prospective purchase.
type Quote struct {
	Currency    string  `json:"currency"`
	PayAmount   float64 `json:"payAmount"`
	UsdtValue   float64 `json:"usdtValue"`
	TokenAmount float64 `json:"tokenAmount"`
	Rate        float64 `json:"rate"`
}
