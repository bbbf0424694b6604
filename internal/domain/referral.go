package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReferralCode grants a discount to whoever presents it.
// Corresponds to referral_codes table in PostgreSQL.
type ReferralCode struct {
	ID              string          `json:"id"`
	Code            string          `json:"code"` // unique, stored uppercase
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	IsActive        bool            `json:"isActive"`
	UsageCount      decimal.Decimal `json:"usageCount"` // integral
	CreatedAt       time.Time       `json:"createdAt"`
}

// NewReferralCode is the insert shape for referral codes.
type NewReferralCode struct {
	Code            string `json:"code" validate:"required"`
	DiscountPercent string `json:"discountPercent,omitempty" validate:"omitempty,decimal_nonneg"`
}

// Discount parses DiscountPercent, defaulting to zero when empty.
func (c *NewReferralCode) Discount() (decimal.Decimal, error) {
	if c.DiscountPercent == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(c.DiscountPercent)
}

// Seed referral code available from first start.
const (
	SeedReferralCode     = "WELCOME10"
	SeedReferralDiscount = 10
)

// ReferralCheck is the response to validating or applying a referral code.
type ReferralCheck struct {
	Code            string          `json:"code"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	IsValid         bool            `json:"isValid,omitempty"`
	Applied         bool            `json:"applied,omitempty"`
}
