// Package pricing converts payment amounts into settlement units and tokens.
//
// Multipliers are fixed placeholders; there is no live exchange-rate feed.
package pricing

import (
	"github.com/shopspring/decimal"

	"token-presale/internal/domain"
)

var multipliers = map[domain.Currency]decimal.Decimal{
	domain.CurrencyETH:  decimal.NewFromInt(3500),
	domain.CurrencyBNB:  decimal.NewFromInt(600),
	domain.CurrencySOL:  decimal.NewFromInt(100),
	domain.CurrencyUSDT: decimal.NewFromInt(1),
}

var hundred = decimal.NewFromInt(100)

// Supported reports whether the currency has a configured multiplier.
func Supported(c domain.Currency) bool {
	_, ok := multipliers[c]
	return ok
}

// Multiplier returns the settlement multiplier for c.
// Unknown currencies fall back to 1.
func Multiplier(c domain.Currency) decimal.Decimal {
	if m, ok := multipliers[c]; ok {
		return m
	}
	return decimal.NewFromInt(1)
}

// SettlementValue prices amount of c in settlement units.
func SettlementValue(c domain.Currency, amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(Multiplier(c))
}

// TokenAmount returns the tokens owed for amount of c at rate tokens per settlement unit.
func TokenAmount(c domain.Currency, amount, rate decimal.Decimal) decimal.Decimal {
	return SettlementValue(c, amount).Mul(rate)
}

// Percentage returns raised/goal*100 formatted with two decimals.
// A non-positive goal yields "0.00".
func Percentage(raised, goal decimal.Decimal) string {
	if !goal.IsPositive() {
		return "0.00"
	}
	return raised.Div(goal).Mul(hundred).StringFixed(2)
}

// Quote prices a prospective purchase against the current rate.
func Quote(c domain.Currency, amount, rate decimal.Decimal) domain.Quote {
	usdt := SettlementValue(c, amount)
	pay, _ := amount.Float64()
	usdtF, _ := usdt.Float64()
	tokens, _ := usdt.Mul(rate).Float64()
	rateF, _ := rate.Float64()
	return domain.Quote{
		Currency:    c.String(),
		PayAmount:   pay,
		UsdtValue:   usdtF,
		TokenAmount: tokens,
		Rate:        rateF,
	}
}

// View builds the public presale payload.
func View(s domain.PresaleState) domain.PresaleView {
	return domain.PresaleView{
		PresaleState: s,
		Percentage:   Percentage(s.TotalRaised, s.TotalSupply),
	}
}
