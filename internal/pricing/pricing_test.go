package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"token-presale/internal/domain"
)

func TestMultiplier(t *testing.T) {
	tests := []struct {
		currency domain.Currency
		want     int64
	}{
		{domain.CurrencyETH, 3500},
		{domain.CurrencyBNB, 600},
		{domain.CurrencySOL, 100},
		{domain.CurrencyUSDT, 1},
		{"DOGE", 1},
		{"eth", 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.currency), func(t *testing.T) {
			got := Multiplier(tt.currency)
			if !got.Equal(decimal.NewFromInt(tt.want)) {
				t.Errorf("Multiplier(%s) = %s, want %d", tt.currency, got, tt.want)
			}
		})
	}

	if Supported("DOGE") {
		t.Error("DOGE should not be supported")
	}
	if !Supported(domain.CurrencySOL) {
		t.Error("SOL should be supported")
	}
}

func TestQuote(t *testing.T) {
	q := Quote(domain.CurrencyETH, decimal.NewFromInt(1), decimal.NewFromInt(65))

	if q.Currency != "ETH" {
		t.Errorf("currency mismatch: got %s", q.Currency)
	}
	if q.UsdtValue != 3500 {
		t.Errorf("usdtValue mismatch: got %v, want 3500", q.UsdtValue)
	}
	if q.TokenAmount != 227500 {
		t.Errorf("tokenAmount mismatch: got %v, want 227500", q.TokenAmount)
	}
	if q.Rate != 65 {
		t.Errorf("rate mismatch: got %v", q.Rate)
	}
}

func TestQuote_UnknownCurrencyFallsBack(t *testing.T) {
	q := Quote("DOGE", decimal.NewFromInt(10), decimal.NewFromInt(65))
	if q.UsdtValue != 10 {
		t.Errorf("usdtValue mismatch: got %v, want 10", q.UsdtValue)
	}
	if q.TokenAmount != 650 {
		t.Errorf("tokenAmount mismatch: got %v, want 650", q.TokenAmount)
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		raised, goal string
		want         string
	}{
		{"76735.34", "200000", "38.37"},
		{"0", "200000", "0.00"},
		{"200000", "200000", "100.00"},
		{"250000", "200000", "125.00"},
		{"100", "0", "0.00"},
		{"100", "-5", "0.00"},
	}

	for _, tt := range tests {
		got := Percentage(decimal.RequireFromString(tt.raised), decimal.RequireFromString(tt.goal))
		if got != tt.want {
			t.Errorf("Percentage(%s, %s) = %s, want %s", tt.raised, tt.goal, got, tt.want)
		}
	}
}
