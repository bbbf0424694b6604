package domain

// Currency is the ticker of an accepted payment currency.
type Currency string

const (
	CurrencyETH  Currency = "ETH"
	CurrencyBNB  Currency = "BNB"
	CurrencySOL  Currency = "SOL"
	CurrencyUSDT Currency = "USDT"
)

// Currencies lists the accepted payment currencies in display order.
var Currencies = []Currency{CurrencyETH, CurrencyUSDT, CurrencySOL, CurrencyBNB}

// String returns the string representation of Currency.
func (c Currency) String() string {
	return string(c)
}

// IsValid checks if the currency is one of the accepted tickers.
// Matching is exact: "eth" is not accepted.
func (c Currency) IsValid() bool {
	switch c {
	case CurrencyETH, CurrencyBNB, CurrencySOL, CurrencyUSDT:
		return true
	}
	return false
}
