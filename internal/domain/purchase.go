package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseEvent is an analytics record appended once per recorded transaction.
// Corresponds to purchase_events table in ClickHouse.
type PurchaseEvent struct {
	TransactionID   string
	WalletAddress   string
	WalletKind      string // evm | solana | solana_pda | unknown
	Currency        Currency
	PayAmount       decimal.Decimal
	SettlementValue decimal.Decimal // PayAmount priced in settlement units
	TokenAmount     decimal.Decimal // SettlementValue * rate at record time
	ReferralCode    *string
	RecordedAt      time.Time
}

// CurrencyTotals aggregates purchase events for one currency.
type CurrencyTotals struct {
	Currency        Currency        `json:"currency"`
	Purchases       uint64          `json:"purchases"`
	PayAmount       decimal.Decimal `json:"payAmount"`
	SettlementValue decimal.Decimal `json:"settlementValue"`
	TokenAmount     decimal.Decimal `json:"tokenAmount"`
}
