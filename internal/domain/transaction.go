package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TxStatus is the lifecycle status of a purchase transaction.
type TxStatus string

const (
	TxStatusPending   TxStatus = "pending"
	TxStatusCompleted TxStatus = "completed"
	TxStatusFailed    TxStatus = "failed"
)

// IsValid checks if the status is a known value.
func (s TxStatus) IsValid() bool {
	return s == TxStatusPending || s == TxStatusCompleted || s == TxStatusFailed
}

// Transaction is a recorded (unconfirmed) purchase.
// Corresponds to transactions table in PostgreSQL.
type Transaction struct {
	ID            string          `json:"id"`
	WalletAddress string          `json:"walletAddress"` // free text, matched case-insensitively
	Currency      Currency        `json:"currency"`
	PayAmount     decimal.Decimal `json:"payAmount"`     // amount paid in Currency
	ReceiveAmount decimal.Decimal `json:"receiveAmount"` // tokens owed
	TxHash        *string         `json:"txHash"`        // nullable
	Status        TxStatus        `json:"status"`
	ReferralCode  *string         `json:"referralCode"` // nullable, not a foreign key
	CreatedAt     time.Time       `json:"createdAt"`
}

// NewTransaction is the insert shape for transactions. Amounts are decimal
// strings, as submitted by the storefront.
type NewTransaction struct {
	WalletAddress string   `json:"walletAddress" validate:"required"`
	Currency      Currency `json:"currency" validate:"required"`
	PayAmount     string   `json:"payAmount" validate:"required,decimal_positive"`
	ReceiveAmount string   `json:"receiveAmount" validate:"required,decimal_nonneg"`
	ReferralCode  *string  `json:"referralCode,omitempty"`
}

// Amounts parses PayAmount and ReceiveAmount.
func (t *NewTransaction) Amounts() (pay, receive decimal.Decimal, err error) {
	pay, err = decimal.NewFromString(t.PayAmount)
	if err != nil {
		return pay, receive, fmt.Errorf("parse payAmount: %w", err)
	}
	receive, err = decimal.NewFromString(t.ReceiveAmount)
	if err != nil {
		return pay, receive, fmt.Errorf("parse receiveAmount: %w", err)
	}
	return pay, receive, nil
}

// TransactionPatch holds a partial update of a Transaction. Nil fields are left as-is.
type TransactionPatch struct {
	TxHash        *string
	Status        *TxStatus
	ReceiveAmount *decimal.Decimal
	ReferralCode  *string
}

// Apply merges the non-nil fields of p into t.
func (p *TransactionPatch) Apply(t *Transaction) {
	if p == nil {
		return
	}
	if p.TxHash != nil {
		h := *p.TxHash
		t.TxHash = &h
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.ReceiveAmount != nil {
		t.ReceiveAmount = *p.ReceiveAmount
	}
	if p.ReferralCode != nil {
		c := *p.ReferralCode
		t.ReferralCode = &c
	}
}

// Clone returns a deep copy of t.
func (t *Transaction) Clone() *Transaction {
	c := *t
	if t.TxHash != nil {
		h := *t.TxHash
		c.TxHash = &h
	}
	if t.ReferralCode != nil {
		r := *t.ReferralCode
		c.ReferralCode = &r
	}
	return &c
}

// WalletPurchase is a purchase-history row in the shape the storefront's
// wallet panel renders.
type WalletPurchase struct {
	WalletAddress   string  `json:"walletAddress"`
	WalletName      string  `json:"walletName"`
	Amount          string  `json:"amount"`
	TransactionHash *string `json:"transactionHash"`
	Timestamp       string  `json:"timestamp"`
	Currency        string  `json:"currency"`
	UsdtValue       float64 `json:"usdtValue"`
	TokenAmount     string  `json:"tokenAmount"`
}
