package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestValidate_NewTransaction(t *testing.T) {
	valid := NewTransaction{
		WalletAddress: "0xabc",
		Currency:      CurrencyETH,
		PayAmount:     "0.5",
		ReceiveAmount: "113750",
	}

	if err := Validate(&valid); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}

	tests := []struct {
		name  string
		mod   func(tx *NewTransaction)
		field string
	}{
		{"missing wallet", func(tx *NewTransaction) { tx.WalletAddress = "" }, "walletAddress"},
		{"missing currency", func(tx *NewTransaction) { tx.Currency = "" }, "currency"},
		{"missing pay amount", func(tx *NewTransaction) { tx.PayAmount = "" }, "payAmount"},
		{"non-numeric pay amount", func(tx *NewTransaction) { tx.PayAmount = "abc" }, "payAmount"},
		{"zero pay amount", func(tx *NewTransaction) { tx.PayAmount = "0" }, "payAmount"},
		{"negative receive amount", func(tx *NewTransaction) { tx.ReceiveAmount = "-1" }, "receiveAmount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid
			tt.mod(&tx)

			err := Validate(&tx)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if len(verr.Fields) != 1 {
				t.Fatalf("expected 1 field error, got %d: %v", len(verr.Fields), verr.Fields)
			}
			if verr.Fields[0].Field != tt.field {
				t.Errorf("field mismatch: got %s, want %s", verr.Fields[0].Field, tt.field)
			}
		})
	}
}

func TestValidate_NewReferralCode(t *testing.T) {
	if err := Validate(&NewReferralCode{Code: "FRIEND5"}); err != nil {
		t.Errorf("expected nil for code without discount, got %v", err)
	}
	if err := Validate(&NewReferralCode{Code: "FRIEND5", DiscountPercent: "5.5"}); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	err := Validate(&NewReferralCode{DiscountPercent: "x"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(verr.Fields) != 2 {
		t.Errorf("expected 2 field errors, got %d", len(verr.Fields))
	}
}

func TestNewTransaction_Amounts(t *testing.T) {
	tx := NewTransaction{PayAmount: "1.25", ReceiveAmount: "284375"}

	pay, receive, err := tx.Amounts()
	if err != nil {
		t.Fatalf("Amounts failed: %v", err)
	}
	if !pay.Equal(decimal.RequireFromString("1.25")) {
		t.Errorf("pay mismatch: got %s", pay)
	}
	if !receive.Equal(decimal.NewFromInt(284375)) {
		t.Errorf("receive mismatch: got %s", receive)
	}

	tx.ReceiveAmount = "nope"
	if _, _, err := tx.Amounts(); err == nil {
		t.Error("expected error for malformed receiveAmount")
	}
}

func TestPresalePatch_Apply(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := SeedPresaleState(now)

	later := now.Add(time.Hour)
	inactive := false
	raised := decimal.NewFromInt(100)
	p := &PresalePatch{TotalRaised: &raised, IsActive: &inactive}
	p.Apply(&s, later)

	if !s.TotalRaised.Equal(raised) {
		t.Errorf("TotalRaised mismatch: got %s", s.TotalRaised)
	}
	if s.IsActive {
		t.Error("expected inactive")
	}
	if !s.CurrentRate.Equal(SeedCurrentRate) {
		t.Errorf("CurrentRate should be untouched, got %s", s.CurrentRate)
	}
	if !s.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt mismatch: got %v", s.UpdatedAt)
	}
	if !s.StageEndTime.Equal(now.Add(SeedStageDuration)) {
		t.Errorf("StageEndTime mismatch: got %v", s.StageEndTime)
	}
}

func TestCurrency_IsValid(t *testing.T) {
	for _, c := range Currencies {
		if !c.IsValid() {
			t.Errorf("expected %s to be valid", c)
		}
	}
	for _, c := range []Currency{"", "eth", "DOGE"} {
		if c.IsValid() {
			t.Errorf("expected %q to be invalid", c)
		}
	}
}
