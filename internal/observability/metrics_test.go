package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics_CustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.PurchasesRecorded.WithLabelValues("ETH", "evm").Inc()
	m.PurchasesRecorded.WithLabelValues("ETH", "evm").Inc()

	if got := testutil.ToFloat64(m.PurchasesRecorded.WithLabelValues("ETH", "evm")); got != 2 {
		t.Errorf("expected 2 purchases, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Error("expected metrics registered on custom registry")
	}
}

func TestRecordDBQuery(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.DBQueryErrors.WithLabelValues("postgres", "test_op"))

	RecordDBQuery("postgres", "test_op", 0.01, nil)
	RecordDBQuery("postgres", "test_op", 0.02, errors.New("boom"))

	after := testutil.ToFloat64(DefaultMetrics.DBQueryErrors.WithLabelValues("postgres", "test_op"))
	if after-before != 1 {
		t.Errorf("expected 1 new error, got %v", after-before)
	}
}

func TestRecordPurchase(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.SettlementRaised.WithLabelValues("SOL"))

	RecordPurchase("SOL", "solana", 300)

	after := testutil.ToFloat64(DefaultMetrics.SettlementRaised.WithLabelValues("SOL"))
	if after-before != 300 {
		t.Errorf("expected settlement +300, got %v", after-before)
	}
}
