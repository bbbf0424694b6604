package clickhouse

import (
	"context"
	"fmt"
	"time"

	"token-presale/internal/domain"
	"token-presale/internal/observability"
	"token-presale/internal/storage"
)

// PurchaseEventStore implements storage.PurchaseEventStore using ClickHouse.
type PurchaseEventStore struct {
	conn *Conn
}

// NewPurchaseEventStore creates a new PurchaseEventStore.
func NewPurchaseEventStore(conn *Conn) *PurchaseEventStore {
	return &PurchaseEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PurchaseEventStore = (*PurchaseEventStore)(nil)

// Record appends one event.
func (s *PurchaseEventStore) Record(ctx context.Context, e *domain.PurchaseEvent) error {
	if e == nil || e.TransactionID == "" {
		return storage.ErrInvalidInput
	}
	return s.RecordBulk(ctx, []*domain.PurchaseEvent{e})
}

// RecordBulk appends events in one batch.
func (s *PurchaseEventStore) RecordBulk(ctx context.Context, events []*domain.PurchaseEvent) error {
	if len(events) == 0 {
		return nil
	}

	start := time.Now()
	err := s.send(ctx, events)
	observability.RecordDBQuery("clickhouse", "record_purchase_events", time.Since(start).Seconds(), err)
	return err
}

func (s *PurchaseEventStore) send(ctx context.Context, events []*domain.PurchaseEvent) error {
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO purchase_events (
			transaction_id, wallet_address, wallet_kind, currency,
			pay_amount, settlement_value, token_amount, referral_code, recorded_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err = batch.Append(
			e.TransactionID,
			e.WalletAddress,
			e.WalletKind,
			string(e.Currency),
			e.PayAmount,
			e.SettlementValue,
			e.TokenAmount,
			e.ReferralCode,
			e.RecordedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// TotalsByCurrency aggregates all recorded events per currency, ordered by currency.
// FINAL collapses replayed events for the same transaction.
func (s *PurchaseEventStore) TotalsByCurrency(ctx context.Context) ([]domain.CurrencyTotals, error) {
	query := `
		SELECT
			currency,
			count() AS purchases,
			sum(pay_amount),
			sum(settlement_value),
			sum(token_amount)
		FROM purchase_events FINAL
		GROUP BY currency
		ORDER BY currency
	`

	start := time.Now()
	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		observability.RecordDBQuery("clickhouse", "totals_by_currency", time.Since(start).Seconds(), err)
		return nil, fmt.Errorf("query totals: %w", err)
	}
	defer rows.Close()

	result := make([]domain.CurrencyTotals, 0)
	for rows.Next() {
		var (
			t        domain.CurrencyTotals
			currency string
		)
		if err := rows.Scan(&currency, &t.Purchases, &t.PayAmount, &t.SettlementValue, &t.TokenAmount); err != nil {
			return nil, fmt.Errorf("scan totals: %w", err)
		}
		t.Currency = domain.Currency(currency)
		result = append(result, t)
	}
	err = rows.Err()
	observability.RecordDBQuery("clickhouse", "totals_by_currency", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("iterate totals: %w", err)
	}
	return result, nil
}
