package memory

import (
	"context"
	"sort"
	"sync"

	"token-presale/internal/domain"
	"token-presale/internal/storage"
)

var _ storage.PurchaseEventStore = (*PurchaseEventStore)(nil)

// PurchaseEventStore is an in-memory implementation of storage.PurchaseEventStore.
type PurchaseEventStore struct {
	mu     sync.RWMutex
	events []domain.PurchaseEvent
}

// NewPurchaseEventStore creates a new in-memory purchase event store.
func NewPurchaseEventStore() *PurchaseEventStore {
	return &PurchaseEventStore{}
}

// Record appends one event.
func (s *PurchaseEventStore) Record(_ context.Context, e *domain.PurchaseEvent) error {
	if e == nil || e.TransactionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, *e)
	return nil
}

// TotalsByCurrency aggregates all recorded events per currency, ordered by currency.
func (s *PurchaseEventStore) TotalsByCurrency(_ context.Context) ([]domain.CurrencyTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCurrency := make(map[domain.Currency]*domain.CurrencyTotals)
	for _, e := range s.events {
		t, ok := byCurrency[e.Currency]
		if !ok {
			t = &domain.CurrencyTotals{Currency: e.Currency}
			byCurrency[e.Currency] = t
		}
		t.Purchases++
		t.PayAmount = t.PayAmount.Add(e.PayAmount)
		t.SettlementValue = t.SettlementValue.Add(e.SettlementValue)
		t.TokenAmount = t.TokenAmount.Add(e.TokenAmount)
	}

	result := make([]domain.CurrencyTotals, 0, len(byCurrency))
	for _, t := range byCurrency {
		result = append(result, *t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Currency < result[j].Currency
	})
	return result, nil
}

// Len returns the number of recorded events.
func (s *PurchaseEventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
