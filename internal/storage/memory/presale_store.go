package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"token-presale/internal/domain"
	"token-presale/internal/storage"
)

var _ storage.PresaleStore = (*PresaleStore)(nil)

// PresaleStore is an in-memory implementation of storage.PresaleStore.
// It holds a single presale record.
type PresaleStore struct {
	mu    sync.Mutex
	state *domain.PresaleState
	now   func() time.Time
}

// NewPresaleStore creates a new in-memory presale store.
func NewPresaleStore() *PresaleStore {
	return newPresaleStore(time.Now)
}

func newPresaleStore(now func() time.Time) *PresaleStore {
	return &PresaleStore{now: now}
}

// seed installs the seed record if none exists. Caller must hold mu or own s exclusively.
func (s *PresaleStore) seed() {
	if s.state != nil {
		return
	}
	st := domain.SeedPresaleState(s.now())
	st.ID = uuid.NewString()
	s.state = &st
}

// GetPresaleState returns the presale record, seeding it on first access.
func (s *PresaleStore) GetPresaleState(_ context.Context) (*domain.PresaleState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seed()
	stateCopy := *s.state
	return &stateCopy, nil
}

// UpdatePresaleState merges the non-nil patch fields and stamps UpdatedAt.
func (s *PresaleStore) UpdatePresaleState(_ context.Context, p *domain.PresalePatch) (*domain.PresaleState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seed()
	p.Apply(s.state, s.now())
	stateCopy := *s.state
	return &stateCopy, nil
}

// AddRaised increments TotalRaised by amount and stamps UpdatedAt.
func (s *PresaleStore) AddRaised(_ context.Context, amount decimal.Decimal) (*domain.PresaleState, error) {
	if amount.IsNegative() {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seed()
	s.state.TotalRaised = s.state.TotalRaised.Add(amount)
	s.state.UpdatedAt = s.now()
	stateCopy := *s.state
	return &stateCopy, nil
}
