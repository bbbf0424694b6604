package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"token-presale/internal/domain"
	"token-presale/internal/storage"
)

var _ storage.ReferralCodeStore = (*ReferralCodeStore)(nil)

// ReferralCodeStore is an in-memory implementation of storage.ReferralCodeStore.
type ReferralCodeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ReferralCode // keyed by uppercase code
	now  func() time.Time
}

// NewReferralCodeStore creates a new in-memory referral code store.
func NewReferralCodeStore() *ReferralCodeStore {
	return newReferralCodeStore(time.Now)
}

func newReferralCodeStore(now func() time.Time) *ReferralCodeStore {
	return &ReferralCodeStore{
		data: make(map[string]*domain.ReferralCode),
		now:  now,
	}
}

func (s *ReferralCodeStore) seed() {
	s.data[domain.SeedReferralCode] = &domain.ReferralCode{
		ID:              uuid.NewString(),
		Code:            domain.SeedReferralCode,
		DiscountPercent: decimal.NewFromInt(domain.SeedReferralDiscount),
		IsActive:        true,
		UsageCount:      decimal.Zero,
		CreatedAt:       s.now(),
	}
}

// GetReferralCode retrieves a code. Returns ErrNotFound if not exists.
func (s *ReferralCodeStore) GetReferralCode(_ context.Context, code string) (*domain.ReferralCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rc, ok := s.data[strings.ToUpper(code)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	codeCopy := *rc
	return &codeCopy, nil
}

// CreateReferralCode inserts an active code with zero usage. Returns ErrDuplicateKey if it exists.
func (s *ReferralCodeStore) CreateReferralCode(_ context.Context, in *domain.NewReferralCode) (*domain.ReferralCode, error) {
	if in == nil || in.Code == "" {
		return nil, storage.ErrInvalidInput
	}
	discount, err := in.Discount()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	key := strings.ToUpper(in.Code)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return nil, storage.ErrDuplicateKey
	}

	rc := &domain.ReferralCode{
		ID:              uuid.NewString(),
		Code:            key,
		DiscountPercent: discount,
		IsActive:        true,
		UsageCount:      decimal.Zero,
		CreatedAt:       s.now(),
	}
	s.data[key] = rc

	codeCopy := *rc
	return &codeCopy, nil
}

// UseReferralCode increments the usage count of an active code.
func (s *ReferralCodeStore) UseReferralCode(_ context.Context, code string) (*domain.ReferralCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rc, ok := s.data[strings.ToUpper(code)]
	if !ok || !rc.IsActive {
		return nil, storage.ErrNotFound
	}
	rc.UsageCount = rc.UsageCount.Add(decimal.NewFromInt(1))

	codeCopy := *rc
	return &codeCopy, nil
}

// SetActive toggles a code. Returns ErrNotFound if not exists.
func (s *ReferralCodeStore) SetActive(_ context.Context, code string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rc, ok := s.data[strings.ToUpper(code)]
	if !ok {
		return storage.ErrNotFound
	}
	rc.IsActive = active
	return nil
}
