package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"token-presale/internal/domain"
	"token-presale/internal/storage"
)

var _ storage.TransactionStore = (*TransactionStore)(nil)

// TransactionStore is an in-memory implementation of storage.TransactionStore.
type TransactionStore struct {
	mu   sync.RWMutex
	log  []*domain.Transaction         // insertion order
	byID map[string]*domain.Transaction // same pointers as log
	now  func() time.Time
}

// NewTransactionStore creates a new in-memory transaction store.
func NewTransactionStore() *TransactionStore {
	return newTransactionStore(time.Now)
}

func newTransactionStore(now func() time.Time) *TransactionStore {
	return &TransactionStore{
		byID: make(map[string]*domain.Transaction),
		now:  now,
	}
}

// CreateTransaction records a pending purchase with a fresh ID and no hash.
func (s *TransactionStore) CreateTransaction(_ context.Context, in *domain.NewTransaction) (*domain.Transaction, error) {
	if in == nil {
		return nil, storage.ErrInvalidInput
	}
	pay, receive, err := in.Amounts()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	tx := &domain.Transaction{
		ID:            uuid.NewString(),
		WalletAddress: in.WalletAddress,
		Currency:      in.Currency,
		PayAmount:     pay,
		ReceiveAmount: receive,
		Status:        domain.TxStatusPending,
		CreatedAt:     s.now(),
	}
	if in.ReferralCode != nil && *in.ReferralCode != "" {
		code := *in.ReferralCode
		tx.ReferralCode = &code
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.log = append(s.log, tx)
	s.byID[tx.ID] = tx
	return tx.Clone(), nil
}

// GetTransactionsByWallet returns matching transactions newest first.
func (s *TransactionStore) GetTransactionsByWallet(_ context.Context, walletAddress string) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Transaction, 0)
	for i := len(s.log) - 1; i >= 0; i-- {
		if strings.EqualFold(s.log[i].WalletAddress, walletAddress) {
			result = append(result, s.log[i].Clone())
		}
	}
	return result, nil
}

// UpdateTransaction merges the non-nil patch fields. Returns ErrNotFound for an unknown ID.
func (s *TransactionStore) UpdateTransaction(_ context.Context, id string, p *domain.TransactionPatch) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if p != nil && p.Status != nil && !p.Status.IsValid() {
		return nil, storage.ErrInvalidInput
	}
	p.Apply(tx)
	return tx.Clone(), nil
}
