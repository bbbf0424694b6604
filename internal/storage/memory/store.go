package memory

import (
	"time"

	"token-presale/internal/storage"
)

var _ storage.Storage = (*Store)(nil)

// Store is an in-memory implementation of storage.Storage.
// Each entity store carries its own lock; nothing is shared between values.
type Store struct {
	*UserStore
	*PresaleStore
	*TransactionStore
	*ReferralCodeStore
}

// NewStore creates an empty store. The presale record is seeded on first read.
func NewStore() *Store {
	return newStore(time.Now)
}

// NewSeededStore creates a store holding the seed presale record and the
// seed referral code.
func NewSeededStore() *Store {
	s := NewStore()
	s.PresaleStore.seed()
	s.ReferralCodeStore.seed()
	return s
}

func newStore(now func() time.Time) *Store {
	return &Store{
		UserStore:         NewUserStore(),
		PresaleStore:      newPresaleStore(now),
		TransactionStore:  newTransactionStore(now),
		ReferralCodeStore: newReferralCodeStore(now),
	}
}
