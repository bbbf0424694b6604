package postgres

import (
	"token-presale/internal/storage"
)

var _ storage.Storage = (*Store)(nil)

// Store implements storage.Storage on a single pool.
type Store struct {
	*UserStore
	*PresaleStore
	*TransactionStore
	*ReferralCodeStore
}

// NewStore creates a Store. Migrations must already be applied.
func NewStore(pool *Pool) *Store {
	return &Store{
		UserStore:         NewUserStore(pool),
		PresaleStore:      NewPresaleStore(pool),
		TransactionStore:  NewTransactionStore(pool),
		ReferralCodeStore: NewReferralCodeStore(pool),
	}
}
