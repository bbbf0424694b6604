package client

import (
	"context"

	"token-presale/internal/domain"
)

// TransactionCreator records purchases.
type TransactionCreator interface {
	CreateTransaction(ctx context.Context, in *domain.NewTransaction) (*domain.Transaction, error)
}

// Purchaser records purchases and invalidates the caches they affect.
type Purchaser struct {
	creator TransactionCreator
	watcher *PresaleWatcher
	history *HistoryCache
}

// NewPurchaser creates a Purchaser. watcher and history may be nil.
func NewPurchaser(creator TransactionCreator, watcher *PresaleWatcher, history *HistoryCache) *Purchaser {
	return &Purchaser{creator: creator, watcher: watcher, history: history}
}

// Buy records a purchase. On success the wallet's cached history is
// dropped and the presale watcher refetches.
func (p *Purchaser) Buy(ctx context.Context, in *domain.NewTransaction) (*domain.Transaction, error) {
	tx, err := p.creator.CreateTransaction(ctx, in)
	if err != nil {
		return nil, err
	}
	if p.history != nil {
		p.history.Invalidate(in.WalletAddress)
	}
	if p.watcher != nil {
		p.watcher.Invalidate()
	}
	return tx, nil
}
