package client

import (
	"context"
	"strings"
	"sync"
	"time"

	"token-presale/internal/domain"
)

// DefaultHistoryTTL is how long a wallet's history stays cached.
const DefaultHistoryTTL = 30 * time.Second

// TransactionSource lists a wallet's transactions.
type TransactionSource interface {
	GetTransactions(ctx context.Context, walletAddress string) ([]*domain.Transaction, error)
}

// HistoryCache caches per-wallet transaction lists. Wallets are matched
// case-insensitively, like the server does.
type HistoryCache struct {
	source TransactionSource
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]historyEntry
	gens    map[string]uint64 // bumped by Invalidate
}

type historyEntry struct {
	txs       []*domain.Transaction
	fetchedAt time.Time
}

// NewHistoryCache creates a cache. A non-positive ttl uses DefaultHistoryTTL.
func NewHistoryCache(source TransactionSource, ttl time.Duration) *HistoryCache {
	if ttl <= 0 {
		ttl = DefaultHistoryTTL
	}
	return &HistoryCache{
		source:  source,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]historyEntry),
		gens:    make(map[string]uint64),
	}
}

// Get returns the wallet's transactions, fetching when absent or expired.
// A fetch that overlaps an Invalidate is returned but not cached.
// The returned slice must not be modified.
func (h *HistoryCache) Get(ctx context.Context, walletAddress string) ([]*domain.Transaction, error) {
	key := strings.ToLower(walletAddress)

	h.mu.Lock()
	e, ok := h.entries[key]
	gen := h.gens[key]
	h.mu.Unlock()
	if ok && h.now().Sub(e.fetchedAt) < h.ttl {
		return e.txs, nil
	}

	txs, err := h.source.GetTransactions(ctx, walletAddress)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	if h.gens[key] == gen {
		h.entries[key] = historyEntry{txs: txs, fetchedAt: h.now()}
	}
	h.mu.Unlock()
	return txs, nil
}

// Invalidate drops the cached history for walletAddress.
func (h *HistoryCache) Invalidate(walletAddress string) {
	key := strings.ToLower(walletAddress)
	h.mu.Lock()
	delete(h.entries, key)
	h.gens[key]++
	h.mu.Unlock()
}
