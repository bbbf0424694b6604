package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-presale/internal/domain"
)

type fakePresale struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (f *fakePresale) GetPresale(context.Context) (*domain.PresaleView, error) {
	n := f.calls.Add(1)
	if f.fail.Load() {
		return nil, errors.New("unavailable")
	}
	return &domain.PresaleView{
		PresaleState: domain.PresaleState{TotalRaised: decimal.NewFromInt(int64(n))},
		Percentage:   "0.00",
	}, nil
}

func receive(t *testing.T, ch <-chan domain.PresaleView) domain.PresaleView {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for presale update")
		return domain.PresaleView{}
	}
}

func TestPresaleWatcher_InvalidateRefetches(t *testing.T) {
	src := &fakePresale{}
	w := NewPresaleWatcher(src, WithInterval(time.Hour))
	updates := w.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	first := receive(t, updates)
	assert.True(t, first.TotalRaised.Equal(decimal.NewFromInt(1)))

	cur, ok := w.Current()
	require.True(t, ok)
	assert.True(t, cur.TotalRaised.Equal(decimal.NewFromInt(1)))

	w.Invalidate()
	second := receive(t, updates)
	assert.True(t, second.TotalRaised.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, int32(2), src.calls.Load())

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	_, open := <-updates
	assert.False(t, open, "subscriptions close when Run returns")
}

func TestPresaleWatcher_Polls(t *testing.T) {
	src := &fakePresale{}
	w := NewPresaleWatcher(src, WithInterval(5*time.Millisecond))
	updates := w.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	receive(t, updates)
	receive(t, updates)
	assert.GreaterOrEqual(t, src.calls.Load(), int32(2))
}

func TestPresaleWatcher_KeepsLastViewOnError(t *testing.T) {
	src := &fakePresale{}
	w := NewPresaleWatcher(src, WithInterval(time.Hour))

	_, ok := w.Current()
	assert.False(t, ok)

	ctx := context.Background()
	w.fetch(ctx)
	require.NoError(t, w.Err())

	src.fail.Store(true)
	w.fetch(ctx)
	assert.Error(t, w.Err())

	cur, ok := w.Current()
	require.True(t, ok)
	assert.True(t, cur.TotalRaised.Equal(decimal.NewFromInt(1)))
}

func TestPresaleWatcher_InvalidateNeverBlocks(t *testing.T) {
	w := NewPresaleWatcher(&fakePresale{})
	for i := 0; i < 10; i++ {
		w.Invalidate()
	}
}

type fakeHistory struct {
	mu    sync.Mutex
	calls map[string]int
}

func (f *fakeHistory) GetTransactions(_ context.Context, wallet string) ([]*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[wallet]++
	return []*domain.Transaction{{WalletAddress: wallet}}, nil
}

func (f *fakeHistory) count(wallet string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[wallet]
}

func TestHistoryCache(t *testing.T) {
	src := &fakeHistory{}
	h := NewHistoryCache(src, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	h.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := h.Get(ctx, "0xABC")
	require.NoError(t, err)
	_, err = h.Get(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, 1, src.count("0xABC"), "second read is served from cache")

	now = now.Add(2 * time.Minute)
	_, err = h.Get(ctx, "0xABC")
	require.NoError(t, err)
	assert.Equal(t, 2, src.count("0xABC"), "expired entries are refetched")

	h.Invalidate("0XABC")
	_, err = h.Get(ctx, "0xABC")
	require.NoError(t, err)
	assert.Equal(t, 3, src.count("0xABC"))
}

// blockingHistory parks each fetch until release is closed.
type blockingHistory struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (b *blockingHistory) GetTransactions(_ context.Context, wallet string) ([]*domain.Transaction, error) {
	n := b.calls.Add(1)
	if n == 1 {
		close(b.started)
		<-b.release
	}
	txs := make([]*domain.Transaction, n)
	for i := range txs {
		txs[i] = &domain.Transaction{WalletAddress: wallet}
	}
	return txs, nil
}

func TestHistoryCache_InvalidateDuringFetchIsNotOverwritten(t *testing.T) {
	src := &blockingHistory{started: make(chan struct{}), release: make(chan struct{})}
	h := NewHistoryCache(src, time.Hour)
	ctx := context.Background()

	type result struct {
		txs []*domain.Transaction
		err error
	}
	done := make(chan result, 1)
	go func() {
		txs, err := h.Get(ctx, "w")
		done <- result{txs, err}
	}()

	<-src.started
	h.Invalidate("w")
	close(src.release)

	stale := <-done
	require.NoError(t, stale.err)
	assert.Len(t, stale.txs, 1, "the in-flight caller still gets its result")

	fresh, err := h.Get(ctx, "w")
	require.NoError(t, err)
	assert.Len(t, fresh, 2, "the pre-invalidation list must not be cached")
	assert.Equal(t, int32(2), src.calls.Load())
}

type fakeCreator struct {
	err error
}

func (f fakeCreator) CreateTransaction(_ context.Context, in *domain.NewTransaction) (*domain.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Transaction{ID: "tx-1", WalletAddress: in.WalletAddress, Status: domain.TxStatusPending}, nil
}

func TestPurchaser_Buy(t *testing.T) {
	hist := &fakeHistory{}
	history := NewHistoryCache(hist, time.Hour)
	watcher := NewPresaleWatcher(&fakePresale{})
	ctx := context.Background()

	_, err := history.Get(ctx, "w")
	require.NoError(t, err)

	p := NewPurchaser(fakeCreator{}, watcher, history)
	tx, err := p.Buy(ctx, &domain.NewTransaction{WalletAddress: "w"})
	require.NoError(t, err)
	assert.Equal(t, "tx-1", tx.ID)

	_, err = history.Get(ctx, "w")
	require.NoError(t, err)
	assert.Equal(t, 2, hist.count("w"), "history is refetched after a purchase")
	assert.Len(t, watcher.refresh, 1, "watcher refetch is pending")
}

func TestPurchaser_FailureKeepsCaches(t *testing.T) {
	hist := &fakeHistory{}
	history := NewHistoryCache(hist, time.Hour)
	watcher := NewPresaleWatcher(&fakePresale{})
	ctx := context.Background()

	_, err := history.Get(ctx, "w")
	require.NoError(t, err)

	p := NewPurchaser(fakeCreator{err: errors.New("rejected")}, watcher, history)
	_, err = p.Buy(ctx, &domain.NewTransaction{WalletAddress: "w"})
	require.Error(t, err)

	_, err = history.Get(ctx, "w")
	require.NoError(t, err)
	assert.Equal(t, 1, hist.count("w"))
	assert.Len(t, watcher.refresh, 0)
}

func TestCountdown(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		end  time.Time
		want Remaining
	}{
		{"seed stage", now.Add(domain.SeedStageDuration), Remaining{Days: 3, Hours: 5, Minutes: 17, Seconds: 14}},
		{"sub-second", now.Add(900 * time.Millisecond), Remaining{}},
		{"passed", now.Add(-time.Hour), Remaining{}},
		{"exactly now", now, Remaining{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Countdown(tt.end, now)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.IsZero(), got.IsZero())
		})
	}

	assert.Equal(t, "3d 05h 17m 14s", Countdown(now.Add(domain.SeedStageDuration), now).String())
}
