package client

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"token-presale/internal/domain"
)

// DefaultPollInterval is how often PresaleWatcher refetches.
const DefaultPollInterval = 30 * time.Second

// PresaleSource fetches the current presale view.
type PresaleSource interface {
	GetPresale(ctx context.Context) (*domain.PresaleView, error)
}

// PresaleWatcher polls the presale state and keeps the latest view.
type PresaleWatcher struct {
	source   PresaleSource
	interval time.Duration
	log      *logrus.Entry
	refresh  chan struct{}

	mu      sync.RWMutex
	current *domain.PresaleView
	err     error

	subsMu sync.Mutex
	subs   []chan domain.PresaleView
	done   bool
}

// WatcherOption configures PresaleWatcher.
type WatcherOption func(*PresaleWatcher)

// WithInterval sets the poll interval.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *PresaleWatcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithLogger sets the logger used for fetch failures.
func WithLogger(log *logrus.Entry) WatcherOption {
	return func(w *PresaleWatcher) {
		w.log = log
	}
}

// NewPresaleWatcher creates a watcher. Call Run to start polling.
func NewPresaleWatcher(source PresaleSource, opts ...WatcherOption) *PresaleWatcher {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	w := &PresaleWatcher{
		source:   source,
		interval: DefaultPollInterval,
		log:      logrus.NewEntry(discard),
		refresh:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run fetches immediately, then on every tick or invalidation, until ctx
// is done. Subscriber channels are closed on return.
func (w *PresaleWatcher) Run(ctx context.Context) error {
	defer w.closeSubs()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.fetch(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-w.refresh:
			ticker.Reset(w.interval)
		}
		w.fetch(ctx)
	}
}

func (w *PresaleWatcher) fetch(ctx context.Context) {
	view, err := w.source.GetPresale(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.log.WithError(err).Warn("fetch presale")
		w.mu.Lock()
		w.err = err
		w.mu.Unlock()
		return
	}

	w.mu.Lock()
	w.current = view
	w.err = nil
	w.mu.Unlock()

	w.publish(*view)
}

// Current returns the last fetched view, or false before the first success.
// A failed refetch keeps the previous view.
func (w *PresaleWatcher) Current() (*domain.PresaleView, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.current == nil {
		return nil, false
	}
	v := *w.current
	return &v, true
}

// Err returns the error of the most recent fetch, nil if it succeeded.
func (w *PresaleWatcher) Err() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.err
}

// Invalidate requests an immediate refetch. It never blocks.
func (w *PresaleWatcher) Invalidate() {
	select {
	case w.refresh <- struct{}{}:
	default:
	}
}

// Subscribe returns a channel receiving every fetched view. A slow reader
// only sees the latest one.
func (w *PresaleWatcher) Subscribe() <-chan domain.PresaleView {
	ch := make(chan domain.PresaleView, 1)

	w.subsMu.Lock()
	defer w.subsMu.Unlock()
	if w.done {
		close(ch)
		return ch
	}
	w.subs = append(w.subs, ch)
	return ch
}

func (w *PresaleWatcher) publish(v domain.PresaleView) {
	w.subsMu.Lock()
	defer w.subsMu.Unlock()

	for _, ch := range w.subs {
		// Replace a stale pending value.
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

func (w *PresaleWatcher) closeSubs() {
	w.subsMu.Lock()
	defer w.subsMu.Unlock()

	for _, ch := range w.subs {
		close(ch)
	}
	w.subs = nil
	w.done = true
}
