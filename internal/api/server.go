// Package api serves the presale storefront's HTTP/JSON endpoints.
package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"token-presale/internal/observability"
	"token-presale/internal/storage"
	"token-presale/internal/storage/memory"
)

// DefaultTokenSymbol is appended to wallet purchase names.
const DefaultTokenSymbol = "PEPEWUFF"

// Options configures a Server.
type Options struct {
	Store     storage.Storage            // required
	Purchases storage.PurchaseEventStore // analytics sink; in-memory when nil
	Logger    *logrus.Logger             // discarded when nil

	// StrictCurrency rejects currencies without a multiplier instead of
	// pricing them at 1.
	StrictCurrency bool
	TokenSymbol    string

	AssetsDir      string // served under /api/assets/ when set
	ImgDir         string // served under /img/ when set
	AllowedOrigins []string

	RateLimitRPS   float64 // per-client limit on mutating routes; 0 disables
	RateLimitBurst int

	Feed FeedConfig

	// Backend names reported by /status.
	StorageBackend   string
	AnalyticsBackend string
}

// Server holds the route layer's dependencies. Handlers keep no
// per-request state on it.
type Server struct {
	store     storage.Storage
	purchases storage.PurchaseEventStore
	log       *logrus.Entry
	opts      Options
	feed      *Feed
	limiter   *RateLimiter
	cors      *CORS
	started   time.Time
}

// New creates a Server.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
		opts.Logger.SetOutput(io.Discard)
	}
	if opts.Purchases == nil {
		opts.Purchases = memory.NewPurchaseEventStore()
		if opts.AnalyticsBackend == "" {
			opts.AnalyticsBackend = "memory"
		}
	}
	if opts.TokenSymbol == "" {
		opts.TokenSymbol = DefaultTokenSymbol
	}
	if opts.Feed == (FeedConfig{}) {
		opts.Feed = DefaultFeedConfig()
	}

	log := opts.Logger.WithField("component", "api")
	cors := NewCORS(opts.AllowedOrigins)

	s := &Server{
		store:     opts.Store,
		purchases: opts.Purchases,
		log:       log,
		opts:      opts,
		feed:      NewFeed(opts.Feed, log.WithField("component", "feed"), cors.Allowed),
		cors:      cors,
		started:   time.Now(),
	}
	if opts.RateLimitRPS > 0 {
		s.limiter = NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst)
	}
	return s
}

// Handler returns the root HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(metricsMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)

	// Static passthrough is registered ahead of the /api routes.
	if s.opts.AssetsDir != "" {
		r.PathPrefix("/api/assets/").Handler(
			http.StripPrefix("/api/assets/", http.FileServer(http.Dir(s.opts.AssetsDir))))
	}
	if s.opts.ImgDir != "" {
		r.PathPrefix("/img/").Handler(
			http.StripPrefix("/img/", http.FileServer(http.Dir(s.opts.ImgDir))))
	}

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/presale", s.handleGetPresale).Methods(http.MethodGet)
	api.HandleFunc("/presale/calculate", s.handleCalculate).Methods(http.MethodPost)
	api.HandleFunc("/presale/stats", s.handlePresaleStats).Methods(http.MethodGet)
	api.HandleFunc("/presale/ws", s.handleFeed).Methods(http.MethodGet)

	api.Handle("/transactions", s.limit(s.handleCreateTransaction)).Methods(http.MethodPost)
	api.HandleFunc("/transactions/{walletAddress}", s.handleGetTransactions).Methods(http.MethodGet)

	api.HandleFunc("/referral/{code}", s.handleGetReferral).Methods(http.MethodGet)
	api.Handle("/referral/apply", s.limit(s.handleApplyReferral)).Methods(http.MethodPost)

	api.HandleFunc("/wallet/purchase", s.handleWalletPurchases).Methods(http.MethodGet)
	api.Handle("/wallet/purchase", s.limit(s.handleRecordWalletPurchase)).Methods(http.MethodPost)

	var h http.Handler = r
	h = s.cors.Handler(h)
	h = loggingMiddleware(s.log)(h)
	h = requestIDMiddleware(h)
	h = recoverMiddleware(s.log)(h)
	return h
}

// SweepLimiters drops rate limiter state for clients idle longer than idle.
func (s *Server) SweepLimiters(idle time.Duration) {
	if s.limiter != nil {
		s.limiter.Cleanup(idle)
	}
}

// Close disconnects all live feed clients.
func (s *Server) Close() {
	s.feed.Close()
}

func (s *Server) limit(fn http.HandlerFunc) http.Handler {
	if s.limiter == nil {
		return fn
	}
	return s.limiter.Handler(fn)
}
