// Package main runs the presale HTTP API: storage adapter, optional
// purchase analytics sink, live feed, and metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"token-presale/internal/api"
	"token-presale/internal/config"
	"token-presale/internal/storage"
	chstore "token-presale/internal/storage/clickhouse"
	"token-presale/internal/storage/memory"
	"token-presale/internal/storage/migrations"
	pgstore "token-presale/internal/storage/postgres"
)

const limiterIdle = 10 * time.Minute

// stores holds the selected storage backends.
type stores struct {
	store            storage.Storage
	purchases        storage.PurchaseEventStore
	pool             *pgstore.Pool
	storageBackend   string
	analyticsBackend string
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger := cfg.NewLogger(os.Stdout)
	log := logger.WithField("component", "server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, cleanup, err := createStores(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("create stores")
	}
	defer cleanup()

	apiServer := api.New(api.Options{
		Store:            st.store,
		Purchases:        st.purchases,
		Logger:           logger,
		StrictCurrency:   cfg.StrictCurrency,
		TokenSymbol:      cfg.TokenSymbol,
		AssetsDir:        cfg.AssetsDir,
		ImgDir:           cfg.ImgDir,
		AllowedOrigins:   cfg.AllowedOrigins,
		RateLimitRPS:     cfg.RateLimitRPS,
		RateLimitBurst:   cfg.RateLimitBurst,
		StorageBackend:   st.storageBackend,
		AnalyticsBackend: st.analyticsBackend,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go runHousekeeping(ctx, apiServer, st.pool)

	// Closed once in-flight requests have drained
	drained := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Infof("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		go func() {
			select {
			case sig := <-sigCh:
				log.Warnf("Received second signal %v, forcing immediate shutdown", sig)
				os.Exit(1)
			case <-drained:
			}
		}()

		// Hijacked feed connections are not tracked by Shutdown.
		apiServer.Close()

		shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer stop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warnf("Graceful shutdown timed out after %v", cfg.ShutdownTimeout)
		}
		close(drained)
	}()

	log.WithFields(logrus.Fields{
		"addr":      cfg.HTTPAddr,
		"storage":   st.storageBackend,
		"analytics": st.analyticsBackend,
		"strict":    cfg.StrictCurrency,
	}).Info("Starting HTTP server")

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("HTTP server error")
	}
	<-drained

	log.Info("Shutdown complete")
}

// createStores selects the storage adapter and the purchase analytics sink.
func createStores(ctx context.Context, cfg *config.Config, log *logrus.Entry) (*stores, func(), error) {
	st := &stores{}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.UseMemory {
		st.store = memory.NewSeededStore()
		st.storageBackend = "memory"
	} else {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
		}
		log.Info("PostgreSQL migrations applied")

		st.store = pgstore.NewStore(pool)
		st.pool = pool
		st.storageBackend = "postgres"
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := chstore.Open(ctx, cfg.ClickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		closers = append(closers, func() {
			if err := conn.Close(); err != nil {
				log.WithError(err).Warn("close clickhouse")
			}
		})

		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		log.Info("ClickHouse migrations applied")

		st.purchases = chstore.NewPurchaseEventStore(conn)
		st.analyticsBackend = "clickhouse"
	} else {
		st.purchases = memory.NewPurchaseEventStore()
		st.analyticsBackend = "memory"
	}

	return st, cleanup, nil
}

// runHousekeeping sweeps idle rate limiter state and publishes pool stats.
func runHousekeeping(ctx context.Context, s *api.Server, pool *pgstore.Pool) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepLimiters(limiterIdle)
			if pool != nil {
				pool.ReportStats()
			}
		}
	}
}
