// Package main is a terminal watcher for a running presale API. It polls
// the presale state, optionally follows the live feed, and prints a wallet's
// purchase history on every change.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"token-presale/internal/client"
	"token-presale/internal/domain"
)

func main() {
	_ = godotenv.Load()

	apiURL := flag.String("api-url", envOr("PRESALE_API_URL", "http://localhost:5000"), "Presale API base URL")
	interval := flag.Duration("interval", client.DefaultPollInterval, "Poll interval")
	wallet := flag.String("wallet", "", "Wallet address whose purchases to show")
	follow := flag.Bool("feed", false, "Refresh on live feed updates in addition to polling")
	timeout := flag.Duration("timeout", client.DefaultTimeout, "HTTP request timeout")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log := logger.WithField("component", "presale-watch")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := client.New(*apiURL, client.WithTimeout(*timeout))
	if err := c.Health(ctx); err != nil {
		log.WithError(err).Fatalf("API at %s is not healthy", *apiURL)
	}

	watcher := client.NewPresaleWatcher(c, client.WithInterval(*interval), client.WithLogger(log))
	history := client.NewHistoryCache(c, *interval)
	updates := watcher.Subscribe()

	if *follow {
		go followFeed(ctx, c, watcher, history, *wallet, log)
	}

	go func() {
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("watcher stopped")
		}
	}()

	for view := range updates {
		printView(view)
		if *wallet == "" {
			continue
		}
		txs, err := history.Get(ctx, *wallet)
		if err != nil {
			log.WithError(err).Warn("fetch wallet history")
			continue
		}
		printHistory(*wallet, txs)
	}
}

// followFeed turns live feed pushes into watcher refreshes. It reconnects
// with backoff until ctx is done.
func followFeed(ctx context.Context, c *client.Client, w *client.PresaleWatcher, h *client.HistoryCache, wallet string, log *logrus.Entry) {
	delay := time.Second
	for ctx.Err() == nil {
		sub, err := c.SubscribeFeed(ctx)
		if err != nil {
			log.WithError(err).Warnf("feed connect failed, retrying in %v", delay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay = min(delay*2, 30*time.Second)
			continue
		}
		delay = time.Second

		func() {
			defer sub.Close()
			for {
				select {
				case <-ctx.Done():
					return
				case _, ok := <-sub.Updates():
					if !ok {
						if err := sub.Err(); err != nil {
							log.WithError(err).Warn("feed disconnected")
						}
						return
					}
					if wallet != "" {
						h.Invalidate(wallet)
					}
					w.Invalidate()
				}
			}
		}()
	}
}

func printView(v domain.PresaleView) {
	status := "active"
	if !v.IsActive {
		status = "inactive"
	}
	fmt.Printf("%s  raised %s / %s (%s%%)  rate %s  %s  ends in %s\n",
		time.Now().Format(time.TimeOnly),
		v.TotalRaised.StringFixed(2),
		v.TotalSupply.String(),
		v.Percentage,
		v.CurrentRate.String(),
		status,
		client.Countdown(v.StageEndTime, time.Now()),
	)
}

func printHistory(wallet string, txs []*domain.Transaction) {
	fmt.Printf("  %s: %d purchase(s)\n", wallet, len(txs))
	for _, tx := range txs {
		hash := "-"
		if tx.TxHash != nil {
			hash = *tx.TxHash
		}
		fmt.Printf("    %s  %s %s -> %s  %s  %s\n",
			tx.CreatedAt.Local().Format(time.DateTime),
			tx.PayAmount.String(), tx.Currency,
			tx.ReceiveAmount.String(),
			tx.Status, hash)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
