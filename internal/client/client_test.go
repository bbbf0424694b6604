package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-presale/internal/api"
	"token-presale/internal/domain"
	"token-presale/internal/storage/memory"
)

func newAPIServer(t *testing.T) *Client {
	t.Helper()
	s := api.New(api.Options{Store: memory.NewSeededStore()})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Close()
		srv.Close()
	})
	return New(srv.URL, WithRetryDelay(time.Millisecond))
}

func TestClient_PurchaseFlow(t *testing.T) {
	c := newAPIServer(t)
	ctx := context.Background()

	require.NoError(t, c.Health(ctx))

	view, err := c.GetPresale(ctx)
	require.NoError(t, err)
	assert.Equal(t, "38.37", view.Percentage)
	assert.True(t, view.CurrentRate.Equal(decimal.NewFromInt(65)))

	q, err := c.Calculate(ctx, domain.CurrencyBNB, decimal.NewFromInt(2))
	require.NoError(t, err)
	assert.Equal(t, 1200.0, q.UsdtValue)
	assert.Equal(t, 78000.0, q.TokenAmount)

	rc, err := c.GetReferral(ctx, "welcome10")
	require.NoError(t, err)
	assert.True(t, rc.IsValid)

	code := rc.Code
	tx, err := c.CreateTransaction(ctx, &domain.NewTransaction{
		WalletAddress: "0xWallet",
		Currency:      domain.CurrencyBNB,
		PayAmount:     "2",
		ReceiveAmount: "78000",
		ReferralCode:  &code,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusPending, tx.Status)

	applied, err := c.ApplyReferral(ctx, code)
	require.NoError(t, err)
	assert.True(t, applied.Applied)

	txs, err := c.GetTransactions(ctx, "0xwallet")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, tx.ID, txs[0].ID)

	purchases, err := c.WalletPurchases(ctx, "0xWallet")
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, "78000 PEPEWUFF", purchases[0].WalletName)

	totals, err := c.PresaleStats(ctx)
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, uint64(1), totals[0].Purchases)

	view, err = c.GetPresale(ctx)
	require.NoError(t, err)
	assert.True(t, view.TotalRaised.Equal(decimal.RequireFromString("77935.34")))

	_, err = c.RecordWalletPurchase(ctx, &domain.NewTransaction{
		WalletAddress: "0xWallet",
		Currency:      domain.CurrencyETH,
		PayAmount:     "1",
		ReceiveAmount: "227500",
	})
	require.NoError(t, err)

	purchases, err = c.WalletPurchases(ctx, "0xwallet")
	require.NoError(t, err)
	assert.Len(t, purchases, 2)

	view, err = c.GetPresale(ctx)
	require.NoError(t, err)
	assert.True(t, view.TotalRaised.Equal(decimal.RequireFromString("77935.34")), "wallet purchases do not raise the total")
}

func TestClient_APIError(t *testing.T) {
	c := newAPIServer(t)
	ctx := context.Background()

	_, err := c.CreateTransaction(ctx, &domain.NewTransaction{Currency: domain.CurrencyETH, PayAmount: "1", ReceiveAmount: "1"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Invalid transaction data", apiErr.Message)
	require.Len(t, apiErr.Fields, 1)
	assert.Equal(t, "walletAddress", apiErr.Fields[0].Field)

	_, err = c.GetReferral(ctx, "NOPE")
	assert.True(t, IsNotFound(err))

	_, err = c.Calculate(ctx, domain.CurrencyETH, decimal.Zero)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid currency or amount", apiErr.Message)
}

func TestClient_RetriesReads(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, `{"message":"busy"}`, http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"totals":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithRetryDelay(time.Millisecond), WithMaxDelay(time.Millisecond))
	totals, err := c.PresaleStats(context.Background())
	require.NoError(t, err)
	assert.Empty(t, totals)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(srv.URL, WithMaxRetries(2), WithRetryDelay(time.Millisecond))
	_, err := c.GetPresale(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_DoesNotRetryClientErrorsOrMutations(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Invalid or inactive referral code"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithRetryDelay(time.Millisecond))

	_, err := c.GetReferral(context.Background(), "X")
	assert.True(t, IsNotFound(err))
	assert.Equal(t, int32(1), calls.Load())

	_, err = c.ApplyReferral(context.Background(), "X")
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_ContextCancelStopsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(srv.URL, WithRetryDelay(time.Hour))
	_, err := c.GetPresale(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClient_SubscribeFeed(t *testing.T) {
	c := newAPIServer(t)
	ctx := context.Background()

	sub, err := c.SubscribeFeed(ctx)
	require.NoError(t, err)
	defer sub.Close()

	next := func() domain.PresaleView {
		t.Helper()
		select {
		case v, ok := <-sub.Updates():
			require.True(t, ok, "feed closed: %v", sub.Err())
			return v
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for feed update")
			return domain.PresaleView{}
		}
	}

	assert.Equal(t, "38.37", next().Percentage)

	_, err = c.CreateTransaction(ctx, &domain.NewTransaction{
		WalletAddress: "w",
		Currency:      domain.CurrencyUSDT,
		PayAmount:     "1000",
		ReceiveAmount: "65000",
	})
	require.NoError(t, err)

	v := next()
	assert.True(t, v.TotalRaised.Equal(decimal.RequireFromString("77735.34")))
}
