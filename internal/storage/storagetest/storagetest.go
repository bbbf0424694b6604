// Package storagetest holds the behavioural contract every storage.Storage
// backend must satisfy.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-presale/internal/domain"
	"token-presale/internal/storage"
)

// Factory returns a fresh, empty backend for one subtest.
type Factory func(t *testing.T) storage.Storage

// activeToggler is implemented by backends that can deactivate referral codes.
type activeToggler interface {
	SetActive(ctx context.Context, code string, active bool) error
}

// Run executes the contract against backends built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("PresaleSeed", func(t *testing.T) { testPresaleSeed(t, newStore(t)) })
	t.Run("PresaleUpdate", func(t *testing.T) { testPresaleUpdate(t, newStore(t)) })
	t.Run("AddRaisedConcurrent", func(t *testing.T) { testAddRaisedConcurrent(t, newStore(t)) })
	t.Run("Transactions", func(t *testing.T) { testTransactions(t, newStore(t)) })
	t.Run("TransactionUpdate", func(t *testing.T) { testTransactionUpdate(t, newStore(t)) })
	t.Run("ReferralCodes", func(t *testing.T) { testReferralCodes(t, newStore(t)) })
}

func testUsers(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	u, err := s.CreateUser(ctx, &domain.NewUser{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice", u.Username)

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Username, got.Username)

	got, err = s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.CreateUser(ctx, &domain.NewUser{Username: "alice", Password: "other"})
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey), "expected ErrDuplicateKey, got %v", err)

	_, err = s.GetUserByUsername(ctx, "bob")
	assert.True(t, errors.Is(err, storage.ErrNotFound), "expected ErrNotFound, got %v", err)

	_, err = s.GetUser(ctx, "00000000-0000-0000-0000-000000000000")
	assert.True(t, errors.Is(err, storage.ErrNotFound), "expected ErrNotFound, got %v", err)
}

func testPresaleSeed(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	before := time.Now()

	st, err := s.GetPresaleState(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, st.ID)
	assert.True(t, st.TotalRaised.Equal(domain.SeedTotalRaised), "totalRaised = %s", st.TotalRaised)
	assert.True(t, st.TotalSupply.Equal(domain.SeedTotalSupply), "totalSupply = %s", st.TotalSupply)
	assert.True(t, st.CurrentRate.Equal(domain.SeedCurrentRate), "currentRate = %s", st.CurrentRate)
	assert.True(t, st.IsActive)
	assert.WithinDuration(t, before.Add(domain.SeedStageDuration), st.StageEndTime, time.Minute)

	again, err := s.GetPresaleState(ctx)
	require.NoError(t, err)
	assert.Equal(t, st.ID, again.ID, "seed must happen once")
}

func testPresaleUpdate(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	st, err := s.GetPresaleState(ctx)
	require.NoError(t, err)

	rate := decimal.NewFromInt(80)
	inactive := false
	updated, err := s.UpdatePresaleState(ctx, &domain.PresalePatch{CurrentRate: &rate, IsActive: &inactive})
	require.NoError(t, err)
	assert.True(t, updated.CurrentRate.Equal(rate))
	assert.False(t, updated.IsActive)
	assert.True(t, updated.TotalRaised.Equal(st.TotalRaised), "untouched field changed")
	assert.False(t, updated.UpdatedAt.Before(st.UpdatedAt))

	got, err := s.GetPresaleState(ctx)
	require.NoError(t, err)
	assert.True(t, got.CurrentRate.Equal(rate))
	assert.False(t, got.IsActive)
}

func testAddRaisedConcurrent(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	st, err := s.GetPresaleState(ctx)
	require.NoError(t, err)

	const writers = 20
	step := decimal.RequireFromString("12.5")

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.AddRaised(ctx, step); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.GetPresaleState(ctx)
	require.NoError(t, err)
	want := st.TotalRaised.Add(step.Mul(decimal.NewFromInt(writers)))
	assert.True(t, got.TotalRaised.Equal(want), "totalRaised = %s, want %s", got.TotalRaised, want)
}

func testTransactions(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	empty := ""
	first, err := s.CreateTransaction(ctx, &domain.NewTransaction{
		WalletAddress: "0xAbC",
		Currency:      domain.CurrencyETH,
		PayAmount:     "0.5",
		ReceiveAmount: "113750",
		ReferralCode:  &empty,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, domain.TxStatusPending, first.Status)
	assert.Nil(t, first.TxHash)
	assert.Nil(t, first.ReferralCode, "empty referral code should be stored as null")
	assert.True(t, first.PayAmount.Equal(decimal.RequireFromString("0.5")))

	code := "WELCOME10"
	second, err := s.CreateTransaction(ctx, &domain.NewTransaction{
		WalletAddress: "0xabc",
		Currency:      domain.CurrencyUSDT,
		PayAmount:     "100",
		ReceiveAmount: "6500",
		ReferralCode:  &code,
	})
	require.NoError(t, err)
	require.NotNil(t, second.ReferralCode)
	assert.Equal(t, code, *second.ReferralCode)

	_, err = s.CreateTransaction(ctx, &domain.NewTransaction{
		WalletAddress: "0xdef",
		Currency:      domain.CurrencySOL,
		PayAmount:     "3",
		ReceiveAmount: "19500",
	})
	require.NoError(t, err)

	txs, err := s.GetTransactionsByWallet(ctx, "0XABC")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, second.ID, txs[0].ID, "newest first")
	assert.Equal(t, first.ID, txs[1].ID)

	none, err := s.GetTransactionsByWallet(ctx, "0xnobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func testTransactionUpdate(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	tx, err := s.CreateTransaction(ctx, &domain.NewTransaction{
		WalletAddress: "wallet-1",
		Currency:      domain.CurrencyBNB,
		PayAmount:     "1",
		ReceiveAmount: "39000",
	})
	require.NoError(t, err)

	hash := "0xhash"
	status := domain.TxStatusCompleted
	updated, err := s.UpdateTransaction(ctx, tx.ID, &domain.TransactionPatch{TxHash: &hash, Status: &status})
	require.NoError(t, err)
	require.NotNil(t, updated.TxHash)
	assert.Equal(t, hash, *updated.TxHash)
	assert.Equal(t, status, updated.Status)
	assert.True(t, updated.PayAmount.Equal(tx.PayAmount))

	_, err = s.UpdateTransaction(ctx, "00000000-0000-0000-0000-000000000000", &domain.TransactionPatch{TxHash: &hash})
	assert.True(t, errors.Is(err, storage.ErrNotFound), "expected ErrNotFound, got %v", err)
}

func testReferralCodes(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	rc, err := s.CreateReferralCode(ctx, &domain.NewReferralCode{Code: "friend5", DiscountPercent: "5"})
	require.NoError(t, err)
	assert.Equal(t, "FRIEND5", rc.Code)
	assert.True(t, rc.IsActive)
	assert.True(t, rc.UsageCount.IsZero())
	assert.True(t, rc.DiscountPercent.Equal(decimal.NewFromInt(5)))

	noDiscount, err := s.CreateReferralCode(ctx, &domain.NewReferralCode{Code: "PLAIN"})
	require.NoError(t, err)
	assert.True(t, noDiscount.DiscountPercent.IsZero())

	_, err = s.CreateReferralCode(ctx, &domain.NewReferralCode{Code: "Friend5"})
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey), "expected ErrDuplicateKey, got %v", err)

	got, err := s.GetReferralCode(ctx, "Friend5")
	require.NoError(t, err)
	assert.Equal(t, rc.ID, got.ID)

	used, err := s.UseReferralCode(ctx, "friend5")
	require.NoError(t, err)
	assert.True(t, used.UsageCount.Equal(decimal.NewFromInt(1)))

	used, err = s.UseReferralCode(ctx, "FRIEND5")
	require.NoError(t, err)
	assert.True(t, used.UsageCount.Equal(decimal.NewFromInt(2)))

	_, err = s.GetReferralCode(ctx, "MISSING")
	assert.True(t, errors.Is(err, storage.ErrNotFound), "expected ErrNotFound, got %v", err)

	_, err = s.UseReferralCode(ctx, "MISSING")
	assert.True(t, errors.Is(err, storage.ErrNotFound), "expected ErrNotFound, got %v", err)

	toggler, ok := s.(activeToggler)
	if !ok {
		return
	}
	require.NoError(t, toggler.SetActive(ctx, "FRIEND5", false))

	_, err = s.UseReferralCode(ctx, "FRIEND5")
	assert.True(t, errors.Is(err, storage.ErrNotFound), "inactive code must not apply, got %v", err)

	got, err = s.GetReferralCode(ctx, "FRIEND5")
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.True(t, got.UsageCount.Equal(decimal.NewFromInt(2)))
}
