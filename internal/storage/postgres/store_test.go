package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-presale/internal/domain"
	"token-presale/internal/storage"
	"token-presale/internal/storage/migrations"
	"token-presale/internal/storage/storagetest"
)

func TestStore_Contract(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	storagetest.Run(t, func(t *testing.T) storage.Storage {
		truncateAll(t, pool)
		return NewStore(pool)
	})
}

func TestStore_SeedReferralCodeFromMigration(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewStore(pool)

	rc, err := store.GetReferralCode(ctx, "welcome10")
	require.NoError(t, err)
	assert.Equal(t, "WELCOME10", rc.Code)
	assert.True(t, rc.DiscountPercent.Equal(decimal.NewFromInt(10)))

	// Re-running migrations must not duplicate or reset the seed.
	_, err = store.UseReferralCode(ctx, "WELCOME10")
	require.NoError(t, err)
	require.NoError(t, migrations.RunPostgresMigrations(ctx, pool))

	rc, err = store.GetReferralCode(ctx, "WELCOME10")
	require.NoError(t, err)
	assert.True(t, rc.UsageCount.Equal(decimal.NewFromInt(1)))
}

func TestPresaleStore_UpdateStageEnd(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPresaleStore(pool)

	end := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	st, err := store.UpdatePresaleState(ctx, &domain.PresalePatch{StageEndTime: ptr(end)})
	require.NoError(t, err)
	assert.True(t, st.StageEndTime.Equal(end))
	assert.True(t, st.TotalRaised.Equal(domain.SeedTotalRaised))

	var rows int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM presale_data`).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestTransactionStore_DecimalPrecision(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTransactionStore(pool)

	tx, err := store.CreateTransaction(ctx, &domain.NewTransaction{
		WalletAddress: "So11111111111111111111111111111111111111112",
		Currency:      domain.CurrencySOL,
		PayAmount:     "0.12345678",
		ReceiveAmount: "802.47",
	})
	require.NoError(t, err)
	assert.True(t, tx.PayAmount.Equal(decimal.RequireFromString("0.12345678")), "payAmount = %s", tx.PayAmount)
	assert.True(t, tx.ReceiveAmount.Equal(decimal.RequireFromString("802.47")), "receiveAmount = %s", tx.ReceiveAmount)
	assert.Equal(t, domain.CurrencySOL, tx.Currency)
	assert.Equal(t, domain.TxStatusPending, tx.Status)
}

func TestTransactionStore_InvalidStatus(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTransactionStore(pool)

	tx, err := store.CreateTransaction(ctx, &domain.NewTransaction{
		WalletAddress: "w",
		Currency:      domain.CurrencyUSDT,
		PayAmount:     "1",
		ReceiveAmount: "65",
	})
	require.NoError(t, err)

	_, err = store.UpdateTransaction(ctx, tx.ID, &domain.TransactionPatch{Status: ptr(domain.TxStatus("refunded"))})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	_, err = store.UpdateTransaction(ctx, "not-a-uuid", &domain.TransactionPatch{})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
