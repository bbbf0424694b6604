package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"token-presale/internal/domain"
	"token-presale/internal/storage"
)

// TransactionStore implements storage.TransactionStore using PostgreSQL.
type TransactionStore struct {
	pool *Pool
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool *Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

const transactionColumns = `id::text, wallet_address, currency, pay_amount, receive_amount, tx_hash, status, referral_code, created_at`

// CreateTransaction records a pending purchase with a fresh ID and no hash.
func (s *TransactionStore) CreateTransaction(ctx context.Context, in *domain.NewTransaction) (*domain.Transaction, error) {
	if in == nil {
		return nil, storage.ErrInvalidInput
	}
	pay, receive, err := in.Amounts()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	var referral *string
	if in.ReferralCode != nil && *in.ReferralCode != "" {
		referral = in.ReferralCode
	}

	query := `
		INSERT INTO transactions (id, wallet_address, currency, pay_amount, receive_amount, status, referral_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + transactionColumns

	start := time.Now()
	tx, err := scanTransaction(s.pool.QueryRow(ctx, query,
		uuid.NewString(),
		in.WalletAddress,
		string(in.Currency),
		pay,
		receive,
		string(domain.TxStatusPending),
		referral,
	))
	observe("create_transaction", start, err)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	return tx, nil
}

// GetTransactionsByWallet returns transactions whose wallet address matches
// case-insensitively, newest first.
func (s *TransactionStore) GetTransactionsByWallet(ctx context.Context, walletAddress string) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE lower(wallet_address) = lower($1)
		ORDER BY created_at DESC, id DESC
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, walletAddress)
	if err != nil {
		observe("get_transactions_by_wallet", start, err)
		return nil, fmt.Errorf("query transactions by wallet: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			observe("get_transactions_by_wallet", start, err)
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		result = append(result, tx)
	}
	err = rows.Err()
	observe("get_transactions_by_wallet", start, err)
	if err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return result, nil
}

// UpdateTransaction merges the non-nil patch fields. Returns ErrNotFound for an unknown ID.
func (s *TransactionStore) UpdateTransaction(ctx context.Context, id string, p *domain.TransactionPatch) (*domain.Transaction, error) {
	if !validID(id) {
		return nil, storage.ErrNotFound
	}
	if p == nil {
		p = &domain.TransactionPatch{}
	}
	var status *string
	if p.Status != nil {
		if !p.Status.IsValid() {
			return nil, storage.ErrInvalidInput
		}
		st := string(*p.Status)
		status = &st
	}

	query := `
		UPDATE transactions SET
			tx_hash        = COALESCE($2, tx_hash),
			status         = COALESCE($3, status),
			receive_amount = COALESCE($4, receive_amount),
			referral_code  = COALESCE($5, referral_code)
		WHERE id = $1
		RETURNING ` + transactionColumns

	start := time.Now()
	tx, err := scanTransaction(s.pool.QueryRow(ctx, query, id, p.TxHash, status, p.ReceiveAmount, p.ReferralCode))
	observe("update_transaction", start, err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("update transaction: %w", err)
	}
	return tx, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		tx       domain.Transaction
		currency string
		status   string
	)
	err := row.Scan(
		&tx.ID,
		&tx.WalletAddress,
		&currency,
		&tx.PayAmount,
		&tx.ReceiveAmount,
		&tx.TxHash,
		&status,
		&tx.ReferralCode,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	tx.Currency = domain.Currency(currency)
	tx.Status = domain.TxStatus(status)
	return &tx, nil
}
