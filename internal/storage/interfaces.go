package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"token-presale/internal/domain"
)

// UserStore provides access to users storage.
type UserStore interface {
	// GetUser retrieves a user by ID. Returns ErrNotFound if not exists.
	GetUser(ctx context.Context, id string) (*domain.User, error)

	// GetUserByUsername retrieves a user by exact username. Returns ErrNotFound if not exists.
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)

	// CreateUser inserts a user with a fresh ID. Returns ErrDuplicateKey if the username is taken.
	CreateUser(ctx context.Context, u *domain.NewUser) (*domain.User, error)
}

// PresaleStore provides access to the presale_data record.
type PresaleStore interface {
	// GetPresaleState returns the most recently updated presale record,
	// seeding it on first access when none exists.
	GetPresaleState(ctx context.Context) (*domain.PresaleState, error)

	// UpdatePresaleState merges the non-nil patch fields and stamps UpdatedAt.
	UpdatePresaleState(ctx context.Context, p *domain.PresalePatch) (*domain.PresaleState, error)

	// AddRaised atomically increments TotalRaised by amount and stamps UpdatedAt.
	AddRaised(ctx context.Context, amount decimal.Decimal) (*domain.PresaleState, error)
}

// TransactionStore provides access to transactions storage.
type TransactionStore interface {
	// CreateTransaction records a pending purchase with a fresh ID and no hash.
	CreateTransaction(ctx context.Context, tx *domain.NewTransaction) (*domain.Transaction, error)

	// GetTransactionsByWallet returns transactions whose wallet address matches
	// case-insensitively, newest first. Returns an empty slice when none match.
	GetTransactionsByWallet(ctx context.Context, walletAddress string) ([]*domain.Transaction, error)

	// UpdateTransaction merges the non-nil patch fields. Returns ErrNotFound for an unknown ID.
	UpdateTransaction(ctx context.Context, id string, p *domain.TransactionPatch) (*domain.Transaction, error)
}

// ReferralCodeStore provides access to referral_codes storage.
// Codes are matched and stored uppercase.
type ReferralCodeStore interface {
	// GetReferralCode retrieves a code. Returns ErrNotFound if not exists.
	GetReferralCode(ctx context.Context, code string) (*domain.ReferralCode, error)

	// CreateReferralCode inserts an active code with zero usage. Returns ErrDuplicateKey if it exists.
	CreateReferralCode(ctx context.Context, c *domain.NewReferralCode) (*domain.ReferralCode, error)

	// UseReferralCode increments the usage count of an active code.
	// Returns ErrNotFound if the code does not exist or is inactive.
	UseReferralCode(ctx context.Context, code string) (*domain.ReferralCode, error)
}

// Storage is the full capability set the route layer depends on.
type Storage interface {
	UserStore
	PresaleStore
	TransactionStore
	ReferralCodeStore
}

// PurchaseEventStore is the analytics sink for recorded purchases.
type PurchaseEventStore interface {
	// Record appends one event.
	Record(ctx context.Context, e *domain.PurchaseEvent) error

	// TotalsByCurrency aggregates all recorded events per currency, ordered by currency.
	TotalsByCurrency(ctx context.Context) ([]domain.CurrencyTotals, error)
}
