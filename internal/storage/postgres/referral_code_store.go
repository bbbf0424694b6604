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

// ReferralCodeStore implements storage.ReferralCodeStore using PostgreSQL.
type ReferralCodeStore struct {
	pool *Pool
}

// NewReferralCodeStore creates a new ReferralCodeStore.
func NewReferralCodeStore(pool *Pool) *ReferralCodeStore {
	return &ReferralCodeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ReferralCodeStore = (*ReferralCodeStore)(nil)

const referralColumns = `id::text, code, discount_percent, is_active, usage_count, created_at`

// GetReferralCode retrieves a code. Returns ErrNotFound if not exists.
func (s *ReferralCodeStore) GetReferralCode(ctx context.Context, code string) (*domain.ReferralCode, error) {
	query := `SELECT ` + referralColumns + ` FROM referral_codes WHERE code = upper($1)`

	start := time.Now()
	rc, err := scanReferralCode(s.pool.QueryRow(ctx, query, code))
	observe("get_referral_code", start, err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get referral code: %w", err)
	}
	return rc, nil
}

// CreateReferralCode inserts an active code with zero usage. Returns ErrDuplicateKey if it exists.
func (s *ReferralCodeStore) CreateReferralCode(ctx context.Context, in *domain.NewReferralCode) (*domain.ReferralCode, error) {
	if in == nil || in.Code == "" {
		return nil, storage.ErrInvalidInput
	}
	discount, err := in.Discount()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	query := `
		INSERT INTO referral_codes (id, code, discount_percent)
		VALUES ($1, upper($2), $3)
		RETURNING ` + referralColumns

	start := time.Now()
	rc, err := scanReferralCode(s.pool.QueryRow(ctx, query, uuid.NewString(), in.Code, discount))
	observe("create_referral_code", start, err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, storage.ErrDuplicateKey
		}
		return nil, fmt.Errorf("insert referral code: %w", err)
	}
	return rc, nil
}

// UseReferralCode increments the usage count of an active code.
// Returns ErrNotFound if the code does not exist or is inactive.
func (s *ReferralCodeStore) UseReferralCode(ctx context.Context, code string) (*domain.ReferralCode, error) {
	query := `
		UPDATE referral_codes SET usage_count = usage_count + 1
		WHERE code = upper($1) AND is_active
		RETURNING ` + referralColumns

	start := time.Now()
	rc, err := scanReferralCode(s.pool.QueryRow(ctx, query, code))
	observe("use_referral_code", start, err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("use referral code: %w", err)
	}
	return rc, nil
}

// SetActive toggles a code. Returns ErrNotFound if not exists.
func (s *ReferralCodeStore) SetActive(ctx context.Context, code string, active bool) error {
	start := time.Now()
	tag, err := s.pool.Exec(ctx, `UPDATE referral_codes SET is_active = $2 WHERE code = upper($1)`, code, active)
	observe("set_referral_code_active", start, err)
	if err != nil {
		return fmt.Errorf("set referral code active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanReferralCode(row pgx.Row) (*domain.ReferralCode, error) {
	var rc domain.ReferralCode
	err := row.Scan(
		&rc.ID,
		&rc.Code,
		&rc.DiscountPercent,
		&rc.IsActive,
		&rc.UsageCount,
		&rc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rc, nil
}
