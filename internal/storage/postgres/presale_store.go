package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"token-presale/internal/domain"
	"token-presale/internal/storage"
)

// PresaleStore implements storage.PresaleStore using PostgreSQL.
type PresaleStore struct {
	pool *Pool
}

// NewPresaleStore creates a new PresaleStore.
func NewPresaleStore(pool *Pool) *PresaleStore {
	return &PresaleStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PresaleStore = (*PresaleStore)(nil)

const presaleColumns = `id::text, total_raised, total_supply, current_rate, stage_end_time, is_active, updated_at`

// currentPresaleID selects the most recently updated row.
const currentPresaleID = `(SELECT id FROM presale_data ORDER BY updated_at DESC LIMIT 1)`

// GetPresaleState returns the most recently updated presale record,
// inserting the seed record when the table is empty.
func (s *PresaleStore) GetPresaleState(ctx context.Context) (*domain.PresaleState, error) {
	query := `SELECT ` + presaleColumns + ` FROM presale_data ORDER BY updated_at DESC LIMIT 1`

	start := time.Now()
	st, err := scanPresale(s.pool.QueryRow(ctx, query))
	observe("get_presale_state", start, err)
	if err == nil {
		return st, nil
	}
	if !isNotFoundError(err) {
		return nil, fmt.Errorf("get presale state: %w", err)
	}

	if err := s.seed(ctx); err != nil {
		return nil, err
	}

	st, err = scanPresale(s.pool.QueryRow(ctx, query))
	if err != nil {
		return nil, fmt.Errorf("get seeded presale state: %w", err)
	}
	return st, nil
}

// seed inserts the seed row unless one exists. Concurrent callers are
// serialized with a transaction-scoped advisory lock.
func (s *PresaleStore) seed(ctx context.Context) error {
	start := time.Now()
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('presale_data_seed'))`); err != nil {
			return err
		}

		seed := domain.SeedPresaleState(time.Now())
		_, err := tx.Exec(ctx, `
			INSERT INTO presale_data (id, total_raised, total_supply, current_rate, stage_end_time, is_active, updated_at)
			SELECT $1::uuid, $2::numeric, $3::numeric, $4::numeric, $5::timestamptz, $6::boolean, now()
			WHERE NOT EXISTS (SELECT 1 FROM presale_data)
		`,
			uuid.NewString(),
			seed.TotalRaised,
			seed.TotalSupply,
			seed.CurrentRate,
			seed.StageEndTime,
			seed.IsActive,
		)
		return err
	})
	observe("seed_presale_state", start, err)
	if err != nil {
		return fmt.Errorf("seed presale state: %w", err)
	}
	return nil
}

// UpdatePresaleState merges the non-nil patch fields and stamps UpdatedAt.
func (s *PresaleStore) UpdatePresaleState(ctx context.Context, p *domain.PresalePatch) (*domain.PresaleState, error) {
	if _, err := s.GetPresaleState(ctx); err != nil {
		return nil, err
	}
	if p == nil {
		p = &domain.PresalePatch{}
	}

	query := `
		UPDATE presale_data SET
			total_raised   = COALESCE($1, total_raised),
			total_supply   = COALESCE($2, total_supply),
			current_rate   = COALESCE($3, current_rate),
			stage_end_time = COALESCE($4, stage_end_time),
			is_active      = COALESCE($5, is_active),
			updated_at     = now()
		WHERE id = ` + currentPresaleID + `
		RETURNING ` + presaleColumns

	start := time.Now()
	st, err := scanPresale(s.pool.QueryRow(ctx, query,
		p.TotalRaised,
		p.TotalSupply,
		p.CurrentRate,
		p.StageEndTime,
		p.IsActive,
	))
	observe("update_presale_state", start, err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("update presale state: %w", err)
	}
	return st, nil
}

// AddRaised atomically increments TotalRaised by amount and stamps UpdatedAt.
func (s *PresaleStore) AddRaised(ctx context.Context, amount decimal.Decimal) (*domain.PresaleState, error) {
	if amount.IsNegative() {
		return nil, storage.ErrInvalidInput
	}
	if _, err := s.GetPresaleState(ctx); err != nil {
		return nil, err
	}

	query := `
		UPDATE presale_data SET
			total_raised = total_raised + $1,
			updated_at   = now()
		WHERE id = ` + currentPresaleID + `
		RETURNING ` + presaleColumns

	start := time.Now()
	st, err := scanPresale(s.pool.QueryRow(ctx, query, amount))
	observe("add_raised", start, err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("add raised: %w", err)
	}
	return st, nil
}

func scanPresale(row pgx.Row) (*domain.PresaleState, error) {
	var st domain.PresaleState
	err := row.Scan(
		&st.ID,
		&st.TotalRaised,
		&st.TotalSupply,
		&st.CurrentRate,
		&st.StageEndTime,
		&st.IsActive,
		&st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &st, nil
}
