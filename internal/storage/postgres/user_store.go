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

// UserStore implements storage.UserStore using PostgreSQL.
type UserStore struct {
	pool *Pool
}

// NewUserStore creates a new UserStore.
func NewUserStore(pool *Pool) *UserStore {
	return &UserStore{pool: pool}
}

// Compile-time interface check.
var _ storage.UserStore = (*UserStore)(nil)

// GetUser retrieves a user by ID. Returns ErrNotFound if not exists.
func (s *UserStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	if !validID(id) {
		return nil, storage.ErrNotFound
	}

	query := `SELECT id::text, username, password FROM users WHERE id = $1`

	start := time.Now()
	u, err := scanUser(s.pool.QueryRow(ctx, query, id))
	observe("get_user", start, err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetUserByUsername retrieves a user by exact username. Returns ErrNotFound if not exists.
func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT id::text, username, password FROM users WHERE username = $1`

	start := time.Now()
	u, err := scanUser(s.pool.QueryRow(ctx, query, username))
	observe("get_user_by_username", start, err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

// CreateUser inserts a user with a fresh ID. Returns ErrDuplicateKey if the username is taken.
func (s *UserStore) CreateUser(ctx context.Context, in *domain.NewUser) (*domain.User, error) {
	if in == nil || in.Username == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO users (id, username, password)
		VALUES ($1, $2, $3)
		RETURNING id::text, username, password
	`

	start := time.Now()
	u, err := scanUser(s.pool.QueryRow(ctx, query, uuid.NewString(), in.Username, in.Password))
	observe("create_user", start, err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, storage.ErrDuplicateKey
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Username, &u.Password); err != nil {
		return nil, err
	}
	return &u, nil
}
