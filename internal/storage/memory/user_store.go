package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"token-presale/internal/domain"
	"token-presale/internal/storage"
)

var _ storage.UserStore = (*UserStore)(nil)

// UserStore is an in-memory implementation of storage.UserStore.
type UserStore struct {
	mu         sync.RWMutex
	data       map[string]*domain.User // keyed by id
	byUsername map[string]string       // username -> id
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		data:       make(map[string]*domain.User),
		byUsername: make(map[string]string),
	}
}

// GetUser retrieves a user by ID. Returns ErrNotFound if not exists.
func (s *UserStore) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	userCopy := *u
	return &userCopy, nil
}

// GetUserByUsername retrieves a user by exact username. Returns ErrNotFound if not exists.
func (s *UserStore) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, storage.ErrNotFound
	}
	userCopy := *s.data[id]
	return &userCopy, nil
}

// CreateUser inserts a user with a fresh ID. Returns ErrDuplicateKey if the username is taken.
func (s *UserStore) CreateUser(_ context.Context, u *domain.NewUser) (*domain.User, error) {
	if u == nil || u.Username == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byUsername[u.Username]; exists {
		return nil, storage.ErrDuplicateKey
	}

	user := &domain.User{
		ID:       uuid.NewString(),
		Username: u.Username,
		Password: u.Password,
	}
	s.data[user.ID] = user
	s.byUsername[user.Username] = user.ID

	userCopy := *user
	return &userCopy, nil
}
