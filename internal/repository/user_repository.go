package repository

import (
	"context"

	"github.com/spec-kit/threadmail/internal/domain"
)

// UserRepository defines access to user:<id> records.
type UserRepository interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Save(ctx context.Context, userID string, user *domain.User) error
}

type userRepository struct {
	store KVStore
}

// NewUserRepository returns a KVStore-backed implementation.
func NewUserRepository(store KVStore) UserRepository {
	return &userRepository{store: store}
}

func (r *userRepository) Get(ctx context.Context, userID string) (*domain.User, error) {
	return getRecord[domain.User](ctx, r.store, UserKey(userID))
}

func (r *userRepository) Save(ctx context.Context, userID string, user *domain.User) error {
	return r.store.Set(ctx, UserKey(userID), user)
}
