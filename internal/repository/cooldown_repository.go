package repository

import (
	"context"

	"github.com/spec-kit/threadmail/internal/domain"
)

// CooldownRepository stores cooldown:close:<userId> records.
type CooldownRepository interface {
	Get(ctx context.Context, userID string) (*domain.Cooldown, error)
	Save(ctx context.Context, cooldown *domain.Cooldown) error
}

type cooldownRepository struct {
	store KVStore
}

// NewCooldownRepository returns a KVStore-backed implementation.
func NewCooldownRepository(store KVStore) CooldownRepository {
	return &cooldownRepository{store: store}
}

func (r *cooldownRepository) Get(ctx context.Context, userID string) (*domain.Cooldown, error) {
	return getRecord[domain.Cooldown](ctx, r.store, CooldownKey(userID))
}

func (r *cooldownRepository) Save(ctx context.Context, cooldown *domain.Cooldown) error {
	return r.store.Set(ctx, CooldownKey(cooldown.UserID), cooldown)
}
