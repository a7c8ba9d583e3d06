package repository

import (
	"context"

	"github.com/spec-kit/threadmail/internal/domain"
)

// GuildRepository manages guild:<id> configuration and counter:<id> case numbers.
type GuildRepository interface {
	Get(ctx context.Context, guildID string) (*domain.Guild, error)
	Save(ctx context.Context, guild *domain.Guild) error
	GetCounter(ctx context.Context, guildID string) (*domain.Counter, error)
	SaveCounter(ctx context.Context, guildID string, counter *domain.Counter) error
}

type guildRepository struct {
	store KVStore
}

// NewGuildRepository returns a KVStore-backed implementation.
func NewGuildRepository(store KVStore) GuildRepository {
	return &guildRepository{store: store}
}

func (r *guildRepository) Get(ctx context.Context, guildID string) (*domain.Guild, error) {
	return getRecord[domain.Guild](ctx, r.store, GuildKey(guildID))
}

func (r *guildRepository) Save(ctx context.Context, guild *domain.Guild) error {
	return r.store.Set(ctx, GuildKey(guild.GuildID), guild)
}

func (r *guildRepository) GetCounter(ctx context.Context, guildID string) (*domain.Counter, error) {
	return getRecord[domain.Counter](ctx, r.store, CounterKey(guildID))
}

func (r *guildRepository) SaveCounter(ctx context.Context, guildID string, counter *domain.Counter) error {
	return r.store.Set(ctx, CounterKey(guildID), counter)
}
