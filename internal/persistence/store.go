package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/threadmail/internal/config"
	"github.com/spec-kit/threadmail/internal/repository"
)

// Store bundles the selected key-value backend with its connection cleanup.
type Store struct {
	repository.KVStore
	closers []func()
}

// Close releases backend connections.
func (s *Store) Close() {
	for _, closeFn := range s.closers {
		closeFn()
	}
}

// OpenStore connects the key-value backend chosen by STORE_DRIVER.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Store, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		logger.Warn("using in-memory store; state is lost on restart")
		return &Store{KVStore: repository.NewMemoryStore()}, nil
	case config.StoreDriverPostgres:
		pg, err := NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.Postgres.RunMigrations {
			if err := RunMigrations(ctx, pg.Pool, logger); err != nil {
				pg.Close()
				return nil, err
			}
		}
		return &Store{KVStore: repository.NewPostgresStore(pg.Pool), closers: []func(){pg.Close}}, nil
	case config.StoreDriverRedis:
		rdb := NewRedis(ctx, cfg.Redis, logger)
		return &Store{KVStore: repository.NewRedisStore(rdb.Client, cfg.Redis.KeyPrefix), closers: []func(){rdb.Close}}, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}
