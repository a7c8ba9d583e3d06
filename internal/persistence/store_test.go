package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/threadmail/internal/config"
)

func TestOpenStoreMemory(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Driver: config.StoreDriverMemory}}

	store, err := OpenStore(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "k", map[string]int{"n": 1}))
	var out map[string]int
	require.NoError(t, store.Get(ctx, "k", &out))
	assert.Equal(t, 1, out["n"])
	assert.NoError(t, store.Ping(ctx))
}

func TestOpenStorePostgresRequiresDSN(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Driver: config.StoreDriverPostgres}}

	_, err := OpenStore(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestOpenStoreRejectsUnknownDriver(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Driver: "etcd"}}

	_, err := OpenStore(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestMigrationsEmbedded(t *testing.T) {
	content, err := migrationFiles.ReadFile("migrations/0001_kv_records.sql")
	require.NoError(t, err)
	assert.Contains(t, string(content), "kv_records")
}
