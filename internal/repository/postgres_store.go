package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore keeps records in the kv_records table.
func NewPostgresStore(pool *pgxpool.Pool) KVStore {
	return &postgresStore{pool: pool}
}

func (s *postgresStore) Get(ctx context.Context, key string, dest any) error {
	const query = `SELECT value FROM kv_records WHERE key=$1`
	var raw []byte
	if err := s.pool.QueryRow(ctx, query, key).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal(raw, dest)
}

func (s *postgresStore) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO kv_records (key, value)
        VALUES ($1, $2)
        ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()`
	_, err = s.pool.Exec(ctx, query, key, raw)
	return err
}

func (s *postgresStore) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM kv_records WHERE key=$1`
	_, err := s.pool.Exec(ctx, query, key)
	return err
}

func (s *postgresStore) Ping(ctx context.Context) error {
	if s.pool == nil {
		return errors.New("postgres pool not configured")
	}
	return s.pool.Ping(ctx)
}
