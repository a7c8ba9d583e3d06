package repository

import (
	"context"
	"errors"
)

// ErrNotFound is returned by stores and repositories when a key has no record.
var ErrNotFound = errors.New("record not found")

// KVStore is the generic record store all bot state lives in. Values are
// JSON-encoded; creation and update timestamps are kept by the backend, never
// inside the caller's value, so records can be written back as read.
type KVStore interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// Key prefixes for each record kind.
const (
	userKeyPrefix     = "user:"
	ticketKeyPrefix   = "ticket:"
	threadKeyPrefix   = "thread:"
	guildKeyPrefix    = "guild:"
	counterKeyPrefix  = "counter:"
	cooldownKeyPrefix = "cooldown:close:"
)

// UserKey, TicketKey, ThreadKey, GuildKey, CounterKey and CooldownKey build
// the store key of each record kind.
func UserKey(userID string) string     { return userKeyPrefix + userID }
func TicketKey(ticketID string) string { return ticketKeyPrefix + ticketID }
func ThreadKey(threadID string) string { return threadKeyPrefix + threadID }
func GuildKey(guildID string) string   { return guildKeyPrefix + guildID }
func CounterKey(guildID string) string { return counterKeyPrefix + guildID }
func CooldownKey(userID string) string { return cooldownKeyPrefix + userID }

func getRecord[T any](ctx context.Context, store KVStore, key string) (*T, error) {
	var record T
	if err := store.Get(ctx, key, &record); err != nil {
		return nil, err
	}
	return &record, nil
}
