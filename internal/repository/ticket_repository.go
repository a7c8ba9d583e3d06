package repository

import (
	"context"

	"github.com/spec-kit/threadmail/internal/domain"
)

// TicketRepository encapsulates ticket:<id> and thread:<id> records.
type TicketRepository interface {
	Get(ctx context.Context, ticketID string) (*domain.Ticket, error)
	Save(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, ticketID string) error
	GetThread(ctx context.Context, threadID string) (*domain.Thread, error)
	SaveThread(ctx context.Context, threadID string, thread *domain.Thread) error
	DeleteThread(ctx context.Context, threadID string) error
}

type ticketRepository struct {
	store KVStore
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(store KVStore) TicketRepository {
	return &ticketRepository{store: store}
}

func (r *ticketRepository) Get(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return getRecord[domain.Ticket](ctx, r.store, TicketKey(ticketID))
}

func (r *ticketRepository) Save(ctx context.Context, ticket *domain.Ticket) error {
	return r.store.Set(ctx, TicketKey(ticket.TicketID), ticket)
}

func (r *ticketRepository) Delete(ctx context.Context, ticketID string) error {
	return r.store.Delete(ctx, TicketKey(ticketID))
}

func (r *ticketRepository) GetThread(ctx context.Context, threadID string) (*domain.Thread, error) {
	return getRecord[domain.Thread](ctx, r.store, ThreadKey(threadID))
}

func (r *ticketRepository) SaveThread(ctx context.Context, threadID string, thread *domain.Thread) error {
	return r.store.Set(ctx, ThreadKey(threadID), thread)
}

func (r *ticketRepository) DeleteThread(ctx context.Context, threadID string) error {
	return r.store.Delete(ctx, ThreadKey(threadID))
}
