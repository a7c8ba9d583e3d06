package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/threadmail/internal/events"
	"github.com/spec-kit/threadmail/internal/observability"
)

// NotificationService reacts to lifecycle events: it logs them, counts them
// and pushes the linked-role counter after a ticket is created.
type NotificationService struct {
	dispatcher events.Dispatcher
	metadata   *MetadataService
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, metadata *MetadataService, metrics *observability.Metrics, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		metadata:   metadata,
		metrics:    metrics,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketClosed, n.handleTicketClosed)
	n.dispatcher.Subscribe(events.EventMessageRelayed, n.handleMessageRelayed)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.metrics.RecordEvent(string(event.Type))
	payload, _ := event.Payload.(events.TicketCreatedPayload)
	n.logger.Info("TicketCreated",
		zap.String("ticket_id", event.TicketID),
		zap.String("guild_id", payload.GuildID),
		zap.Int("case_number", payload.CaseNumber))

	if n.metadata == nil || payload.OwnerID == "" {
		return nil
	}
	if err := n.metadata.IncrementTicketsCreated(ctx, payload.OwnerID); err != nil {
		n.logger.Warn("increment threads_created failed", zap.String("user_id", payload.OwnerID), zap.Error(err))
	}
	return nil
}

func (n *NotificationService) handleTicketClosed(ctx context.Context, event events.Event) error {
	n.metrics.RecordEvent(string(event.Type))
	payload, _ := event.Payload.(events.TicketClosedPayload)
	n.logger.Info("TicketClosed",
		zap.String("ticket_id", event.TicketID),
		zap.String("closed_by", string(payload.ClosedBy)),
		zap.Bool("archived", payload.Archived))
	return nil
}

func (n *NotificationService) handleMessageRelayed(ctx context.Context, event events.Event) error {
	n.metrics.RecordEvent(string(event.Type))
	payload, _ := event.Payload.(events.MessageRelayedPayload)
	n.logger.Debug("MessageRelayed",
		zap.String("ticket_id", event.TicketID),
		zap.String("path", string(payload.Path)))
	return nil
}
