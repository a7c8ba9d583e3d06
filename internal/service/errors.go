package service

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spec-kit/threadmail/internal/discord"
	"github.com/spec-kit/threadmail/internal/domain"
	apperrors "github.com/spec-kit/threadmail/pkg/util/errorutil"
)

func errTicketAlreadyOpen(ticket *domain.Ticket) error {
	return apperrors.NewDomainError(apperrors.CodeTicketAlreadyOpen, "you already have an open ticket", http.StatusConflict,
		map[string]any{"ticket_id": ticket.TicketID, "thread_id": ticket.ThreadID})
}

func errNoActiveTicket() error {
	return apperrors.NewDomainError(apperrors.CodeNoActiveTicket, "no active ticket", http.StatusNotFound, nil)
}

func errTicketNotActive() error {
	return apperrors.NewDomainError(apperrors.CodeTicketNotActive, "ticket is not active or does not exist", http.StatusConflict, nil)
}

func errNotTicketThread(channelID string) error {
	return apperrors.NewDomainError(apperrors.CodeNotTicketThread, "not a valid ticket thread", http.StatusBadRequest,
		map[string]any{"channel_id": channelID})
}

func errCooldownActive(cooldown *domain.Cooldown, now time.Time) error {
	remainingMs := cooldown.ExpiresAt - now.UnixMilli()
	return apperrors.NewDomainError(apperrors.CodeCooldownActive, "close cooldown active", http.StatusTooManyRequests,
		map[string]any{
			"remaining_seconds": (remainingMs + 999) / 1000,
			"expires_at":        cooldown.ExpiresAt,
		})
}

func errGuildMisconfigured(guildID string) error {
	return apperrors.NewDomainError(apperrors.CodeGuildMisconfigured, "server has no ticket or system channel", http.StatusUnprocessableEntity,
		map[string]any{"guild_id": guildID})
}

func errDMFailed(userID string, err error) error {
	return &apperrors.DomainError{
		Code:       apperrors.CodeDMFailed,
		Message:    "could not send DM to user",
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"user_id": userID},
		Err:        err,
	}
}

func errAuthorizationRequired() error {
	return apperrors.NewDomainError(apperrors.CodeAuthorizationRequired, "account authorization required", http.StatusUnauthorized, nil)
}

func errReauthorizationRequired(err error) error {
	return &apperrors.DomainError{
		Code:       apperrors.CodeReauthorizationRequired,
		Message:    "account authorization expired",
		HTTPStatus: http.StatusUnauthorized,
		Err:        err,
	}
}

func errNoMutualGuilds() error {
	return apperrors.NewDomainError(apperrors.CodeNoMutualGuilds, "no mutual servers found", http.StatusNotFound, nil)
}

func errInvalidChannel(message string) error {
	return apperrors.NewDomainError(apperrors.CodeInvalidChannel, message, http.StatusBadRequest, nil)
}

// platformError translates a failed platform call, naming the permission a
// 403 implies.
func platformError(err error, permission, action string) error {
	if discord.IsForbidden(err) {
		return apperrors.NewPermissionDenied(permission, err)
	}
	return apperrors.NewInternalError(fmt.Errorf("%s: %w", action, err))
}
