package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/threadmail/internal/domain"
	"github.com/spec-kit/threadmail/internal/events"
	apperrors "github.com/spec-kit/threadmail/pkg/util/errorutil"
)

func ownerMessage(content string) OwnerMessage {
	return OwnerMessage{UserID: "u1", Username: "alice", AvatarURL: "https://cdn/avatar.png", Content: content}
}

func TestSendFromOwnerUsesWebhook(t *testing.T) {
	h := newHarness()
	h.authorize(t, "u1")
	ticket := h.create(t, "u1")

	res, err := h.relaySvc.SendFromOwner(context.Background(), ownerMessage("hello there"))
	require.NoError(t, err)
	assert.Equal(t, events.RelayViaWebhook, res.Path)

	require.Len(t, h.platform.webhookCalls, 1)
	call := h.platform.webhookCalls[0]
	assert.Equal(t, ticket.ThreadID, call.ThreadID)
	assert.Equal(t, "hello there", call.Params.Content)
	assert.Equal(t, "alice", call.Params.Username)
	assert.Equal(t, "https://cdn/avatar.png", call.Params.AvatarURL)
}

func TestSendFromOwnerFallsBackToThreadPost(t *testing.T) {
	h := newHarness()
	h.authorize(t, "u1")
	ticket := h.create(t, "u1")
	h.platform.fail("ExecuteWebhook", restError(http.StatusNotFound))

	res, err := h.relaySvc.SendFromOwner(context.Background(), ownerMessage("need help"))
	require.NoError(t, err)
	assert.Equal(t, events.RelayViaThread, res.Path)

	msgs := h.platform.messagesIn(ticket.ThreadID)
	last := msgs[len(msgs)-1]
	assert.Contains(t, last, "need help")
	assert.Contains(t, last, "Replied by staff")
}

func TestSendFromOwnerWithoutWebhookPostsToThread(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.authorize(t, "u1")
	h.platform.fail("ChannelWebhooks", errors.New("timeout"))
	h.create(t, "u1")

	res, err := h.relaySvc.SendFromOwner(ctx, ownerMessage("hi"))
	require.NoError(t, err)
	assert.Equal(t, events.RelayViaThread, res.Path)
	assert.Empty(t, h.platform.webhookCalls)
}

func TestSendFromOwnerFailsWhenBothPathsFail(t *testing.T) {
	h := newHarness()
	h.authorize(t, "u1")
	h.create(t, "u1")
	h.platform.fail("ExecuteWebhook", errors.New("down"))
	h.platform.fail("SendMessage", restError(http.StatusForbidden))

	_, err := h.relaySvc.SendFromOwner(context.Background(), ownerMessage("hi"))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeMissingPermission))
}

func TestSendFromOwnerPreconditions(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	_, err := h.relaySvc.SendFromOwner(ctx, ownerMessage("x"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAuthorizationRequired))

	h.authorize(t, "u1")
	_, err = h.relaySvc.SendFromOwner(ctx, ownerMessage("x"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNoActiveTicket))

	require.NoError(t, h.users.Save(ctx, "u1", &domain.User{AccessToken: "t", ActiveTicketID: strPtr("missing")}))
	_, err = h.relaySvc.SendFromOwner(ctx, ownerMessage("x"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTicketNotActive))
}

func TestSendFromStaffDMsOwner(t *testing.T) {
	h := newHarness()
	ticket := h.create(t, "u1")

	res, err := h.relaySvc.SendFromStaff(context.Background(), "staff-1", ticket.ThreadID, "we are on it")
	require.NoError(t, err)
	assert.Equal(t, events.RelayViaDM, res.Path)

	dms := h.platform.messagesIn("dm-u1")
	require.Len(t, dms, 1)
	assert.Contains(t, dms[0], "we are on it")

	last := h.published[len(h.published)-1]
	assert.Equal(t, events.EventMessageRelayed, last.Type)
	assert.Equal(t, "we are on it", last.Payload.(events.MessageRelayedPayload).BodyPreview)
}

func TestSendFromStaffReportsDMFailure(t *testing.T) {
	h := newHarness()
	ticket := h.create(t, "u1")
	h.platform.fail("SendMessage:dm-u1", restError(http.StatusForbidden))

	_, err := h.relaySvc.SendFromStaff(context.Background(), "staff-1", ticket.ThreadID, "hello")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeDMFailed))
}

func TestSendFromStaffOutsideTicketThread(t *testing.T) {
	h := newHarness()
	_, err := h.relaySvc.SendFromStaff(context.Background(), "staff-1", "sys-1", "hello")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotTicketThread))
}

func TestStringPreview(t *testing.T) {
	assert.Equal(t, "short", stringPreview("  short ", 10))
	assert.Equal(t, "abcdefg...", stringPreview("abcdefghijklmnop", 10))
}
