package handlers

import (
	"context"
	"encoding/json"

	"github.com/bwmarrin/discordgo"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/threadmail/internal/auth"
	apperrors "github.com/spec-kit/threadmail/pkg/util/errorutil"
)

// InteractionRouter turns a verified interaction into its response.
type InteractionRouter interface {
	Handle(ctx context.Context, i *discordgo.Interaction) *discordgo.InteractionResponse
}

// InteractionsHandler serves the interactions endpoint. Signature checks run
// in middleware before it.
type InteractionsHandler struct {
	router InteractionRouter
}

// NewInteractionsHandler constructs the handler.
func NewInteractionsHandler(router InteractionRouter) *InteractionsHandler {
	return &InteractionsHandler{router: router}
}

// Handle POST /interactions.
func (h *InteractionsHandler) Handle(c *fiber.Ctx) error {
	var interaction discordgo.Interaction
	if err := json.Unmarshal(c.Body(), &interaction); err != nil {
		return apperrors.NewValidationError("invalid interaction payload", nil)
	}
	auth.WithPrincipal(c, auth.PrincipalFromInteraction(&interaction))

	resp := h.router.Handle(c.UserContext(), &interaction)
	return c.JSON(resp)
}
