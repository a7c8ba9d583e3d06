package auth

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	apperrors "github.com/spec-kit/threadmail/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// SignatureMiddleware rejects interaction requests that are not signed with
// the application's public key.
type SignatureMiddleware struct {
	publicKey ed25519.PublicKey
}

// NewSignatureMiddleware decodes the hex public key shown in the developer
// portal.
func NewSignatureMiddleware(publicKeyHex string) (*SignatureMiddleware, error) {
	raw, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return &SignatureMiddleware{publicKey: ed25519.PublicKey(raw)}, nil
}

// Handle verifies the request signature.
func (m *SignatureMiddleware) Handle(c *fiber.Ctx) error {
	req, err := adaptor.ConvertRequest(c, false)
	if err != nil {
		return apperrors.NewUnauthorized("invalid request signature")
	}
	if !discordgo.VerifyInteraction(req, m.publicKey) {
		return apperrors.NewUnauthorized("invalid request signature")
	}
	return c.Next()
}

// WithPrincipal records the interaction caller on the request.
func WithPrincipal(c *fiber.Ctx, principal *Principal) {
	c.Locals(principalKey, principal)
}

// PrincipalFromContext retrieves the interaction caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
