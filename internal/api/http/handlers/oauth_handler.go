package handlers

import (
	"bytes"
	"context"
	"html/template"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/threadmail/internal/service"
	apperrors "github.com/spec-kit/threadmail/pkg/util/errorutil"
)

// Authorizer runs the OAuth authorization code flow.
type Authorizer interface {
	AuthorizeURL() (string, error)
	CompleteAuthorization(ctx context.Context, code, state string) (*service.AuthorizedAccount, error)
}

var resultPage = template.Must(template.New("oauth").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Body}}</p>
</body>
</html>
`))

type pageData struct {
	Title string
	Body  string
}

// OAuthHandler serves the linked-role entry point and the OAuth redirect.
type OAuthHandler struct {
	auth   Authorizer
	logger *zap.Logger
}

// NewOAuthHandler constructs the handler.
func NewOAuthHandler(auth Authorizer, logger *zap.Logger) *OAuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OAuthHandler{auth: auth, logger: logger}
}

// LinkedRole GET /linked-role redirects to the authorization screen.
func (h *OAuthHandler) LinkedRole(c *fiber.Ctx) error {
	url, err := h.auth.AuthorizeURL()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.Redirect(url, fiber.StatusFound)
}

// Callback GET /oauth/callback completes authorization and renders a page
// the user can close.
func (h *OAuthHandler) Callback(c *fiber.Ctx) error {
	if errParam := c.Query("error"); errParam != "" {
		h.logger.Info("authorization declined", zap.String("error", errParam))
		return h.render(c, fiber.StatusBadRequest, pageData{
			Title: "Authorization cancelled",
			Body:  "The app was not authorized. Run /authorize-account to try again.",
		})
	}

	account, err := h.auth.CompleteAuthorization(c.UserContext(), c.Query("code"), c.Query("state"))
	if err != nil {
		domainErr := apperrors.ToDomainError(err)
		if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
			h.logger.Error("complete authorization failed", zap.Error(err))
		} else {
			h.logger.Info("authorization rejected", zap.String("code", domainErr.Code), zap.Error(err))
		}
		return h.render(c, domainErr.HTTPStatus, pageData{
			Title: "Authorization failed",
			Body:  "The authorization link is invalid or has expired. Run /authorize-account to get a new one.",
		})
	}

	h.logger.Info("account authorized", zap.String("user_id", account.UserID), zap.String("scope", account.Scope))
	return h.render(c, fiber.StatusOK, pageData{
		Title: "Authorized",
		Body:  "Thanks " + account.Username + ", you can close this window and return to Discord.",
	})
}

func (h *OAuthHandler) render(c *fiber.Ctx, status int, data pageData) error {
	var buf bytes.Buffer
	if err := resultPage.Execute(&buf, data); err != nil {
		return apperrors.NewInternalError(err)
	}
	c.Status(status)
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}
