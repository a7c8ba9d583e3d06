package discord

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const webhookURLPrefix = "https://discord.com/api/webhooks/"

// StatusCode extracts the HTTP status of a failed REST call, or 0.
func StatusCode(err error) int {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode
	}
	return 0
}

// IsForbidden reports a 403 from the API.
func IsForbidden(err error) bool {
	return StatusCode(err) == http.StatusForbidden
}

// IsUnauthorized reports a 401, typically a revoked or expired bearer token.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsRateLimited reports a 429 response.
func IsRateLimited(err error) bool {
	var rlErr *discordgo.RateLimitError
	if errors.As(err, &rlErr) {
		return true
	}
	return StatusCode(err) == http.StatusTooManyRequests
}

// ParseWebhookURL splits a webhook URL into its id and token.
func ParseWebhookURL(raw string) (id, token string, ok bool) {
	if !strings.HasPrefix(raw, webhookURLPrefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(raw, webhookURLPrefix)
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	parts := strings.Split(strings.TrimSuffix(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// WebhookURL renders the execute URL of a webhook.
func WebhookURL(webhook *discordgo.Webhook) string {
	if webhook == nil || webhook.ID == "" || webhook.Token == "" {
		return ""
	}
	return webhookURLPrefix + webhook.ID + "/" + webhook.Token
}
