package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to interaction replies and HTTP responses.
const (
	CodeValidation              = "VALIDATION_FAILED"
	CodeNotFound                = "NOT_FOUND"
	CodeUnauthorized            = "UNAUTHORIZED"
	CodeForbidden               = "FORBIDDEN"
	CodeConflict                = "CONFLICT"
	CodeInternal                = "INTERNAL_ERROR"
	CodeNoActiveTicket          = "NO_ACTIVE_TICKET"
	CodeTicketAlreadyOpen       = "TICKET_ALREADY_OPEN"
	CodeTicketNotActive         = "TICKET_NOT_ACTIVE"
	CodeNotTicketThread         = "NOT_TICKET_THREAD"
	CodeCooldownActive          = "COOLDOWN_ACTIVE"
	CodeGuildMisconfigured      = "GUILD_MISCONFIGURED"
	CodeMissingPermission       = "MISSING_PERMISSION"
	CodeDMFailed                = "DM_FAILED"
	CodeAuthorizationRequired   = "AUTHORIZATION_REQUIRED"
	CodeReauthorizationRequired = "REAUTHORIZATION_REQUIRED"
	CodeNoMutualGuilds          = "NO_MUTUAL_GUILDS"
	CodeInvalidChannel          = "INVALID_CHANNEL"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewPermissionDenied reports a platform permission the bot is missing.
func NewPermissionDenied(permission string, err error) error {
	return &DomainError{
		Code:       CodeMissingPermission,
		Message:    fmt.Sprintf("bot lacks permission: %s", permission),
		HTTPStatus: http.StatusForbidden,
		Details:    map[string]any{"permission": permission},
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err carries a DomainError with the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == code
}

// Detail returns a detail value from a DomainError, if present.
func Detail(err error, key string) (any, bool) {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Details == nil {
		return nil, false
	}
	val, ok := domainErr.Details[key]
	return val, ok
}
