package http

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/spec-kit/threadmail/internal/auth"
	"github.com/spec-kit/threadmail/internal/observability"
	apperrors "github.com/spec-kit/threadmail/pkg/util/errorutil"
)

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(requestid.New())
	app.Use(errorHandlingMiddleware(logger, metrics))
	app.Use(observability.RequestLogger(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := apperrors.ToDomainError(err)
				route := routeLabel(c)
				metrics.RecordError(route, c.Method(), domainErr.Code)
				if route == routeInteractions && domainErr.Code == apperrors.CodeUnauthorized {
					logger.Warn("interaction signature rejected", zap.String("ip", c.IP()))
				}
				response := fiber.Map{"error": fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
				}}
				if len(domainErr.Details) > 0 {
					response["error"].(fiber.Map)["details"] = domainErr.Details
				}
				if domainErr.HTTPStatus >= 500 {
					fields := []zap.Field{zap.String("route", route), zap.Error(domainErr)}
					if principal, ok := auth.PrincipalFromContext(c); ok {
						fields = append(fields, zap.String("user_id", principal.UserID))
					}
					logger.Error("request failed", fields...)
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(response)
				err = nil
			}
		}()
		return c.Next()
	}
}

const (
	routeInteractions  = "interactions"
	routeOAuthCallback = "oauth_callback"
)

// routeLabel names the Discord-facing endpoints in error counters; other
// routes are keyed by their pattern.
func routeLabel(c *fiber.Ctx) string {
	switch c.Path() {
	case "/interactions":
		return routeInteractions
	case "/oauth/callback":
		return routeOAuthCallback
	}
	if route := c.Route(); route != nil && route.Path != "" && route.Path != "/" {
		return route.Path
	}
	return c.Path()
}
