package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/threadmail/internal/service"
)

// StartNotificationWorker subscribes the lifecycle event handlers. Handlers
// run inline on the publishing request.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
	if logger != nil {
		logger.Info("notification handlers registered")
	}
}
