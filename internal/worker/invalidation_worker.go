package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/gtmhq/gtm-advisor/internal/auth"
	"github.com/gtmhq/gtm-advisor/internal/events"
)

// StartInvalidationWorker subscribes cache-eviction handlers to the user
// events that change authorization-relevant state. Without this, a tier
// change or deactivation would only take effect once the cached snapshot
// expired.
func StartInvalidationWorker(dispatcher events.Dispatcher, userCache *auth.UserCache, logger *zap.Logger) {
	if dispatcher == nil || userCache == nil {
		return
	}

	invalidate := func(ctx context.Context, event events.Event) error {
		userCache.Invalidate(ctx, event.UserID)
		logger.Debug("user cache invalidated",
			zap.String("user_id", event.UserID), zap.String("event", string(event.Type)))
		return nil
	}

	dispatcher.Subscribe(events.EventUserTierChanged, invalidate)
	dispatcher.Subscribe(events.EventUserDeactivated, invalidate)
}
