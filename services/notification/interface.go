package notification

import (
	"context"

	"confiido/models"
)

// NotificationService sends fire-and-forget pushes around session lifecycle
// events. Failures are logged and never affect the state machine.
type NotificationService interface {
	SessionCreated(ctx context.Context, s *models.Session)
	SessionPaid(ctx context.Context, s *models.Session)
	SessionExpired(ctx context.Context, s *models.Session)
}

// TokenSource resolves a user's current FCM device token. The auth layer
// maintains the mapping; this engine only reads it.
type TokenSource interface {
	FCMToken(ctx context.Context, userID string) (string, error)
}
