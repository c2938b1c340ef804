package booking

import (
	"context"
	"time"

	sessionRepo "confiido/database/repository/session"
	"confiido/models"
	"confiido/services/notification"

	"github.com/jonboulle/clockwork"
)

// ReservationService is the authoritative session state machine: it owns
// every transition away from pending and the at-most-one-reservation-per-slot
// guarantee.
type ReservationService interface {
	CreateSession(ctx context.Context, req models.CreateSessionRequest) (*models.Booking, *models.Session, error)
	CompletePayment(ctx context.Context, sessionID, paymentMethod string, loyaltyPointsUsed int) (*models.Session, error)
	CancelExpiredSession(ctx context.Context, bookingID, sessionID, reason, cancelledBy string) (*models.Session, error)
	ListClientSessions(ctx context.Context, clientID string) ([]models.Session, error)
}

// ExpiryScheduler registers a deferred expiry check for a freshly created
// session. Best effort; the lazy sweep covers missed schedules.
type ExpiryScheduler interface {
	ScheduleExpiry(ctx context.Context, bookingID, sessionID string, at time.Time) error
}

// DefaultReservationService implements ReservationService.
type DefaultReservationService struct {
	Repo     sessionRepo.SessionRepository
	Slots    *SlotCalculator
	Timeouts *TimeoutEngine
	Clock    clockwork.Clock

	// Optional collaborators; all fire-and-forget for correctness.
	Notifier  notification.NotificationService
	Scheduler ExpiryScheduler
	// CreatedHook runs after a session is persisted, e.g. to register its
	// countdown with a tracker.
	CreatedHook func(ctx context.Context, s *models.Session)
	// PaidHook runs after a successful pending→paid transition, e.g. to
	// create the calendar event and meeting link.
	PaidHook func(ctx context.Context, s *models.Session)
}
