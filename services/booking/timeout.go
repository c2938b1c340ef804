package booking

import (
	"context"
	"time"

	sessionRepo "confiido/database/repository/session"
	"confiido/models"
	"confiido/utils"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Sweep attribution constants.
const (
	TimeoutReason     = "timeout"
	SystemCancelledBy = "system"
)

// SessionCanceller releases a pending session. Implemented by
// ReservationService; callers may race, the transition is idempotent.
type SessionCanceller interface {
	CancelExpiredSession(ctx context.Context, bookingID, sessionID, reason, cancelledBy string) (*models.Session, error)
}

// TimeoutEngine owns the payment deadline: it stamps it at creation and
// decides logical expiry. Expiry is logical-time-based, not event-based, so
// the predicate is consulted on every read path, not only by sweeps.
type TimeoutEngine struct {
	Clock     clockwork.Clock
	Window    time.Duration
	Repo      sessionRepo.SessionRepository
	Canceller SessionCanceller
}

func NewTimeoutEngine(clock clockwork.Clock, window time.Duration, repo sessionRepo.SessionRepository) *TimeoutEngine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &TimeoutEngine{Clock: clock, Window: window, Repo: repo}
}

// AssignDeadline computes the absolute payment deadline for a session
// created at creationTime. Pure; called exactly once per session.
func (e *TimeoutEngine) AssignDeadline(creationTime time.Time) time.Time {
	return creationTime.Add(e.Window)
}

// IsExpired is the logical-expiry predicate shared by the server-side sweep
// and reconciliation.
func (e *TimeoutEngine) IsExpired(s *models.Session, now time.Time) bool {
	return s.Status == models.SessionPending && now.After(s.TimeoutAt)
}

// SweepExpired finds pending sessions past their deadline and releases each
// through the idempotent cancel. Safe to call from multiple triggers (the
// scheduled job, the check endpoint, reconciliation) without double effects.
// An empty clientID sweeps all clients.
func (e *TimeoutEngine) SweepExpired(ctx context.Context, clientID string) ([]models.Session, error) {
	logger := utils.GetLogger()
	now := e.Clock.Now()

	due, err := e.Repo.PendingSessionsDueBefore(ctx, now, clientID)
	if err != nil {
		return nil, err
	}

	var swept []models.Session
	for _, s := range due {
		if !e.IsExpired(&s, now) {
			continue
		}
		cancelled, err := e.Canceller.CancelExpiredSession(ctx, s.BookingID, s.ID, TimeoutReason, SystemCancelledBy)
		if err != nil {
			logger.Warn("sweep: failed to expire session",
				zap.String("sessionID", s.ID), zap.Error(err))
			continue
		}
		swept = append(swept, *cancelled)
	}
	if len(swept) > 0 {
		logger.Info("sweep: expired pending sessions", zap.Int("count", len(swept)))
	}
	return swept, nil
}
