package booking

import (
	"context"
	"errors"
	"fmt"

	sessionRepo "confiido/database/repository/session"
	"confiido/models"
	"confiido/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func validDuration(minutes int) bool {
	return minutes == 30 || minutes == 60
}

// CreateSession reserves a slot: it re-validates the exact window against the
// calculator, then relies on the repository's atomic window claim for the
// no-double-booking guarantee. The freshly created session is pending with its
// payment deadline stamped once, here.
func (svc *DefaultReservationService) CreateSession(ctx context.Context, req models.CreateSessionRequest) (*models.Booking, *models.Session, error) {
	logger := utils.GetLogger()

	if req.MentorID == "" || req.ClientID == "" {
		return nil, nil, NewValidationError("mentorId and clientId are required")
	}
	if !validDuration(req.DurationMinutes) {
		return nil, nil, NewValidationError(fmt.Sprintf("unsupported duration %d; must be 30 or 60 minutes", req.DurationMinutes))
	}

	free, err := svc.Slots.ValidateWindow(ctx, req.MentorID, req.ScheduledDate, req.StartTime, req.DurationMinutes)
	if err != nil {
		return nil, nil, err
	}
	if !free {
		return nil, nil, NewSlotConflictError(fmt.Sprintf("window %s on %s is no longer available", req.StartTime, req.ScheduledDate))
	}

	start, err := parseClock(req.StartTime)
	if err != nil {
		return nil, nil, NewValidationError(err.Error())
	}
	now := svc.Clock.Now()

	session := &models.Session{
		ID:              uuid.New().String(),
		MentorID:        req.MentorID,
		ClientID:        req.ClientID,
		ScheduledDate:   req.ScheduledDate,
		StartTime:       req.StartTime,
		EndTime:         formatClock(start + req.DurationMinutes),
		DurationMinutes: req.DurationMinutes,
		Status:          models.SessionPending,
		PaymentStatus:   models.PaymentUnpaid,
		Active:          true,
		TimeoutAt:       svc.Timeouts.AssignDeadline(now),
		TimeoutStatus:   models.TimeoutActive,
		Price:           req.Price,
		CreatedAt:       now,
	}

	booking, err := svc.Repo.CreateSessionWithBooking(ctx, session)
	if err != nil {
		if errors.Is(err, sessionRepo.ErrSlotTaken) {
			return nil, nil, NewSlotConflictError(fmt.Sprintf("window %s on %s is no longer available", req.StartTime, req.ScheduledDate))
		}
		return nil, nil, err
	}

	logger.Info("session created",
		zap.String("sessionID", session.ID),
		zap.String("mentorID", session.MentorID),
		zap.String("window", session.StartTime+"-"+session.EndTime),
		zap.Time("timeoutAt", session.TimeoutAt))

	if svc.Scheduler != nil {
		if err := svc.Scheduler.ScheduleExpiry(ctx, booking.ID, session.ID, session.TimeoutAt); err != nil {
			logger.Warn("failed to schedule expiry task", zap.String("sessionID", session.ID), zap.Error(err))
		}
	}
	if svc.CreatedHook != nil {
		svc.CreatedHook(ctx, session)
	}
	if svc.Notifier != nil {
		go svc.Notifier.SessionCreated(context.Background(), session)
	}

	return booking, session, nil
}

// CompletePayment performs the pending→paid transition. The deadline is
// enforced twice: logically here, so a late provider callback is refused even
// if no sweep has run yet, and again inside the conditional update, so a
// payment racing the sweep past the deadline cannot win either. Late charges
// are routed to the refund flow by the caller.
func (svc *DefaultReservationService) CompletePayment(ctx context.Context, sessionID, paymentMethod string, loyaltyPointsUsed int) (*models.Session, error) {
	logger := utils.GetLogger()

	if paymentMethod == "" {
		return nil, NewValidationError("paymentMethod is required")
	}
	if loyaltyPointsUsed < 0 {
		return nil, NewValidationError("loyaltyPointsUsed cannot be negative")
	}

	s, err := svc.Repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sessionRepo.ErrNotFound) {
			return nil, NewNotFoundError(fmt.Sprintf("session %s not found", sessionID))
		}
		return nil, err
	}
	if s.Status != models.SessionPending {
		return nil, NewAlreadyTerminalError(fmt.Sprintf("session %s is already %s", sessionID, s.Status))
	}

	now := svc.Clock.Now()
	if now.After(s.TimeoutAt) {
		return nil, NewTimeoutExceededError(fmt.Sprintf("payment window for session %s elapsed at %s", sessionID, s.TimeoutAt.Format("15:04:05")))
	}

	finalAmount := s.Price - float64(loyaltyPointsUsed)
	if finalAmount < 0 {
		finalAmount = 0
	}

	paid, err := svc.Repo.MarkSessionPaid(ctx, sessionID, sessionRepo.PaidUpdate{
		PaymentMethod:     paymentMethod,
		LoyaltyPointsUsed: loyaltyPointsUsed,
		FinalAmount:       finalAmount,
		CompletedAt:       now,
	})
	if err != nil {
		if errors.Is(err, sessionRepo.ErrNoTransition) {
			// Either a concurrent cancel/payment finalized it, or the deadline
			// passed between the read above and the update. Refetch to tell
			// the two apart.
			if cur, ferr := svc.Repo.GetSessionByID(ctx, sessionID); ferr == nil && cur.Status == models.SessionPending {
				return nil, NewTimeoutExceededError(fmt.Sprintf("payment window for session %s elapsed at %s", sessionID, cur.TimeoutAt.Format("15:04:05")))
			}
			return nil, NewAlreadyTerminalError(fmt.Sprintf("session %s was finalized concurrently", sessionID))
		}
		return nil, err
	}

	logger.Info("session paid",
		zap.String("sessionID", paid.ID),
		zap.Float64("finalAmount", paid.FinalAmount),
		zap.String("method", paid.PaymentMethod))

	if svc.PaidHook != nil {
		go svc.PaidHook(context.Background(), paid)
	}
	if svc.Notifier != nil {
		go svc.Notifier.SessionPaid(context.Background(), paid)
	}

	return paid, nil
}

// CancelExpiredSession releases a pending session. Idempotent: a session that
// is already terminal is returned as-is with no error so racing callers (the
// sweep, the client-triggered check, reconciliation) all converge.
func (svc *DefaultReservationService) CancelExpiredSession(ctx context.Context, bookingID, sessionID, reason, cancelledBy string) (*models.Session, error) {
	logger := utils.GetLogger()

	s, err := svc.Repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sessionRepo.ErrNotFound) {
			return nil, NewNotFoundError(fmt.Sprintf("session %s not found", sessionID))
		}
		return nil, err
	}
	if bookingID != "" && s.BookingID != bookingID {
		return nil, NewNotFoundError(fmt.Sprintf("session %s does not belong to booking %s", sessionID, bookingID))
	}
	if s.Status.Terminal() {
		return s, nil
	}

	if reason == "" {
		reason = TimeoutReason
	}
	if cancelledBy == "" {
		cancelledBy = SystemCancelledBy
	}
	// Timeout-triggered releases are recorded as expired; an explicit user
	// action is a cancellation. The two stay distinct terminal statuses.
	status := models.SessionCancelled
	if cancelledBy == SystemCancelledBy || reason == TimeoutReason {
		status = models.SessionExpired
	}

	cancelled, err := svc.Repo.MarkSessionTerminal(ctx, sessionID, sessionRepo.TerminalUpdate{
		Status:      status,
		Reason:      reason,
		CancelledBy: cancelledBy,
		CancelledAt: svc.Clock.Now(),
	})
	if err != nil {
		if errors.Is(err, sessionRepo.ErrNoTransition) {
			// Another caller finalized it first; return the settled record.
			return svc.Repo.GetSessionByID(ctx, sessionID)
		}
		return nil, err
	}

	logger.Info("session released",
		zap.String("sessionID", cancelled.ID),
		zap.String("status", string(cancelled.Status)),
		zap.String("reason", reason),
		zap.String("cancelledBy", cancelledBy))

	if svc.Notifier != nil {
		go svc.Notifier.SessionExpired(context.Background(), cancelled)
	}

	return cancelled, nil
}

// ListClientSessions returns a client's session history, never-deleted records
// included.
func (svc *DefaultReservationService) ListClientSessions(ctx context.Context, clientID string) ([]models.Session, error) {
	return svc.Repo.SessionsByClient(ctx, clientID)
}
