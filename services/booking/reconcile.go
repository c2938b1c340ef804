package booking

import (
	"context"
	"errors"

	sessionRepo "confiido/database/repository/session"
	"confiido/models"
	"confiido/utils"

	"go.uber.org/zap"
)

// ReconciliationService corrects client-cached countdown state against the
// authoritative store. Clients never decide expiry themselves; they report
// what they track and adopt whatever this returns.
type ReconciliationService struct {
	Repo      sessionRepo.SessionRepository
	Engine    *TimeoutEngine
	Canceller SessionCanceller
}

// SyncTimeoutState processes each client-reported countdown: sessions past
// their deadline and still pending are released; sessions already finalized
// elsewhere (paid from another tab, cancelled, expired) are reported so the
// client stops its local timer. Sessions still pending inside their window
// produce no entry.
func (rs *ReconciliationService) SyncTimeoutState(ctx context.Context, timeouts []models.ClientTimeout) (*models.TimeoutSyncResult, error) {
	logger := utils.GetLogger()
	result := &models.TimeoutSyncResult{ExpiredSessions: []models.TimeoutChange{}}
	now := rs.Engine.Clock.Now()

	for _, t := range timeouts {
		s, err := rs.Repo.GetSessionByID(ctx, t.SessionID)
		if err != nil {
			if errors.Is(err, sessionRepo.ErrNotFound) {
				// Stale client entry; tell the client to drop it.
				result.ExpiredSessions = append(result.ExpiredSessions, models.TimeoutChange{
					BookingID: t.BookingID,
					SessionID: t.SessionID,
					Status:    models.SessionCancelled,
					Reason:    "unknown session",
				})
				continue
			}
			return nil, err
		}

		if rs.Engine.IsExpired(s, now) {
			cancelled, err := rs.Canceller.CancelExpiredSession(ctx, s.BookingID, s.ID, TimeoutReason, SystemCancelledBy)
			if err != nil {
				logger.Warn("sync: failed to expire session",
					zap.String("sessionID", s.ID), zap.Error(err))
				continue
			}
			result.ExpiredSessions = append(result.ExpiredSessions, models.TimeoutChange{
				BookingID: cancelled.BookingID,
				SessionID: cancelled.ID,
				Status:    cancelled.Status,
				Reason:    cancelled.CancellationReason,
			})
			continue
		}

		if s.Status.Terminal() {
			// The client still counts down but the record is settled.
			result.ExpiredSessions = append(result.ExpiredSessions, models.TimeoutChange{
				BookingID: s.BookingID,
				SessionID: s.ID,
				Status:    s.Status,
				Reason:    s.CancellationReason,
			})
		}
	}
	return result, nil
}

// GetTimeoutStatus is the read-only batch lookup: current authoritative
// status per session, no side effects. Pending sessions past their deadline
// are reported as expired even before the terminal write lands.
func (rs *ReconciliationService) GetTimeoutStatus(ctx context.Context, sessionIDs []string) (map[string]models.SessionStatus, error) {
	sessions, err := rs.Repo.SessionsByIDs(ctx, sessionIDs)
	if err != nil {
		return nil, err
	}

	now := rs.Engine.Clock.Now()
	statuses := make(map[string]models.SessionStatus, len(sessions))
	for i := range sessions {
		s := &sessions[i]
		if rs.Engine.IsExpired(s, now) {
			statuses[s.ID] = models.SessionExpired
			continue
		}
		statuses[s.ID] = s.Status
	}
	return statuses, nil
}
