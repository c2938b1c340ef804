package booking

import (
	"context"
	"testing"
	"time"

	"confiido/models"

	"github.com/jonboulle/clockwork"
)

func newReconTestService() (*DefaultReservationService, *ReconciliationService, *clockwork.FakeClock) {
	svc, repo, clock := newTestService()
	recon := &ReconciliationService{
		Repo:      repo,
		Engine:    svc.Timeouts,
		Canceller: svc,
	}
	return svc, recon, clock
}

func clientView(s *models.Session) models.ClientTimeout {
	return models.ClientTimeout{
		BookingID: s.BookingID,
		SessionID: s.ID,
		TimeoutAt: s.TimeoutAt,
	}
}

func TestSyncTimeoutStateExpiresOverdueSession(t *testing.T) {
	svc, recon, clock := newReconTestService()
	ctx := context.Background()

	_, session, err := svc.CreateSession(ctx, createReq("10:00", 60))
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	clock.Advance(paymentWindow + time.Second)

	result, err := recon.SyncTimeoutState(ctx, []models.ClientTimeout{clientView(session)})
	if err != nil {
		t.Fatalf("SyncTimeoutState: %v", err)
	}
	if len(result.ExpiredSessions) != 1 {
		t.Fatalf("expected 1 change, got %d", len(result.ExpiredSessions))
	}
	change := result.ExpiredSessions[0]
	if change.SessionID != session.ID || change.Status != models.SessionExpired {
		t.Fatalf("expected %s reported expired, got %+v", session.ID, change)
	}

	stored, err := svc.Repo.GetSessionByID(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSessionByID: %v", err)
	}
	if stored.Status != models.SessionExpired {
		t.Fatalf("sync must release the overdue session, got %s", stored.Status)
	}
}

func TestSyncTimeoutStateConvergesToServerPaid(t *testing.T) {
	svc, recon, clock := newReconTestService()
	ctx := context.Background()

	_, session, err := svc.CreateSession(ctx, createReq("10:00", 60))
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := svc.CompletePayment(ctx, session.ID, "card", 0); err != nil {
		t.Fatalf("CompletePayment: %v", err)
	}

	// The client's countdown kept running past zero; the server record won.
	clock.Advance(paymentWindow + time.Minute)
	result, err := recon.SyncTimeoutState(ctx, []models.ClientTimeout{clientView(session)})
	if err != nil {
		t.Fatalf("SyncTimeoutState: %v", err)
	}
	if len(result.ExpiredSessions) != 1 {
		t.Fatalf("expected 1 change, got %d", len(result.ExpiredSessions))
	}
	if got := result.ExpiredSessions[0].Status; got != models.SessionPaid {
		t.Fatalf("client must adopt paid, got %s", got)
	}
}

func TestSyncTimeoutStateUnknownSessionDropped(t *testing.T) {
	_, recon, _ := newReconTestService()

	result, err := recon.SyncTimeoutState(context.Background(), []models.ClientTimeout{{
		BookingID: "booking-x",
		SessionID: "session-x",
	}})
	if err != nil {
		t.Fatalf("SyncTimeoutState: %v", err)
	}
	if len(result.ExpiredSessions) != 1 {
		t.Fatalf("expected 1 change, got %d", len(result.ExpiredSessions))
	}
	change := result.ExpiredSessions[0]
	if change.Status != models.SessionCancelled || change.Reason != "unknown session" {
		t.Fatalf("stale entry should be dropped as cancelled, got %+v", change)
	}
}

func TestSyncTimeoutStatePendingInWindowProducesNoEntry(t *testing.T) {
	svc, recon, _ := newReconTestService()
	ctx := context.Background()

	_, session, err := svc.CreateSession(ctx, createReq("10:00", 60))
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	result, err := recon.SyncTimeoutState(ctx, []models.ClientTimeout{clientView(session)})
	if err != nil {
		t.Fatalf("SyncTimeoutState: %v", err)
	}
	if len(result.ExpiredSessions) != 0 {
		t.Fatalf("a healthy countdown must produce no change, got %v", result.ExpiredSessions)
	}
}

func TestGetTimeoutStatusReportsLogicalExpiry(t *testing.T) {
	svc, recon, clock := newReconTestService()
	ctx := context.Background()

	_, overdue, err := svc.CreateSession(ctx, createReq("10:00", 60))
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	clock.Advance(paymentWindow - time.Minute)
	_, fresh, err := svc.CreateSession(ctx, createReq("14:00", 30))
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	clock.Advance(2 * time.Minute)

	statuses, err := recon.GetTimeoutStatus(ctx, []string{overdue.ID, fresh.ID})
	if err != nil {
		t.Fatalf("GetTimeoutStatus: %v", err)
	}
	if statuses[overdue.ID] != models.SessionExpired {
		t.Fatalf("overdue pending session must read as expired, got %s", statuses[overdue.ID])
	}
	if statuses[fresh.ID] != models.SessionPending {
		t.Fatalf("in-window session must read as pending, got %s", statuses[fresh.ID])
	}

	// Read-only: the overdue record itself is still pending.
	stored, err := svc.Repo.GetSessionByID(ctx, overdue.ID)
	if err != nil {
		t.Fatalf("GetSessionByID: %v", err)
	}
	if stored.Status != models.SessionPending {
		t.Fatalf("status lookup must not write, got %s", stored.Status)
	}
}
