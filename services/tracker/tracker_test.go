package tracker

import (
	"context"
	"testing"
	"time"

	"confiido/models"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type fakeReconciler struct {
	reported [][]models.ClientTimeout
	result   *models.TimeoutSyncResult
}

func (f *fakeReconciler) SyncTimeoutState(_ context.Context, timeouts []models.ClientTimeout) (*models.TimeoutSyncResult, error) {
	f.reported = append(f.reported, timeouts)
	if f.result == nil {
		return &models.TimeoutSyncResult{ExpiredSessions: []models.TimeoutChange{}}, nil
	}
	return f.result, nil
}

func newTestTracker(t *testing.T, store Store, recon Reconciler) (*Tracker, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC))
	trk, err := NewTracker(context.Background(), store, recon, clock, zap.NewNop())
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	return trk, clock
}

func findRecord(t *testing.T, trk *Tracker, sessionID string) Record {
	t.Helper()
	for _, rec := range trk.Snapshot() {
		if rec.SessionID == sessionID {
			return rec
		}
	}
	t.Fatalf("session %s not tracked", sessionID)
	return Record{}
}

func TestAddTimeoutStartsCountdown(t *testing.T) {
	trk, clock := newTestTracker(t, NewMemoryStore(), &fakeReconciler{})
	ctx := context.Background()

	trk.AddTimeout(ctx, "b1", "s1", clock.Now().Add(5*time.Minute))
	rec := findRecord(t, trk, "s1")
	if rec.Status != StatusActive || rec.Countdown != 300 {
		t.Fatalf("expected active countdown of 300s, got %s/%d", rec.Status, rec.Countdown)
	}
}

func TestAddTimeoutIsIdempotent(t *testing.T) {
	trk, clock := newTestTracker(t, NewMemoryStore(), &fakeReconciler{})
	ctx := context.Background()

	deadline := clock.Now().Add(5 * time.Minute)
	trk.AddTimeout(ctx, "b1", "s1", deadline)
	trk.AddTimeout(ctx, "b1", "s1", deadline.Add(time.Hour))

	if got := len(trk.Snapshot()); got != 1 {
		t.Fatalf("expected 1 record, got %d", got)
	}
	if rec := findRecord(t, trk, "s1"); !rec.TimeoutAt.Equal(deadline) {
		t.Fatalf("repeated add must not re-arm the deadline, got %v", rec.TimeoutAt)
	}
}

func TestTickCountsDownAndExpiresAtZero(t *testing.T) {
	trk, clock := newTestTracker(t, NewMemoryStore(), &fakeReconciler{})
	ctx := context.Background()

	trk.AddTimeout(ctx, "b1", "s1", clock.Now().Add(5*time.Minute))

	clock.Advance(2 * time.Minute)
	trk.Tick(ctx)
	if rec := findRecord(t, trk, "s1"); rec.Countdown != 180 || rec.Status != StatusActive {
		t.Fatalf("expected 180s remaining, got %s/%d", rec.Status, rec.Countdown)
	}

	clock.Advance(3 * time.Minute)
	trk.Tick(ctx)
	if rec := findRecord(t, trk, "s1"); rec.Countdown != 0 || rec.Status != StatusExpired {
		t.Fatalf("expected local expiry at zero, got %s/%d", rec.Status, rec.Countdown)
	}
}

func TestExpiredSessionCannotBeReArmed(t *testing.T) {
	trk, clock := newTestTracker(t, NewMemoryStore(), &fakeReconciler{})
	ctx := context.Background()

	trk.AddTimeout(ctx, "b1", "s1", clock.Now().Add(time.Minute))
	clock.Advance(2 * time.Minute)
	trk.Tick(ctx)

	trk.AddTimeout(ctx, "b1", "s1", clock.Now().Add(10*time.Minute))
	if rec := findRecord(t, trk, "s1"); rec.Status != StatusExpired {
		t.Fatalf("handled session must stay expired, got %s", rec.Status)
	}
}

func TestSyncAdoptsAuthoritativeStatuses(t *testing.T) {
	recon := &fakeReconciler{result: &models.TimeoutSyncResult{ExpiredSessions: []models.TimeoutChange{
		{BookingID: "b1", SessionID: "s1", Status: models.SessionPaid},
		{BookingID: "b1", SessionID: "s2", Status: models.SessionExpired, Reason: "timeout"},
	}}}
	trk, clock := newTestTracker(t, NewMemoryStore(), recon)
	ctx := context.Background()

	trk.AddTimeout(ctx, "b1", "s1", clock.Now().Add(5*time.Minute))
	trk.AddTimeout(ctx, "b1", "s2", clock.Now().Add(5*time.Minute))

	if err := trk.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(recon.reported) != 1 || len(recon.reported[0]) != 2 {
		t.Fatalf("expected both active countdowns reported, got %v", recon.reported)
	}
	if rec := findRecord(t, trk, "s1"); rec.Status != StatusPaid || rec.Countdown != 0 {
		t.Fatalf("s1 must adopt paid, got %s/%d", rec.Status, rec.Countdown)
	}
	if rec := findRecord(t, trk, "s2"); rec.Status != StatusExpired {
		t.Fatalf("s2 must adopt expired, got %s", rec.Status)
	}
}

func TestSyncSkipsWhenNothingActive(t *testing.T) {
	recon := &fakeReconciler{}
	trk, _ := newTestTracker(t, NewMemoryStore(), recon)

	if err := trk.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(recon.reported) != 0 {
		t.Fatalf("sync with no active countdowns must not call the server, got %v", recon.reported)
	}
}

func TestSettledSessionNotReportedAgain(t *testing.T) {
	recon := &fakeReconciler{result: &models.TimeoutSyncResult{ExpiredSessions: []models.TimeoutChange{
		{BookingID: "b1", SessionID: "s1", Status: models.SessionPaid},
	}}}
	trk, clock := newTestTracker(t, NewMemoryStore(), recon)
	ctx := context.Background()

	trk.AddTimeout(ctx, "b1", "s1", clock.Now().Add(5*time.Minute))
	if err := trk.Sync(ctx); err != nil {
		t.Fatalf("first Sync: %v", err)
	}
	if err := trk.Sync(ctx); err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if len(recon.reported) != 1 {
		t.Fatalf("settled session must not be reported again, got %d reports", len(recon.reported))
	}
}

func TestStateSurvivesRestart(t *testing.T) {
	store := NewMemoryStore()
	trk, clock := newTestTracker(t, store, &fakeReconciler{})
	ctx := context.Background()

	deadline := clock.Now().Add(5 * time.Minute)
	trk.AddTimeout(ctx, "b1", "s1", deadline)

	restarted, rclock := newTestTracker(t, store, &fakeReconciler{})
	rec := findRecord(t, restarted, "s1")
	if rec.Status != StatusActive || !rec.TimeoutAt.Equal(deadline) {
		t.Fatalf("restart must resume the countdown, got %s at %v", rec.Status, rec.TimeoutAt)
	}

	// The handled set survives too: expire locally, restart, try to re-arm.
	rclock.Advance(6 * time.Minute)
	restarted.Tick(ctx)
	again, aclock := newTestTracker(t, store, &fakeReconciler{})
	again.AddTimeout(ctx, "b1", "s1", aclock.Now().Add(time.Hour))
	if rec := findRecord(t, again, "s1"); rec.Status != StatusExpired {
		t.Fatalf("handled expiry must survive restart, got %s", rec.Status)
	}
}
