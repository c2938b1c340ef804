// Package tracker is the client-side countdown cache: a best-effort,
// non-authoritative projection of payment deadlines used to render live
// countdowns. It never decides expiry for the server; on local zero it marks
// its own copy expired and leaves the real transition to reconciliation.
package tracker

import (
	"context"
	"sync"
	"time"

	"confiido/models"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Local record statuses. StatusActive counts down; everything else is settled
// and exists only so the UI can render the outcome.
const (
	StatusActive    = "active"
	StatusExpired   = "expired"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
)

// Record is one tracked countdown.
type Record struct {
	BookingID string    `json:"bookingId"`
	SessionID string    `json:"sessionId"`
	TimeoutAt time.Time `json:"timeoutAt"`
	Status    string    `json:"status"`
	Countdown int       `json:"countdown"` // seconds remaining
}

// Reconciler is the server-side authority the tracker syncs against.
type Reconciler interface {
	SyncTimeoutState(ctx context.Context, timeouts []models.ClientTimeout) (*models.TimeoutSyncResult, error)
}

// Tracker maintains the local countdown map plus the handled-expiry set,
// persisted through the Store on every mutation.
type Tracker struct {
	mu         sync.Mutex
	clock      clockwork.Clock
	store      Store
	reconciler Reconciler
	logger     *zap.Logger

	records map[string]Record
	handled map[string]struct{}
}

// SyncInterval is how often the tracker reconciles with the server; ticks
// recompute countdowns every second in between.
const SyncInterval = 30 * time.Second

func sessionKey(bookingID, sessionID string) string {
	return bookingID + ":" + sessionID
}

// NewTracker loads persisted state and returns a ready tracker.
func NewTracker(ctx context.Context, store Store, reconciler Reconciler, clock clockwork.Clock, logger *zap.Logger) (*Tracker, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	records, handled, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return &Tracker{
		clock:      clock,
		store:      store,
		reconciler: reconciler,
		logger:     logger,
		records:    records,
		handled:    handled,
	}, nil
}

func (t *Tracker) persist(ctx context.Context) {
	if err := t.store.Save(ctx, t.records, t.handled); err != nil {
		t.logger.Warn("tracker: failed to persist state", zap.Error(err))
	}
}

// AddTimeout starts tracking a countdown. No-op when the session key is
// already tracked or already in the handled-expired set, so repeated calls
// from multiple UI code paths cannot re-arm a resolved timer.
func (t *Tracker) AddTimeout(ctx context.Context, bookingID, sessionID string, timeoutAt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := sessionKey(bookingID, sessionID)
	if _, done := t.handled[key]; done {
		return
	}
	if _, ok := t.records[key]; ok {
		return
	}

	t.records[key] = Record{
		BookingID: bookingID,
		SessionID: sessionID,
		TimeoutAt: timeoutAt,
		Status:    StatusActive,
		Countdown: t.secondsUntil(timeoutAt),
	}
	t.persist(ctx)
}

func (t *Tracker) secondsUntil(deadline time.Time) int {
	remaining := int(deadline.Sub(t.clock.Now()).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Tick recomputes every active countdown from the wall clock. A countdown
// reaching zero flips the local status to expired and records the key as
// handled; the server transition happens on the next sync.
func (t *Tracker) Tick(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	changed := false
	for key, rec := range t.records {
		if rec.Status != StatusActive {
			continue
		}
		remaining := t.secondsUntil(rec.TimeoutAt)
		if remaining != rec.Countdown {
			rec.Countdown = remaining
			changed = true
		}
		if remaining == 0 {
			rec.Status = StatusExpired
			t.handled[key] = struct{}{}
			changed = true
		}
		t.records[key] = rec
	}
	if changed {
		t.persist(ctx)
	}
}

// Sync reports all locally-active countdowns to the reconciler and adopts the
// authoritative statuses it returns. A session settled elsewhere (paid from
// another tab, expired server-side) stops counting down here.
func (t *Tracker) Sync(ctx context.Context) error {
	t.mu.Lock()
	var timeouts []models.ClientTimeout
	for _, rec := range t.records {
		if rec.Status != StatusActive {
			continue
		}
		timeouts = append(timeouts, models.ClientTimeout{
			BookingID: rec.BookingID,
			SessionID: rec.SessionID,
			TimeoutAt: rec.TimeoutAt,
		})
	}
	t.mu.Unlock()

	if len(timeouts) == 0 {
		return nil
	}

	result, err := t.reconciler.SyncTimeoutState(ctx, timeouts)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, change := range result.ExpiredSessions {
		key := sessionKey(change.BookingID, change.SessionID)
		rec, ok := t.records[key]
		if !ok {
			continue
		}
		switch change.Status {
		case models.SessionPaid:
			rec.Status = StatusPaid
		case models.SessionCancelled:
			rec.Status = StatusCancelled
		default:
			rec.Status = StatusExpired
		}
		rec.Countdown = 0
		t.records[key] = rec
		t.handled[key] = struct{}{}
	}
	if len(result.ExpiredSessions) > 0 {
		t.persist(ctx)
	}
	return nil
}

// Snapshot returns a copy of the tracked records for rendering.
func (t *Tracker) Snapshot() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Record, 0, len(t.records))
	for _, rec := range t.records {
		out = append(out, rec)
	}
	return out
}

// Run drives the tracker loops until ctx is done: a one-second countdown tick
// and the slower reconciliation sync. The two timers are independent and may
// drift; a paused and resumed process simply recomputes from the wall clock
// without double-firing.
func (t *Tracker) Run(ctx context.Context) {
	tick := t.clock.NewTicker(time.Second)
	defer tick.Stop()
	sync := t.clock.NewTicker(SyncInterval)
	defer sync.Stop()

	// Reconcile once on start; the process may have been gone past deadlines.
	if err := t.Sync(ctx); err != nil {
		t.logger.Warn("tracker: initial sync failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.Chan():
			t.Tick(ctx)
		case <-sync.Chan():
			if err := t.Sync(ctx); err != nil {
				t.logger.Warn("tracker: sync failed", zap.Error(err))
			}
		}
	}
}
