package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	sessionRepo "confiido/database/repository/session"
	"confiido/models"
)

// stubAvailability serves one fixed template for every weekday it knows.
type stubAvailability struct {
	templates map[int]*models.AvailabilityTemplate
}

func newStubAvailability(weekday int, granularity int, ranges ...models.TimeRange) *stubAvailability {
	return &stubAvailability{templates: map[int]*models.AvailabilityTemplate{
		weekday: {
			ID:                 "tpl-1",
			MentorID:           "mentor-1",
			Weekday:            weekday,
			Ranges:             ranges,
			GranularityMinutes: granularity,
		},
	}}
}

func (s *stubAvailability) Upsert(_ context.Context, tpl *models.AvailabilityTemplate) error {
	s.templates[tpl.Weekday] = tpl
	return nil
}

func (s *stubAvailability) GetByMentorWeekday(_ context.Context, _ string, weekday int) (*models.AvailabilityTemplate, error) {
	return s.templates[weekday], nil
}

func (s *stubAvailability) ListByMentor(_ context.Context, _ string) ([]models.AvailabilityTemplate, error) {
	var out []models.AvailabilityTemplate
	for _, tpl := range s.templates {
		out = append(out, *tpl)
	}
	return out, nil
}

func (s *stubAvailability) EnsureIndexes() error { return nil }

// fakeSessionRepo is an in-memory SessionRepository with the same conditional
// transition semantics as the Mongo implementation.
type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	bookings map[string]models.Booking
	seq      int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{
		sessions: make(map[string]models.Session),
		bookings: make(map[string]models.Booking),
	}
}

func (r *fakeSessionRepo) CreateSessionWithBooking(_ context.Context, session *models.Session) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.MentorID != session.MentorID || s.ScheduledDate != session.ScheduledDate || !s.Active {
			continue
		}
		if s.StartTime < session.EndTime && s.EndTime > session.StartTime {
			return nil, sessionRepo.ErrSlotTaken
		}
	}

	var booking models.Booking
	found := false
	for _, b := range r.bookings {
		if b.ClientID == session.ClientID && b.MentorID == session.MentorID {
			booking = b
			found = true
			break
		}
	}
	if !found {
		r.seq++
		booking = models.Booking{
			ID:        fmt.Sprintf("booking-%d", r.seq),
			MentorID:  session.MentorID,
			ClientID:  session.ClientID,
			CreatedAt: session.CreatedAt,
		}
	}

	session.BookingID = booking.ID
	booking.SessionIDs = append(booking.SessionIDs, session.ID)
	booking.UpdatedAt = session.CreatedAt
	r.bookings[booking.ID] = booking
	r.sessions[session.ID] = *session

	out := booking
	return &out, nil
}

func (r *fakeSessionRepo) GetSessionByID(_ context.Context, sessionID string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, sessionRepo.ErrNotFound
	}
	return &s, nil
}

func (r *fakeSessionRepo) GetBookingByID(_ context.Context, bookingID string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[bookingID]
	if !ok {
		return nil, sessionRepo.ErrNotFound
	}
	return &b, nil
}

func (r *fakeSessionRepo) ActiveSessionsByMentorDate(_ context.Context, mentorID, date string) ([]models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Session
	for _, s := range r.sessions {
		if s.MentorID == mentorID && s.ScheduledDate == date && s.Active {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (r *fakeSessionRepo) PendingSessionsDueBefore(_ context.Context, cutoff time.Time, clientID string) ([]models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Session
	for _, s := range r.sessions {
		if s.Status != models.SessionPending || !s.TimeoutAt.Before(cutoff) {
			continue
		}
		if clientID != "" && s.ClientID != clientID {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *fakeSessionRepo) SessionsByClient(_ context.Context, clientID string) ([]models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Session
	for _, s := range r.sessions {
		if s.ClientID == clientID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeSessionRepo) SessionsByIDs(_ context.Context, sessionIDs []string) ([]models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Session
	for _, id := range sessionIDs {
		if s, ok := r.sessions[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) MarkSessionPaid(_ context.Context, sessionID string, upd sessionRepo.PaidUpdate) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || s.Status != models.SessionPending || upd.CompletedAt.After(s.TimeoutAt) {
		return nil, sessionRepo.ErrNoTransition
	}
	s.Status = models.SessionPaid
	s.PaymentStatus = models.PaymentPaid
	s.TimeoutStatus = models.TimeoutCompleted
	s.PaymentMethod = upd.PaymentMethod
	s.LoyaltyPointsUsed = upd.LoyaltyPointsUsed
	s.FinalAmount = upd.FinalAmount
	completedAt := upd.CompletedAt
	s.PaymentCompletedAt = &completedAt
	r.sessions[sessionID] = s
	return &s, nil
}

func (r *fakeSessionRepo) MarkSessionTerminal(_ context.Context, sessionID string, upd sessionRepo.TerminalUpdate) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || s.Status != models.SessionPending {
		return nil, sessionRepo.ErrNoTransition
	}
	s.Status = upd.Status
	s.PaymentStatus = models.PaymentFailed
	s.TimeoutStatus = models.TimeoutExpired
	s.Active = false
	s.CancellationReason = upd.Reason
	s.CancelledBy = upd.CancelledBy
	cancelledAt := upd.CancelledAt
	s.CancelledAt = &cancelledAt
	r.sessions[sessionID] = s
	return &s, nil
}

func (r *fakeSessionRepo) EnsureIndexes() error { return nil }
