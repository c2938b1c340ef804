package sessionRepo

import (
	"context"
	"errors"
	"time"

	"confiido/database"
	"confiido/models"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrNotFound is returned when a session or booking does not exist.
	ErrNotFound = errors.New("session not found")
	// ErrSlotTaken is returned when an active session already holds the
	// requested window for that mentor and date.
	ErrSlotTaken = errors.New("slot already reserved")
	// ErrNoTransition is returned when a conditional update matched no
	// pending session (the record exists but is already terminal).
	ErrNoTransition = errors.New("session is not pending")
)

// PaidUpdate carries the fields stamped on the pending→paid transition.
type PaidUpdate struct {
	PaymentMethod     string
	LoyaltyPointsUsed int
	FinalAmount       float64
	CompletedAt       time.Time
}

// TerminalUpdate carries the fields stamped on the pending→cancelled/expired
// transition.
type TerminalUpdate struct {
	Status      models.SessionStatus
	Reason      string
	CancelledBy string
	CancelledAt time.Time
}

// SessionRepository is the persistence boundary for bookings and sessions.
// All transitions away from pending are conditional updates so racing
// callers cannot both win.
type SessionRepository interface {
	// CreateSessionWithBooking atomically claims the session window's hold
	// cells, attaches the session to the lazily created (client, mentor)
	// booking aggregate and inserts it. Returns ErrSlotTaken when any cell of
	// the window is held by an active session.
	CreateSessionWithBooking(ctx context.Context, session *models.Session) (*models.Booking, error)

	GetSessionByID(ctx context.Context, sessionID string) (*models.Session, error)
	GetBookingByID(ctx context.Context, bookingID string) (*models.Booking, error)

	// ActiveSessionsByMentorDate returns pending and paid sessions for the
	// slot-occupancy scan.
	ActiveSessionsByMentorDate(ctx context.Context, mentorID, date string) ([]models.Session, error)

	// PendingSessionsDueBefore returns pending sessions whose deadline passed
	// before cutoff. An empty clientID means all clients.
	PendingSessionsDueBefore(ctx context.Context, cutoff time.Time, clientID string) ([]models.Session, error)

	SessionsByClient(ctx context.Context, clientID string) ([]models.Session, error)
	SessionsByIDs(ctx context.Context, sessionIDs []string) ([]models.Session, error)

	// MarkSessionPaid transitions pending→paid. Returns ErrNoTransition when
	// the session is no longer pending or its deadline passed before
	// upd.CompletedAt.
	MarkSessionPaid(ctx context.Context, sessionID string, upd PaidUpdate) (*models.Session, error)

	// MarkSessionTerminal transitions pending→cancelled/expired and releases
	// the window's hold cells. Returns ErrNoTransition when the session is no
	// longer pending.
	MarkSessionTerminal(ctx context.Context, sessionID string, upd TerminalUpdate) (*models.Session, error)

	EnsureIndexes() error
}

// MongoSessionRepo implements SessionRepository using MongoDB.
type MongoSessionRepo struct {
	sessionColl *mongo.Collection
	bookingColl *mongo.Collection
	holdColl    *mongo.Collection
}

// NewMongoSessionRepo constructs a new instance of MongoSessionRepo.
func NewMongoSessionRepo() *MongoSessionRepo {
	db := database.MongoClient.Database("confiido")
	return &MongoSessionRepo{
		sessionColl: db.Collection("sessions"),
		bookingColl: db.Collection("bookings"),
		holdColl:    db.Collection("session_holds"),
	}
}
