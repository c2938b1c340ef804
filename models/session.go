package models

import "time"

// SessionStatus is the lifecycle state of a session. Transitions are
// monotonic: pending is the only non-terminal state.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionPaid      SessionStatus = "paid"
	SessionCancelled SessionStatus = "cancelled"
	SessionExpired   SessionStatus = "expired"
)

// Terminal reports whether no further transition can leave this status.
func (s SessionStatus) Terminal() bool {
	return s == SessionPaid || s == SessionCancelled || s == SessionExpired
}

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
	PaymentFailed PaymentStatus = "failed"
)

// TimeoutStatus mirrors the session status for countdown tracking. It is
// kept distinct because clients cache it independently of the full record.
type TimeoutStatus string

const (
	TimeoutActive    TimeoutStatus = "active"
	TimeoutExpired   TimeoutStatus = "expired"
	TimeoutCompleted TimeoutStatus = "completed"
)

// Session is one bookable unit of mentor time. Records are never hard-deleted;
// terminal sessions are retained for history.
type Session struct {
	ID              string `bson:"id" json:"sessionId"`
	BookingID       string `bson:"booking_id" json:"bookingId"`
	MentorID        string `bson:"mentor_id" json:"mentorId"`
	ClientID        string `bson:"client_id" json:"clientId"`
	ScheduledDate   string `bson:"scheduled_date" json:"scheduledDate"` // "YYYY-MM-DD"
	StartTime       string `bson:"start_time" json:"startTime"`         // "HH:MM", zero-padded
	EndTime         string `bson:"end_time" json:"endTime"`
	DurationMinutes int    `bson:"duration_minutes" json:"durationMinutes"`

	Status        SessionStatus `bson:"status" json:"status"`
	PaymentStatus PaymentStatus `bson:"payment_status" json:"paymentStatus"`
	// Active is true while Status is pending or paid. Maintained alongside
	// Status so the partial unique slot index can filter on a plain equality.
	Active bool `bson:"active" json:"-"`

	// TimeoutAt is set exactly once, at creation, and never mutated.
	TimeoutAt     time.Time     `bson:"timeout_at" json:"timeoutAt"`
	TimeoutStatus TimeoutStatus `bson:"timeout_status" json:"timeoutStatus"`

	CancellationReason string     `bson:"cancellation_reason,omitempty" json:"cancellationReason,omitempty"`
	CancelledBy        string     `bson:"cancelled_by,omitempty" json:"cancelledBy,omitempty"`
	CancelledAt        *time.Time `bson:"cancelled_at,omitempty" json:"cancelledAt,omitempty"`

	Price              float64    `bson:"price" json:"price"`
	FinalAmount        float64    `bson:"final_amount,omitempty" json:"finalAmount,omitempty"`
	LoyaltyPointsUsed  int        `bson:"loyalty_points_used,omitempty" json:"loyaltyPointsUsed,omitempty"`
	PaymentMethod      string     `bson:"payment_method,omitempty" json:"paymentMethod,omitempty"`
	PaymentCompletedAt *time.Time `bson:"payment_completed_at,omitempty" json:"paymentCompletedAt,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// LogicallyExpired reports whether the session should be treated as expired
// even if the terminal write has not landed yet.
func (s *Session) LogicallyExpired(now time.Time) bool {
	return s.Status == SessionPending && now.After(s.TimeoutAt)
}

// Booking is the aggregate grouping sessions for one (client, mentor) pair.
// It is created lazily on the first session.
type Booking struct {
	ID         string    `bson:"id" json:"bookingId"`
	MentorID   string    `bson:"mentor_id" json:"mentorId"`
	ClientID   string    `bson:"client_id" json:"clientId"`
	SessionIDs []string  `bson:"session_ids" json:"sessionIds"`
	CreatedAt  time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updatedAt"`
}

// CreateSessionRequest is the payload for creating a new session.
type CreateSessionRequest struct {
	MentorID        string  `json:"mentorId" binding:"required"`
	ScheduledDate   string  `json:"scheduledDate" binding:"required"`
	StartTime       string  `json:"startTime" binding:"required"`
	DurationMinutes int     `json:"durationMinutes" binding:"required"`
	Price           float64 `json:"price"`

	// ClientID comes from the auth middleware, never from the body.
	ClientID string `json:"-"`
}

// CompletePaymentRequest reports a payment-provider success for a session.
type CompletePaymentRequest struct {
	SessionID         string `json:"sessionId" binding:"required"`
	PaymentMethod     string `json:"paymentMethod" binding:"required"`
	LoyaltyPointsUsed int    `json:"loyaltyPointsUsed"`
}

// CancelSessionRequest asks for a pending session to be released.
type CancelSessionRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	Reason    string `json:"reason"`
}
