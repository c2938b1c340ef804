package models

import "time"

// ClientTimeout is one client-tracked countdown, as reported during
// reconciliation. Not authoritative.
type ClientTimeout struct {
	BookingID string    `json:"bookingId" binding:"required"`
	SessionID string    `json:"sessionId" binding:"required"`
	TimeoutAt time.Time `json:"timeoutAt"`
}

// TimeoutSyncRequest carries all locally-active countdowns a client holds.
type TimeoutSyncRequest struct {
	Timeouts []ClientTimeout `json:"timeouts" binding:"required"`
}

// TimeoutChange reports a session whose authoritative state differs from the
// client's view. The client should stop its local timer and adopt Status.
type TimeoutChange struct {
	BookingID string        `json:"bookingId"`
	SessionID string        `json:"sessionId"`
	Status    SessionStatus `json:"status"`
	Reason    string        `json:"reason,omitempty"`
}

// TimeoutSyncResult returns only entries that changed or mismatched; sessions
// still pending inside their window produce no entry.
type TimeoutSyncResult struct {
	ExpiredSessions []TimeoutChange `json:"expiredSessions"`
}

// TimeoutStatusRequest is a read-only batch status lookup.
type TimeoutStatusRequest struct {
	SessionIDs []string `json:"sessionIds" binding:"required"`
}

// ExpiryPayload is the queued task body for a scheduled session expiry.
type ExpiryPayload struct {
	BookingID string `json:"bookingId"`
	SessionID string `json:"sessionId"`
}
