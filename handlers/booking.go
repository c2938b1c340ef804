package handlers

import (
	"errors"
	"net/http"

	sessionRepo "confiido/database/repository/session"
	"confiido/middleware"
	"confiido/models"
	"confiido/services/booking"
	"confiido/utils"

	"github.com/gin-gonic/gin"
)

// BookingHandler exposes the reservation state machine over REST.
type BookingHandler struct {
	Reservations booking.ReservationService
	Payments     booking.PaymentProcessor
	Repo         sessionRepo.SessionRepository
}

func NewBookingHandler(reservations booking.ReservationService, payments booking.PaymentProcessor, repo sessionRepo.SessionRepository) *BookingHandler {
	return &BookingHandler{Reservations: reservations, Payments: payments, Repo: repo}
}

// CreateBooking reserves a slot and opens the payment window.
// POST /api/bookings → 201 {booking, session}, 409 on slot conflict.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req models.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	req.ClientID = middleware.AuthedUserID(c)

	b, s, err := h.Reservations.CreateSession(c.Request.Context(), req)
	if err != nil {
		respondBookingError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": b, "session": s})
}

// loadSessionInBooking fetches a session and checks it belongs to the booking
// in the URL. Responds itself on failure.
func (h *BookingHandler) loadSessionInBooking(c *gin.Context, bookingID, sessionID string) (*models.Session, bool) {
	s, err := h.Repo.GetSessionByID(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, sessionRepo.ErrNotFound) {
			utils.JSONError(c, http.StatusNotFound, "not found", "session "+sessionID+" not found")
		} else {
			utils.JSONError(c, http.StatusInternalServerError, "internal error", err.Error())
		}
		return nil, false
	}
	if s.BookingID != bookingID {
		utils.JSONError(c, http.StatusNotFound, "not found", "session does not belong to booking "+bookingID)
		return nil, false
	}
	return s, true
}

// CompletePayment reports a provider-confirmed payment.
// PUT /api/bookings/:id/complete-payment → 200, 409 when terminal or late, 404 when missing.
func (h *BookingHandler) CompletePayment(c *gin.Context) {
	bookingID := c.Param("id")
	var req models.CompletePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	if _, ok := h.loadSessionInBooking(c, bookingID, req.SessionID); !ok {
		return
	}

	s, err := h.Reservations.CompletePayment(c.Request.Context(), req.SessionID, req.PaymentMethod, req.LoyaltyPointsUsed)
	if err != nil {
		respondBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": s})
}

// CancelExpiredSession releases a pending session. Idempotent: repeated calls
// return the settled record with 200.
// PUT /api/bookings/:id/cancel-expired-session
func (h *BookingHandler) CancelExpiredSession(c *gin.Context) {
	bookingID := c.Param("id")
	var req models.CancelSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	s, err := h.Reservations.CancelExpiredSession(c.Request.Context(), bookingID, req.SessionID, req.Reason, middleware.AuthedUserID(c))
	if err != nil {
		respondBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": s})
}

// ListBookings returns the caller's session history.
// GET /api/bookings
func (h *BookingHandler) ListBookings(c *gin.Context) {
	sessions, err := h.Reservations.ListClientSessions(c.Request.Context(), middleware.AuthedUserID(c))
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "internal error", err.Error())
		return
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// GetPaymentIntent opens a Stripe PaymentIntent for a pending session.
// GET /api/bookings/:id/payment-intent?sessionId=...
func (h *BookingHandler) GetPaymentIntent(c *gin.Context) {
	bookingID := c.Param("id")
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "sessionId query parameter is required")
		return
	}

	s, ok := h.loadSessionInBooking(c, bookingID, sessionID)
	if !ok {
		return
	}

	intent, err := h.Payments.CreatePaymentIntent(s)
	if err != nil {
		respondBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, intent)
}
