package handlers

import (
	"net/http"

	"confiido/middleware"
	"confiido/models"
	"confiido/services/booking"
	"confiido/utils"

	"github.com/gin-gonic/gin"
)

// TimeoutHandler exposes expiry sweeping and client reconciliation.
type TimeoutHandler struct {
	Engine *booking.TimeoutEngine
	Recon  *booking.ReconciliationService
}

func NewTimeoutHandler(engine *booking.TimeoutEngine, recon *booking.ReconciliationService) *TimeoutHandler {
	return &TimeoutHandler{Engine: engine, Recon: recon}
}

// CheckExpired lazily sweeps the caller's pending sessions past their
// deadline. Clients hit this on mount so missed timers still converge.
// GET /api/bookings/expired/check
func (h *TimeoutHandler) CheckExpired(c *gin.Context) {
	swept, err := h.Engine.SweepExpired(c.Request.Context(), middleware.AuthedUserID(c))
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "internal error", err.Error())
		return
	}
	if swept == nil {
		swept = []models.Session{}
	}
	c.JSON(http.StatusOK, gin.H{"expiredSessions": swept})
}

// SyncTimeoutState reconciles client-tracked countdowns against the store.
// POST /api/bookings/timeout/sync
func (h *TimeoutHandler) SyncTimeoutState(c *gin.Context) {
	var req models.TimeoutSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	result, err := h.Recon.SyncTimeoutState(c.Request.Context(), req.Timeouts)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "internal error", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

// TimeoutStatus is the read-only batch status lookup.
// POST /api/bookings/timeout/status
func (h *TimeoutHandler) TimeoutStatus(c *gin.Context) {
	var req models.TimeoutStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	statuses, err := h.Recon.GetTimeoutStatus(c.Request.Context(), req.SessionIDs)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "internal error", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"statuses": statuses})
}
