package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"confiido/models"
	"confiido/services/booking"
	"confiido/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// SlotsHandler serves slot availability, with a short-TTL Redis cache in
// front of the base grid since listings are hit on every booking page load.
type SlotsHandler struct {
	Calc  *booking.SlotCalculator
	Cache *redis.Client
}

func NewSlotsHandler(calc *booking.SlotCalculator, cache *redis.Client) *SlotsHandler {
	return &SlotsHandler{Calc: calc, Cache: cache}
}

// GetSlots returns the 15-minute base grid for a mentor and date.
// GET /api/slots?mentorId=...&date=YYYY-MM-DD
func (h *SlotsHandler) GetSlots(c *gin.Context) {
	mentorID := c.Query("mentorId")
	date := c.Query("date")
	if mentorID == "" || date == "" {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "mentorId and date query parameters are required")
		return
	}

	ctx := c.Request.Context()
	cacheKey := utils.SlotCachePrefix + mentorID + ":" + date
	if h.Cache != nil {
		if raw, err := h.Cache.Get(ctx, cacheKey).Result(); err == nil {
			var cached []models.Slot
			if json.Unmarshal([]byte(raw), &cached) == nil {
				c.JSON(http.StatusOK, gin.H{"slots": cached})
				return
			}
		}
	}

	slots, err := h.Calc.GetSlots(ctx, mentorID, date)
	if err != nil {
		respondBookingError(c, err)
		return
	}
	if slots == nil {
		slots = []models.Slot{}
	}

	if h.Cache != nil {
		if data, err := json.Marshal(slots); err == nil {
			if err := h.Cache.Set(ctx, cacheKey, data, utils.SlotCacheTTL).Err(); err != nil {
				utils.GetLogger().Warn("failed to cache slot listing", zap.Error(err))
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

// GetConsecutiveSlots enumerates bookable windows of the requested duration.
// GET /api/slots/consecutive?mentorId=...&date=...&duration=30|60
func (h *SlotsHandler) GetConsecutiveSlots(c *gin.Context) {
	mentorID := c.Query("mentorId")
	date := c.Query("date")
	durationStr := c.Query("duration")
	if mentorID == "" || date == "" || durationStr == "" {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "mentorId, date and duration query parameters are required")
		return
	}
	duration, err := strconv.Atoi(durationStr)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", fmt.Sprintf("invalid duration %q", durationStr))
		return
	}

	windows, err := h.Calc.GetConsecutiveSlots(c.Request.Context(), mentorID, date, duration)
	if err != nil {
		respondBookingError(c, err)
		return
	}
	if windows == nil {
		windows = []models.ConsecutiveSlot{}
	}
	c.JSON(http.StatusOK, gin.H{"slots": windows})
}
