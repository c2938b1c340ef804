package handlers

import (
	"net/http"
	"time"

	availabilityRepo "confiido/database/repository/availability"
	"confiido/middleware"
	"confiido/models"
	"confiido/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AvailabilityHandler manages mentors' weekly availability templates.
type AvailabilityHandler struct {
	Repo availabilityRepo.AvailabilityRepository
}

func NewAvailabilityHandler(repo availabilityRepo.AvailabilityRepository) *AvailabilityHandler {
	return &AvailabilityHandler{Repo: repo}
}

// SetupAvailability creates or replaces the caller's template for a weekday.
// PUT /api/availability
func (h *AvailabilityHandler) SetupAvailability(c *gin.Context) {
	var req models.SetupAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	if req.Weekday < int(time.Sunday) || req.Weekday > int(time.Saturday) {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "weekday must be 0 (Sunday) through 6 (Saturday)")
		return
	}
	for _, r := range req.Ranges {
		start, err := time.Parse("15:04", r.Start)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid input", "range start must be HH:MM")
			return
		}
		end, err := time.Parse("15:04", r.End)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid input", "range end must be HH:MM")
			return
		}
		if !end.After(start) {
			utils.JSONError(c, http.StatusBadRequest, "invalid input", "range end must be after start")
			return
		}
	}

	tpl := &models.AvailabilityTemplate{
		ID:                 uuid.New().String(),
		MentorID:           middleware.AuthedUserID(c),
		Weekday:            req.Weekday,
		Ranges:             req.Ranges,
		GranularityMinutes: 15,
	}
	if err := h.Repo.Upsert(c.Request.Context(), tpl); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "internal error", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"template": tpl})
}

// GetAvailability lists a mentor's weekly templates.
// GET /api/availability/:mentorId
func (h *AvailabilityHandler) GetAvailability(c *gin.Context) {
	templates, err := h.Repo.ListByMentor(c.Request.Context(), c.Param("mentorId"))
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "internal error", err.Error())
		return
	}
	if templates == nil {
		templates = []models.AvailabilityTemplate{}
	}
	c.JSON(http.StatusOK, gin.H{"templates": templates})
}
