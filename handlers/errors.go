package handlers

import (
	"net/http"

	"confiido/services/booking"
	"confiido/utils"

	"github.com/gin-gonic/gin"
)

// respondBookingError maps the engine's error taxonomy onto HTTP statuses:
// validation 400, missing records 404, conflicts (slot taken, late payment,
// terminal state) 409, everything else 500.
func respondBookingError(c *gin.Context, err error) {
	switch booking.ErrCode(err) {
	case booking.CodeValidation:
		utils.JSONError(c, http.StatusBadRequest, "invalid request", err.Error())
	case booking.CodeNotFound:
		utils.JSONError(c, http.StatusNotFound, "not found", err.Error())
	case booking.CodeSlotConflict:
		utils.JSONError(c, http.StatusConflict, "slot no longer available", err.Error())
	case booking.CodeTimeoutExceeded:
		utils.JSONError(c, http.StatusConflict, "payment window expired", err.Error())
	case booking.CodeAlreadyTerminal:
		utils.JSONError(c, http.StatusConflict, "session already finalized", err.Error())
	default:
		utils.JSONError(c, http.StatusInternalServerError, "internal error", err.Error())
	}
}
