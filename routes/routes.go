package routes

import (
	"net/http"
	"time"

	"confiido/handlers"
	"confiido/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterSlotRoutes registers slot discovery endpoints. Slot listings are
// authenticated so expired reservations can be swept for the caller before
// availability is computed, but require no role beyond a valid token.
func RegisterSlotRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/slots")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.GET("", hb.Slots.GetSlots)
		api.GET("/consecutive", hb.Slots.GetConsecutiveSlots)
	}
}

// RegisterBookingRoutes sets up the endpoints for the reservation engine.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/bookings")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.POST("", hb.Booking.CreateBooking)
		api.GET("", hb.Booking.ListBookings)
		api.PUT("/:id/complete-payment", hb.Booking.CompletePayment)
		api.PUT("/:id/cancel-expired-session", hb.Booking.CancelExpiredSession)
		api.GET("/:id/payment-intent", hb.Booking.GetPaymentIntent)

		api.GET("/expired/check", hb.Timeouts.CheckExpired)
		api.POST("/timeout/sync", hb.Timeouts.SyncTimeoutState)
		api.POST("/timeout/status", hb.Timeouts.TimeoutStatus)
	}
}

// RegisterAvailabilityRoutes registers mentor availability template endpoints.
func RegisterAvailabilityRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/availability")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.PUT("", hb.Availability.SetupAvailability)
		api.GET("/:mentorId", hb.Availability.GetAvailability)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Hi, I'm Confiido"})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimitMiddleware())

	RegisterHealthRoute(r)
	RegisterSlotRoutes(r, hb)
	RegisterBookingRoutes(r, hb)
	RegisterAvailabilityRoutes(r, hb)
}
