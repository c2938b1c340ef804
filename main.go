// File: confiido/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"confiido/config"
	"confiido/cron"
	"confiido/database"
	availabilityRepo "confiido/database/repository/availability"
	sessionRepo "confiido/database/repository/session"
	"confiido/handlers"
	"confiido/models"
	"confiido/routes"
	"confiido/services/booking"
	"confiido/services/notification"
	"confiido/services/tracker"
	"confiido/utils"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.InitTrackerCache()
	utils.FirebaseInit()
	stripe.Key = config.AppConfig.StripeKey

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())

	// repositories.
	sessRepo := sessionRepo.NewMongoSessionRepo()
	availRepo := availabilityRepo.NewMongoAvailabilityRepo()
	if err := sessRepo.EnsureIndexes(); err != nil {
		logger.Sugar().Fatalf("main: failed to ensure session indexes: %v", err)
	}
	if err := availRepo.EnsureIndexes(); err != nil {
		logger.Sugar().Fatalf("main: failed to ensure availability indexes: %v", err)
	}

	// services.
	clock := clockwork.NewRealClock()
	granularity := config.AppConfig.SlotGranularityMinutes
	slotCalc := booking.NewSlotCalculator(availRepo, sessRepo, granularity)
	timeoutEngine := booking.NewTimeoutEngine(clock, config.PaymentWindow(), sessRepo)

	notificationService, err := notification.NewDefaultNotificationService(
		notification.NewRedisTokenSource(utils.GetCacheClient()),
		logger,
	)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize notification service: %v", err)
	}

	expiryScheduler := cron.NewAsynqScheduler()
	defer expiryScheduler.Close()

	reservationService := &booking.DefaultReservationService{
		Repo:      sessRepo,
		Slots:     slotCalc,
		Timeouts:  timeoutEngine,
		Clock:     clock,
		Notifier:  notificationService,
		Scheduler: expiryScheduler,
	}
	timeoutEngine.Canceller = reservationService

	reconciliationService := &booking.ReconciliationService{
		Repo:      sessRepo,
		Engine:    timeoutEngine,
		Canceller: reservationService,
	}

	paymentProcessor := booking.NewStripePaymentProcessor(logger)

	// Countdown tracker mirroring every live payment window, persisted so a
	// restart resumes mid-countdown.
	trackerCtx, stopTracker := context.WithCancel(context.Background())
	defer stopTracker()
	countdowns, err := tracker.NewTracker(
		trackerCtx,
		tracker.NewRedisStore(utils.GetTrackerCacheClient(), ""),
		reconciliationService,
		clock,
		logger,
	)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize countdown tracker: %v", err)
	}
	reservationService.CreatedHook = func(ctx context.Context, s *models.Session) {
		countdowns.AddTimeout(ctx, s.BookingID, s.ID, s.TimeoutAt)
	}
	go countdowns.Run(trackerCtx)

	// Background expiry: delayed task per session, plus a per-minute sweep
	// backstop.
	cron.InitExpiryWorker(reservationService)
	sweep := cron.StartSweepCron(timeoutEngine)
	defer sweep.Stop()

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		Booking:      handlers.NewBookingHandler(reservationService, paymentProcessor, sessRepo),
		Timeouts:     handlers.NewTimeoutHandler(timeoutEngine, reconciliationService),
		Slots:        handlers.NewSlotsHandler(slotCalc, utils.GetCacheClient()),
		Availability: handlers.NewAvailabilityHandler(availRepo),
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
