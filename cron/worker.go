package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"confiido/config"
	"confiido/models"
	"confiido/services/booking"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	robfig "github.com/robfig/cron/v3"
)

const TypeSessionExpire = "session:expire"

func redisOpts() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// AsynqScheduler enqueues one delayed expiry task per created session, fired
// at the session's payment deadline.
type AsynqScheduler struct {
	client *asynq.Client
}

func NewAsynqScheduler() *AsynqScheduler {
	return &AsynqScheduler{client: asynq.NewClient(redisOpts())}
}

func (s *AsynqScheduler) ScheduleExpiry(ctx context.Context, bookingID, sessionID string, at time.Time) error {
	b, err := json.Marshal(models.ExpiryPayload{BookingID: bookingID, SessionID: sessionID})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeSessionExpire, b)
	_, err = s.client.EnqueueContext(ctx, task, asynq.ProcessAt(at))
	return err
}

func (s *AsynqScheduler) Close() error {
	return s.client.Close()
}

// InitExpiryWorker runs the async worker in background.
func InitExpiryWorker(canceller booking.SessionCanceller) {
	srv := asynq.NewServer(
		redisOpts(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeSessionExpire, handleExpireTask(canceller))

	// Start Redis health monitor
	go monitorRedisConnection()

	// Start async worker with retry logic
	go func() {
		log.Println("[ExpiryWorker] 🚀 Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[ExpiryWorker] ❌ Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[ExpiryWorker] ❗ Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

func handleExpireTask(canceller booking.SessionCanceller) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.ExpiryPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[ExpiryHandler] 🔴 Invalid payload: %v", err)
			return err
		}

		s, err := canceller.CancelExpiredSession(ctx, p.BookingID, p.SessionID, booking.TimeoutReason, booking.SystemCancelledBy)
		if err != nil {
			// A session paid or cancelled before the task fires is settled;
			// the task must not retry.
			switch booking.ErrCode(err) {
			case booking.CodeNotFound, booking.CodeAlreadyTerminal:
				log.Printf("[ExpiryHandler] ⏭ Session %s already settled, skipping", p.SessionID)
				return nil
			}
			log.Printf("[ExpiryHandler] ❌ Failed to expire session %s: %v", p.SessionID, err)
			return err
		}

		log.Printf("[ExpiryHandler] ⏰ Session %s in booking %s now %s", s.ID, s.BookingID, s.Status)
		return nil
	}
}

// StartSweepCron runs a per-minute sweep as a backstop for queued expiry
// tasks lost to Redis outages. Returns the cron so main can Stop it.
func StartSweepCron(engine *booking.TimeoutEngine) *robfig.Cron {
	c := robfig.New()
	c.AddFunc("* * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := engine.SweepExpired(ctx, ""); err != nil {
			log.Printf("[SweepCron] ❌ Sweep failed: %v", err)
		}
	})
	c.Start()
	return c
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[ExpiryWorker] ⚠️ Redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
