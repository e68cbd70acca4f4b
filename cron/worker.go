package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"slothold/config"
	"slothold/models"
	"slothold/services/notification"
	"slothold/utils"

	"firebase.google.com/go/v4/messaging"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

// InitNotifyWorker runs the async notification worker in background.
func InitNotifyWorker() {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(notification.TypeHolderNotify, handleHolderNotifyTask)

	// Start Redis health monitor
	go monitorRedisConnection()

	// Start async worker with retry logic
	go func() {
		log.Println("[NotifyWorker] Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[NotifyWorker] Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[NotifyWorker] Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

func handleHolderNotifyTask(ctx context.Context, task *asynq.Task) error {
	var p models.HolderNotifyPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		log.Printf("[NotifyHandler] Invalid payload: %v", err)
		return err
	}

	log.Printf("[NotifyHandler] Delivering outcome %q to %s: %s", p.Outcome, p.Holder.String(), p.Reason)

	token := p.Metadata["fcmToken"]
	if token == "" {
		// No push target for this holder; nothing to deliver.
		return nil
	}

	title, body := renderOutcome(p)
	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: map[string]string{
			"outcome": p.Outcome,
			"reason":  p.Reason,
		},
	}

	if _, err := utils.FCMClient.Send(ctx, msg); err != nil {
		log.Printf("[NotifyHandler] Failed to send FCM message: %v", err)
		return err
	}
	return nil
}

func renderOutcome(p models.HolderNotifyPayload) (title, body string) {
	switch p.Outcome {
	case "won":
		return "Your slot is confirmed", "Your claim on the appointment slot was confirmed. Complete checkout to finish booking."
	case "lost":
		return "Slot no longer available", p.Reason
	default:
		return "Reservation update", p.Reason
	}
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
			log.Printf("[NotifyWorker] Redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
