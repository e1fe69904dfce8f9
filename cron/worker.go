package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"rentathing/config"
	"rentathing/models"
	"rentathing/services/chat"
	"rentathing/services/tasks"
)

// QueueRedisOpt is the asynq connection for the redelivery queue.
func QueueRedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// InitRedeliveryWorker runs the chat redelivery worker in the background and
// returns the server so the caller can shut it down.
func InitRedeliveryWorker(feed chat.Feed, logger *zap.Logger) *asynq.Server {
	srv := asynq.NewServer(
		QueueRedisOpt(),
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeRedeliverMessage, HandleRedelivery(feed, logger))

	go monitorRedisConnection(logger)

	go func() {
		logger.Info("redelivery worker starting")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				logger.Error("redelivery worker failed to start",
					zap.Int("attempt", attempts), zap.Int("maxAttempts", maxAttempts), zap.Error(err))

				if attempts == maxAttempts {
					logger.Fatal("redelivery worker: max retry attempts reached")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
	return srv
}

// HandleRedelivery appends the queued message unless an identical one made
// it into the feed already.
func HandleRedelivery(feed chat.Feed, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p tasks.RedeliveryPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("redelivery: invalid payload", zap.Error(err))
			return fmt.Errorf("decode redelivery payload: %v: %w", err, asynq.SkipRetry)
		}

		existing, err := feed.List(ctx, p.ConversationID)
		if err != nil {
			return err
		}
		for _, m := range existing {
			if sameAnnouncement(m, p.Message) {
				logger.Info("redelivery: message already present",
					zap.String("conversationID", p.ConversationID), zap.String("bookingID", p.Message.BookingID))
				return nil
			}
		}

		if _, err := feed.Append(ctx, p.ConversationID, p.Message); err != nil {
			logger.Warn("redelivery: append failed, will retry",
				zap.String("conversationID", p.ConversationID), zap.Error(err))
			return err
		}
		logger.Info("redelivery: message appended",
			zap.String("conversationID", p.ConversationID),
			zap.String("bookingID", p.Message.BookingID),
			zap.String("event", string(p.Message.Event)))
		return nil
	}
}

func sameAnnouncement(a, b models.Message) bool {
	return a.Kind == b.Kind && a.BookingID == b.BookingID && a.Event == b.Event &&
		a.Sender == b.Sender && a.Text == b.Text
}

// monitorRedisConnection pings the queue's Redis periodically to surface outages.
func monitorRedisConnection(logger *zap.Logger) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redelivery worker: redis connection lost", zap.Error(err))
		}
		time.Sleep(10 * time.Second)
	}
}
