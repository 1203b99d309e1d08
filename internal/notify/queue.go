package notify

import (
	"context"
	"encoding/json"
	"time"

	"shapeup/internal/logger"
	"shapeup/internal/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	queueKey  = "notifications"
	failedKey = "notifications:failed"
)

// Queue pushes notifications onto a Redis list for the Worker to deliver.
type Queue struct {
	redis *redis.Client
	now   func() time.Time
}

func NewQueue(rdb *redis.Client) *Queue {
	return &Queue{redis: rdb, now: time.Now}
}

// Notify enqueues and never fails the caller. Errors are logged.
func (q *Queue) Notify(ctx context.Context, recipientID, name, description string) {
	if err := q.Enqueue(ctx, recipientID, name, description); err != nil {
		metrics.RecordNotification("enqueue", "failed")
		logger.Warn("notification dropped",
			"recipient_id", recipientID,
			"name", name,
			"error", err,
		)
		return
	}
	metrics.RecordNotification("enqueue", "success")
}

func (q *Queue) Enqueue(ctx context.Context, recipientID, name, description string) error {
	job := Job{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Name:        name,
		Description: description,
		Created:     q.now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	length, err := q.redis.LPush(ctx, queueKey, data).Result()
	if err != nil {
		return err
	}
	metrics.NotificationQueueLength.Set(float64(length))

	logger.Debug("notification queued", "recipient_id", recipientID, "name", name)
	return nil
}

func (q *Queue) QueueLength(ctx context.Context) int64 {
	length, _ := q.redis.LLen(ctx, queueKey).Result()
	return length
}
