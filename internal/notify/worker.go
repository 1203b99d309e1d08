package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"shapeup/internal/logger"
	"shapeup/internal/metrics"

	"github.com/redis/go-redis/v9"
)

const maxTries = 3

// Worker moves queued notifications into the inbox table.
type Worker struct {
	redis       *redis.Client
	repo        Repository
	pollTimeout time.Duration
	retryDelay  time.Duration
}

func NewWorker(rdb *redis.Client, repo Repository) *Worker {
	return &Worker{
		redis:       rdb,
		repo:        repo,
		pollTimeout: 2 * time.Second,
		retryDelay:  5 * time.Second,
	}
}

func (w *Worker) Start(ctx context.Context) {
	logger.Info("notification worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("notification worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *Worker) processNext(ctx context.Context) {
	result, err := w.redis.BRPop(ctx, w.pollTimeout, queueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			logger.Warn("notification queue poll failed", "error", err)
		}
		return
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Error("bad notification payload", "error", err)
		return
	}

	job.Tries++
	if err := w.deliver(ctx, job); err != nil {
		logger.Warn("notification delivery failed",
			"id", job.ID,
			"recipient_id", job.RecipientID,
			"attempt", job.Tries,
			"error", err,
		)

		if job.Tries < maxTries {
			time.Sleep(w.retryDelay)
			data, _ := json.Marshal(job)
			w.redis.LPush(context.Background(), queueKey, data)
		} else {
			w.saveFailed(job, err)
		}
		metrics.RecordNotification("deliver", "failed")
		return
	}

	metrics.RecordNotification("deliver", "success")
	logger.Debug("notification delivered", "id", job.ID, "recipient_id", job.RecipientID)
}

func (w *Worker) deliver(ctx context.Context, job Job) error {
	return w.repo.Insert(ctx, &Notification{
		ID:          job.ID,
		RecipientID: job.RecipientID,
		Name:        job.Name,
		Description: job.Description,
		CreatedAt:   job.Created,
	})
}

func (w *Worker) saveFailed(job Job, err error) {
	failed := map[string]any{
		"job":   job,
		"error": err.Error(),
	}
	data, _ := json.Marshal(failed)
	w.redis.LPush(context.Background(), failedKey, data)
	logger.Error("notification moved to failed queue", "id", job.ID, "recipient_id", job.RecipientID)
}
