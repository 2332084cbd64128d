package worker

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/url"
	"strings"

	"github.com/hibiken/asynq"
)

// ParseRedisURL parses a Redis URL and returns asynq.RedisClientOpt
func ParseRedisURL(redisURL string) (asynq.RedisClientOpt, error) {
	// Handle plain host:port format
	if !strings.HasPrefix(redisURL, "redis://") && !strings.HasPrefix(redisURL, "rediss://") {
		return asynq.RedisClientOpt{Addr: redisURL}, nil
	}

	u, err := url.Parse(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	opt := asynq.RedisClientOpt{
		Addr: u.Host,
	}

	if u.User != nil {
		opt.Username = u.User.Username()
		if password, ok := u.User.Password(); ok {
			opt.Password = password
		}
	}

	if u.Scheme == "rediss" {
		opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	return opt, nil
}

// NewClient creates a new Asynq client for enqueueing tasks
func NewClient(redisURL string) *asynq.Client {
	opt, err := ParseRedisURL(redisURL)
	if err != nil {
		panic("failed to parse Redis URL: " + err.Error())
	}
	return asynq.NewClient(opt)
}

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer schedules enrichment batches for the worker.
type Enqueuer struct {
	client taskEnqueuer
}

// NewEnqueuer wraps an asynq client.
func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// EnqueueEnrichment schedules image search for the given dishes.
func (e *Enqueuer) EnqueueEnrichment(ctx context.Context, sessionID string, generation int64, dishIDs []string) error {
	task, err := NewEnrichBatchTask(EnrichBatchPayload{
		SessionID:  sessionID,
		Generation: generation,
		DishIDs:    dishIDs,
	})
	if err != nil {
		return err
	}

	info, err := e.client.EnqueueContext(ctx, task)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Enrichment enqueued", "task_id", info.ID, "session_id", sessionID, "dishes", len(dishIDs))
	return nil
}
