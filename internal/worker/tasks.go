package worker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TypeEnrichBatch = "enrich:batch"
)

// enrichTimeout bounds one batch of image searches.
const enrichTimeout = 5 * time.Minute

// EnrichBatchPayload is the payload for image enrichment tasks
type EnrichBatchPayload struct {
	SessionID  string   `json:"session_id"`
	Generation int64    `json:"generation"`
	DishIDs    []string `json:"dish_ids"`
}

// NewEnrichBatchTask creates a new image enrichment task. Tasks are never
// retried: a failed search simply leaves the dish without a photo.
func NewEnrichBatchTask(payload EnrichBatchPayload) (*asynq.Task, error) {
	if payload.SessionID == "" || len(payload.DishIDs) == 0 {
		return nil, fmt.Errorf("enrich task needs a session and at least one dish")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeEnrichBatch, data, asynq.MaxRetry(0), asynq.Timeout(enrichTimeout)), nil
}
