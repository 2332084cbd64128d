package worker

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/menutalk/kiku/internal/session"
)

// BatchEnricher is the part of the session service the worker drives.
type BatchEnricher interface {
	EnrichBatch(ctx context.Context, sessionID string, generation int64, dishIDs []string) error
}

type EnrichmentProcessor struct {
	sessions BatchEnricher
	metrics  *WorkerMetrics
}

func NewEnrichmentProcessor(sessions BatchEnricher, metrics *WorkerMetrics) *EnrichmentProcessor {
	return &EnrichmentProcessor{sessions: sessions, metrics: metrics}
}

// HandleEnrichBatch searches photos for one revealed batch. Batches for a
// session that expired or was re-scanned are dropped quietly.
func (p *EnrichmentProcessor) HandleEnrichBatch(ctx context.Context, t *asynq.Task) error {
	start := time.Now()
	outcome := outcomeCompleted
	var payload EnrichBatchPayload
	defer func() {
		p.metrics.RecordJob(ctx, outcome, len(payload.DishIDs), time.Since(start))
	}()

	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		outcome = outcomeInvalid
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	slog.InfoContext(ctx, "Enriching batch",
		"session_id", payload.SessionID,
		"generation", payload.Generation,
		"dishes", len(payload.DishIDs),
	)

	err := p.sessions.EnrichBatch(ctx, payload.SessionID, payload.Generation, payload.DishIDs)
	switch {
	case err == nil:
		slog.InfoContext(ctx, "Batch enriched", "session_id", payload.SessionID)
		return nil
	case stderrors.Is(err, session.ErrStale), stderrors.Is(err, session.ErrNotFound):
		outcome = outcomeDropped
		slog.InfoContext(ctx, "Dropping enrichment for replaced session", "session_id", payload.SessionID, "reason", err)
		return nil
	default:
		outcome = outcomeFailed
		slog.ErrorContext(ctx, "Enrichment failed", "session_id", payload.SessionID, "error", err)
		return err
	}
}
