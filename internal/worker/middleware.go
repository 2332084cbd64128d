package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	reporting "github.com/menutalk/kiku/internal/sentry"
	"github.com/menutalk/kiku/internal/telemetry"
)

// taskSessionID peeks at the payload for tagging; tasks without one get "".
func taskSessionID(t *asynq.Task) string {
	var p struct {
		SessionID string `json:"session_id"`
	}
	_ = json.Unmarshal(t.Payload(), &p)
	return p.SessionID
}

// OTelMiddleware wraps asynq job handlers with OpenTelemetry spans.
func OTelMiddleware(h asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		tracer := telemetry.Tracer("worker")

		taskID, _ := asynq.GetTaskID(ctx)
		queueName, _ := asynq.GetQueueName(ctx)

		ctx, span := tracer.Start(ctx, fmt.Sprintf("job:%s", t.Type()), trace.WithSpanKind(trace.SpanKindConsumer))
		defer span.End()

		span.SetAttributes(
			attribute.String("job.id", taskID),
			attribute.String("job.type", t.Type()),
			attribute.String("job.queue", queueName),
			attribute.String("session.id", taskSessionID(t)),
		)

		err := h.ProcessTask(ctx, t)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	})
}

// SentryMiddleware reports failed jobs and panics to Sentry.
func SentryMiddleware(h asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) (err error) {
		taskID, _ := asynq.GetTaskID(ctx)
		retryCount, _ := asynq.GetRetryCount(ctx)

		hub := sentry.CurrentHub().Clone()
		hub.Scope().SetTag("task_type", t.Type())
		hub.Scope().SetTag("task_id", taskID)
		hub.Scope().SetTag("session_id", taskSessionID(t))
		hub.Scope().SetTag("retry_count", strconv.Itoa(retryCount))

		ctx = sentry.SetHubOnContext(ctx, hub)

		defer func() {
			if r := recover(); r != nil {
				hub.Recover(r)
				err = fmt.Errorf("task %s panicked: %v", t.Type(), r)
			}
		}()

		err = h.ProcessTask(ctx, t)
		if reporting.Reportable(err) {
			hub.CaptureException(err)
		}
		return err
	})
}
