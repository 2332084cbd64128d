package sentry

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/menutalk/kiku/internal/errors"
)

// Init initializes Sentry with the provided configuration.
// If DSN is empty, Sentry initialization is skipped and nil is returned.
func Init(dsn, env, serviceName, serviceVersion string) error {
	if dsn == "" {
		return nil
	}

	options := sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      env,
		ServerName:       serviceName,
		Release:          serviceVersion,
		AttachStacktrace: true,
		TracesSampleRate: 0.0, // tracing goes through OpenTelemetry
	}

	if err := sentry.Init(options); err != nil {
		return fmt.Errorf("failed to initialize Sentry: %w", err)
	}

	return nil
}

// Flush waits for all pending Sentry events to be sent.
// Call this during graceful shutdown.
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}

// Recover reports a panic to Sentry, flushes, and re-panics. It must be
// deferred directly.
func Recover() {
	if r := recover(); r != nil {
		sentry.CurrentHub().Recover(r)
		sentry.Flush(2 * time.Second)
		panic(r)
	}
}

// Reportable reports whether err is worth an event. Expected outcomes such
// as bad input, missing sessions, busy loads, unparseable model output or
// an unavailable upstream are not.
func Reportable(err error) bool {
	if err == nil {
		return false
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return !appErr.IsOperational
	}
	return true
}

// CaptureError sends err to the hub on ctx when it is reportable.
func CaptureError(ctx context.Context, err error) {
	if !Reportable(err) {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.CaptureException(err)
}
