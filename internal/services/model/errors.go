package model

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/menutalk/kiku/internal/errors"
)

// Failure kinds reported in the upstream error code.
const (
	KindRateLimit   = "rate_limit"
	KindCredit      = "credit_exhausted"
	KindServer      = "server_error"
	KindClient      = "client_error"
	KindTimeout     = "timeout"
	KindEmpty       = "empty_response"
	KindUnavailable = "unavailable"
)

// StatusError is a non-2xx answer from a provider's HTTP API.
type StatusError struct {
	Provider   ProviderType
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error: status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// errEmptyResponse means the provider answered 2xx with no usable text.
var errEmptyResponse = stderrors.New("provider returned no candidates")

// Classify maps a provider failure onto one of the Kind constants.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	if stderrors.Is(err, errEmptyResponse) {
		return KindEmpty
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var statusErr *StatusError
	if stderrors.As(err, &statusErr) {
		return classifyStatus(statusErr.StatusCode)
	}
	if code := sdkStatus(err); code != 0 {
		return classifyStatus(code)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "status 429"), strings.Contains(msg, "rate limit"), strings.Contains(msg, "too many requests"):
		return KindRateLimit
	case strings.Contains(msg, "status 402"), strings.Contains(msg, "insufficient credit"), strings.Contains(msg, "billing"):
		return KindCredit
	case strings.Contains(msg, "status 5"), strings.Contains(msg, "server error"), strings.Contains(msg, "overloaded"):
		return KindServer
	case strings.Contains(msg, "status 4"), strings.Contains(msg, "unauthorized"), strings.Contains(msg, "forbidden"):
		return KindClient
	}
	return KindUnavailable
}

func classifyStatus(code int) string {
	switch {
	case code == http.StatusTooManyRequests:
		return KindRateLimit
	case code == http.StatusPaymentRequired:
		return KindCredit
	case code >= 500:
		return KindServer
	case code >= 400:
		return KindClient
	}
	return KindUnavailable
}

// Upstream wraps a provider failure as UPSTREAM_UNAVAILABLE. The kind ends
// up in the error code so clients can tell rate limits from outages.
func Upstream(provider ProviderType, err error) error {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return err
	}

	kind := Classify(err)
	code := "MODEL_" + strings.ToUpper(kind)
	msg := fmt.Sprintf("%s request failed (%s)", provider, strings.ReplaceAll(kind, "_", " "))
	return errors.NewUpstreamError(msg, code, err)
}
