package groq

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/tawandam/policy-assistant/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "groq status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("groq %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("groq %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

func classifyGroqError(err error) resilience.Verdict {
	if err == nil {
		return resilience.Verdict{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Verdict{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.Verdict{Retryable: true, RecordFailure: true}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if isRetryableHTTPStatus(statusErr.StatusCode) {
			return resilience.Verdict{Retryable: true, RecordFailure: true}
		}
		return resilience.Verdict{Retryable: false, RecordFailure: false}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.Verdict{Retryable: true, RecordFailure: true}
	}

	return resilience.Verdict{Retryable: false, RecordFailure: true}
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
