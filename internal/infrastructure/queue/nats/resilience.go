package nats

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/tawandam/policy-assistant/internal/core/domain"
	"github.com/tawandam/policy-assistant/internal/infrastructure/resilience"
)

func classifyNATSError(err error) resilience.Verdict {
	if err == nil {
		return resilience.Verdict{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Verdict{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.Verdict{Retryable: true, RecordFailure: true}
	}
	if errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrDisconnected) {
		return resilience.Verdict{Retryable: true, RecordFailure: true}
	}

	return resilience.Verdict{Retryable: false, RecordFailure: true}
}

func wrapTemporaryIfNeeded(err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	verdict := classifyNATSError(err)
	if verdict.Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, "nats publish", err)
	}
	return err
}
