package resilience

import "time"

type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64

	BreakerEnabled      bool
	BreakerMinRequests  uint32
	BreakerFailureRatio float64
	BreakerOpenTimeout  time.Duration
	BreakerProbeCalls   uint32
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     400 * time.Millisecond,
		BackoffFactor:  2.0,

		BreakerEnabled:      true,
		BreakerMinRequests:  10,
		BreakerFailureRatio: 0.5,
		BreakerOpenTimeout:  30 * time.Second,
		BreakerProbeCalls:   2,
	}
}

func (p Policy) normalize() Policy {
	out := p
	def := DefaultPolicy()

	if out.MaxAttempts <= 0 {
		out.MaxAttempts = def.MaxAttempts
	}
	if out.InitialBackoff <= 0 {
		out.InitialBackoff = def.InitialBackoff
	}
	if out.MaxBackoff < out.InitialBackoff {
		out.MaxBackoff = out.InitialBackoff
	}
	if out.BackoffFactor < 1.0 {
		out.BackoffFactor = def.BackoffFactor
	}
	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if out.BreakerProbeCalls == 0 {
		out.BreakerProbeCalls = def.BreakerProbeCalls
	}
	return out
}
