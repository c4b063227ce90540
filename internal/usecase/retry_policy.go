package usecase

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/user/bizanalyzer/internal/entity"
)

const (
	DefaultMaxAttempts = 3
	defaultBaseDelay   = 1 * time.Second
	defaultMaxDelay    = 30 * time.Second
	jitterFactor       = 0.2 // +/- 20%
)

// DecisionKind is the verdict of the retry policy for one attempt.
type DecisionKind int

const (
	DecisionSucceeded DecisionKind = iota
	DecisionRetry
	DecisionFailed
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionSucceeded:
		return "succeeded"
	case DecisionRetry:
		return "retry"
	case DecisionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Decision tells the controller what to do with a request after an attempt.
type Decision struct {
	Kind       DecisionKind
	NewSession bool
	Backoff    time.Duration
	Cause      error
}

// RetryPolicy decides between retrying and terminating a request, and whether
// the next attempt needs a fresh egress identity.
type RetryPolicy struct {
	maxAttempts  int
	baseDelay    time.Duration
	maxDelay     time.Duration
	newSessionID func() string
	jitter       func() float64
}

// RetryOption configures a RetryPolicy.
type RetryOption func(*RetryPolicy)

// WithBackoff sets the exponential backoff bounds.
func WithBackoff(base, max time.Duration) RetryOption {
	return func(p *RetryPolicy) {
		p.baseDelay = base
		p.maxDelay = max
	}
}

// WithSessionIDs overrides the session id generator.
func WithSessionIDs(gen func() string) RetryOption {
	return func(p *RetryPolicy) {
		p.newSessionID = gen
	}
}

// WithJitter overrides the jitter source; it must return values in [0,1).
func WithJitter(j func() float64) RetryOption {
	return func(p *RetryPolicy) {
		p.jitter = j
	}
}

// NewRetryPolicy creates a policy with the given attempt ceiling.
func NewRetryPolicy(maxAttempts int, opts ...RetryOption) *RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	p := &RetryPolicy{
		maxAttempts:  maxAttempts,
		baseDelay:    defaultBaseDelay,
		maxDelay:     defaultMaxDelay,
		newSessionID: uuid.NewString,
		jitter:       rand.Float64,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxAttempts returns the attempt ceiling.
func (p *RetryPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// OnAttemptResult records one finished attempt on req and returns the decision.
// It increments req.AttemptCount and may reassign req.SessionID.
func (p *RetryPolicy) OnAttemptResult(req *entity.CrawlRequest, attemptErr error) Decision {
	req.AttemptCount++

	if attemptErr == nil {
		return Decision{Kind: DecisionSucceeded}
	}
	if !entity.IsRetryable(attemptErr) || req.AttemptCount >= p.maxAttempts {
		return Decision{Kind: DecisionFailed, Cause: attemptErr}
	}

	var newSession bool
	switch {
	case errors.Is(attemptErr, entity.ErrTargetCrashed):
		// The browser context or identity is assumed poisoned.
		newSession = true
	case errors.Is(attemptErr, entity.ErrAnalysisUnavailable):
		// The model provider does not see our egress identity.
		newSession = false
	default:
		// Timeouts and other render failures stay on the session once, then rotate.
		newSession = req.AttemptCount >= 2
	}
	if newSession {
		req.SessionID = p.newSessionID()
	}

	return Decision{
		Kind:       DecisionRetry,
		NewSession: newSession,
		Backoff:    p.backoff(req.AttemptCount),
		Cause:      attemptErr,
	}
}

// backoff is exponential in the attempt number with +/- jitterFactor jitter.
func (p *RetryPolicy) backoff(attempt int) time.Duration {
	if p.baseDelay <= 0 {
		return 0
	}
	d := p.baseDelay
	for i := 1; i < attempt && d < p.maxDelay; i++ {
		d *= 2
	}
	if p.maxDelay > 0 && d > p.maxDelay {
		d = p.maxDelay
	}
	jitter := (p.jitter()*2 - 1) * jitterFactor
	return time.Duration(float64(d) * (1 + jitter))
}
