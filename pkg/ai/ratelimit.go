package ai

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/common"
)

const (
	// DefaultRequestsPerMinute is the provider call budget applied when no
	// explicit rate limit is configured.
	DefaultRequestsPerMinute = 20
	// DefaultAcquireTimeout bounds how long a call waits for a rate-limit
	// permit before failing with a RateLimitError.
	DefaultAcquireTimeout = 30 * time.Second
)

// CallLimiter is a token-bucket rate limiter shared by every external
// model call a provider makes. Permits refill continuously at the
// configured per-minute rate; a call that cannot get a permit within the
// acquire timeout fails with a common.RateLimitError so the caller's
// retry-with-backoff loop can take over.
//
// A nil *CallLimiter is valid and never limits, which keeps tests and
// offline fakes free of throttling.
type CallLimiter struct {
	limiter *rate.Limiter
	timeout time.Duration
}

// NewCallLimiter creates a limiter admitting perMinute calls per minute
// with the given burst capacity. Non-positive perMinute or burst fall
// back to the defaults (burst defaults to perMinute). A non-positive
// timeout falls back to DefaultAcquireTimeout.
func NewCallLimiter(perMinute int, burst int, timeout time.Duration) *CallLimiter {
	if perMinute <= 0 {
		perMinute = DefaultRequestsPerMinute
	}
	if burst <= 0 {
		burst = perMinute
	}
	if timeout <= 0 {
		timeout = DefaultAcquireTimeout
	}
	return &CallLimiter{
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst),
		timeout: timeout,
	}
}

// Acquire blocks until a permit is available, the acquire timeout
// elapses, or ctx ends. The capability name is only used to label the
// returned RateLimitError.
func (l *CallLimiter) Acquire(ctx context.Context, capability string) error {
	if l == nil {
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if err := l.limiter.Wait(waitCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &common.RateLimitError{Capability: capability, Timeout: l.timeout}
	}
	return nil
}
