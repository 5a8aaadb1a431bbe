package ai

import (
	"context"
	"errors"
	"net/http"

	"character-chat/backend/internal/transcript"
	"character-chat/backend/pkg/resilience"
)

// BreakerCompleter fails fast while the provider keeps failing
type BreakerCompleter struct {
	next    Completer
	breaker *resilience.CircuitBreaker
}

func NewBreakerCompleter(next Completer, breaker *resilience.CircuitBreaker) *BreakerCompleter {
	return &BreakerCompleter{next: next, breaker: breaker}
}

func (b *BreakerCompleter) Complete(ctx context.Context, turns []transcript.Turn) (string, error) {
	var reply string
	err := b.breaker.ExecuteClassified(func() error {
		var err error
		reply, err = b.next.Complete(ctx, turns)
		return err
	}, IsAvailabilityFailure)
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return "", &UpstreamError{Message: "completion service unavailable: circuit open", Err: err}
	}
	return reply, err
}

// Breaker exposes the wrapped breaker for health reporting
func (b *BreakerCompleter) Breaker() *resilience.CircuitBreaker {
	return b.breaker
}

// IsAvailabilityFailure reports whether err says the provider is unreachable
// or overloaded: a transport error, a 5xx or a 429. Caller cancellations and
// request-specific 4xx answers do not count.
func IsAvailabilityFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var upstream *UpstreamError
	if errors.As(err, &upstream) && upstream.StatusCode != 0 {
		return upstream.StatusCode >= http.StatusInternalServerError ||
			upstream.StatusCode == http.StatusTooManyRequests
	}
	return true
}
