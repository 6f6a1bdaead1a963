package backend

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/knwanna/universal-reconciliation-service/pkg/errors"
	"github.com/knwanna/universal-reconciliation-service/pkg/schema"
)

// Limits bounds calls to a backend.
type Limits struct {
	// Timeout caps one Generate call. Zero disables the cap.
	Timeout time.Duration
	// RequestsPerSecond is the steady call rate. Zero disables limiting.
	RequestsPerSecond float64
	// Burst is the limiter bucket size; values below 1 become 1.
	Burst int
}

// Limited wraps a Backend with a per-call timeout and a token-bucket limiter
// shared by every caller.
type Limited struct {
	next    Backend
	limits  Limits
	limiter *rate.Limiter
}

// WithLimits wraps next with the given limits.
func WithLimits(next Backend, limits Limits) *Limited {
	l := &Limited{next: next, limits: limits}
	if limits.RequestsPerSecond > 0 {
		burst := limits.Burst
		if burst < 1 {
			burst = 1
		}
		l.limiter = rate.NewLimiter(rate.Limit(limits.RequestsPerSecond), burst)
	}
	return l
}

// Name returns the wrapped backend's name.
func (l *Limited) Name() string { return Name(l.next) }

// Generate waits for a limiter token and calls the wrapped backend. A call
// that outlives the timeout is abandoned and reported as a timeout even if
// the wrapped backend ignores its context.
func (l *Limited) Generate(ctx context.Context, prompt string, d schema.Descriptor) (string, error) {
	if l.limits.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.limits.Timeout)
		defer cancel()
	}

	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return "", errors.NewBackendError(Name(l.next), errors.BackendTimeout, "no rate limit token before deadline", err)
		}
	}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := l.next.Generate(ctx, prompt, d)
		done <- result{text: text, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return "", l.wrap(ctx, res.err)
		}
		return res.text, nil
	case <-ctx.Done():
		return "", l.wrap(ctx, ctx.Err())
	}
}

func (l *Limited) wrap(ctx context.Context, err error) error {
	var backendErr *errors.BackendError
	if errors.As(err, &backendErr) {
		return err
	}
	if ctx.Err() != nil {
		msg := "deadline exceeded"
		if errors.Is(ctx.Err(), context.Canceled) {
			msg = "request canceled"
		}
		return errors.NewBackendError(Name(l.next), errors.BackendTimeout, msg, err)
	}
	return errors.NewBackendError(Name(l.next), errors.BackendUpstream, err.Error(), err)
}
