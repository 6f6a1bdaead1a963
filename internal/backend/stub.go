package backend

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/knwanna/universal-reconciliation-service/pkg/errors"
	"github.com/knwanna/universal-reconciliation-service/pkg/schema"
)

// RespondFunc produces a stub answer for a prompt.
type RespondFunc func(prompt string, d schema.Descriptor) (string, error)

// Stub is a deterministic in-memory Backend for tests and offline runs.
// It counts calls and records prompts.
type Stub struct {
	respond RespondFunc
	delay   time.Duration
	calls   atomic.Int64

	mu      sync.Mutex
	prompts []string
}

// NewStub returns a stub answering with respond.
func NewStub(respond RespondFunc) *Stub {
	return &Stub{respond: respond}
}

// StaticStub returns a stub that always answers text.
func StaticStub(text string) *Stub {
	return NewStub(func(string, schema.Descriptor) (string, error) {
		return text, nil
	})
}

// FailingStub returns a stub that always fails with err.
func FailingStub(err error) *Stub {
	return NewStub(func(string, schema.Descriptor) (string, error) {
		return "", err
	})
}

// WithDelay makes every call wait d before answering, honoring cancellation.
func (s *Stub) WithDelay(d time.Duration) *Stub {
	s.delay = d
	return s
}

// Name returns "stub".
func (s *Stub) Name() string { return "stub" }

// Generate records the call and returns the stub answer.
func (s *Stub) Generate(ctx context.Context, prompt string, d schema.Descriptor) (string, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return "", errors.NewBackendError("stub", errors.BackendTimeout, "deadline exceeded", ctx.Err())
		}
	}
	if err := ctx.Err(); err != nil {
		return "", errors.NewBackendError("stub", errors.BackendTimeout, "deadline exceeded", err)
	}
	return s.respond(prompt, d)
}

// Calls returns the number of Generate calls so far.
func (s *Stub) Calls() int {
	return int(s.calls.Load())
}

// Prompts returns a copy of every prompt received, in arrival order.
func (s *Stub) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}
