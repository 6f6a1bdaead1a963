// Package backend provides the answer-generation backends used by the
// reconciliation engine. A Backend turns a prompt plus the expected answer
// schema into raw text that should, but need not, contain matching JSON.
package backend

import (
	"context"

	"github.com/knwanna/universal-reconciliation-service/pkg/schema"
)

// Backend generates raw answer text for a prompt.
//
// Failures are reported as *errors.BackendError so callers can tell
// timeouts, exhausted quota, bad credentials and upstream faults apart.
type Backend interface {
	Generate(ctx context.Context, prompt string, d schema.Descriptor) (string, error)
}

// Func adapts an ordinary function to the Backend interface.
type Func func(ctx context.Context, prompt string, d schema.Descriptor) (string, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, prompt string, d schema.Descriptor) (string, error) {
	return f(ctx, prompt, d)
}

// Name returns a backend's display name, or "custom" when it has none.
func Name(b Backend) string {
	if n, ok := b.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "custom"
}
