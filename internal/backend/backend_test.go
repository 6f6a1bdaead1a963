package backend

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/knwanna/universal-reconciliation-service/pkg/errors"
	"github.com/knwanna/universal-reconciliation-service/pkg/schema"
)

var previewSchema = schema.MustLookup(schema.OpPreview)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind errors.BackendKind
		code int
	}{
		{"unauthorized", genai.APIError{Code: http.StatusUnauthorized, Message: "bad key"}, errors.BackendUnauthorized, 401},
		{"forbidden", genai.APIError{Code: http.StatusForbidden}, errors.BackendUnauthorized, 403},
		{"quota", genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"}, errors.BackendQuotaExceeded, 429},
		{"upstream", genai.APIError{Code: http.StatusServiceUnavailable}, errors.BackendUpstream, 503},
		{"wrapped api error", fmt.Errorf("generate: %w", genai.APIError{Code: 500}), errors.BackendUpstream, 500},
		{"deadline", context.DeadlineExceeded, errors.BackendTimeout, 0},
		{"unknown", errors.New("connection reset by peer"), errors.BackendUpstream, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err)
			var be *errors.BackendError
			require.True(t, errors.As(err, &be))
			assert.Equal(t, tt.kind, be.Kind)
			assert.Equal(t, tt.code, be.StatusCode)
			assert.Equal(t, "gemini", be.Provider)
		})
	}
}

func TestNewGeminiRequiresCredentials(t *testing.T) {
	_, err := NewGemini(context.Background(), GeminiConfig{})
	require.Error(t, err)

	var ce *errors.ConfigError
	require.True(t, errors.As(err, &ce))
	assert.True(t, errors.IsAPIKeyError(err))
}

func TestGeminiConfigFromEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "from-google")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "proj")
	t.Setenv("GOOGLE_CLOUD_LOCATION", "europe-west4")
	t.Setenv("RECONCILER_MODEL", "gemini-2.5-pro")

	cfg := GeminiConfigFromEnv(GeminiConfig{Model: "explicit"})
	assert.Equal(t, "from-google", cfg.APIKey)
	assert.Equal(t, "proj", cfg.Project)
	assert.Equal(t, "europe-west4", cfg.Location)
	assert.Equal(t, "explicit", cfg.Model)
}

func TestLimitedTimeout(t *testing.T) {
	stalled := Func(func(ctx context.Context, _ string, _ schema.Descriptor) (string, error) {
		time.Sleep(200 * time.Millisecond)
		return "late", nil
	})

	b := WithLimits(stalled, Limits{Timeout: 20 * time.Millisecond})
	start := time.Now()
	_, err := b.Generate(context.Background(), "prompt", previewSchema)

	require.Error(t, err)
	assert.True(t, errors.IsTimeout(err))
	assert.Less(t, time.Since(start), 150*time.Millisecond)
	assert.Equal(t, "custom", b.Name())
	// let the abandoned call finish before the test ends
	time.Sleep(250 * time.Millisecond)
}

func TestLimitedPassesThrough(t *testing.T) {
	stub := StaticStub(`{"html":"<p>ok</p>"}`)
	b := WithLimits(stub, Limits{Timeout: time.Second, RequestsPerSecond: 1000, Burst: 5})

	text, err := b.Generate(context.Background(), "p", previewSchema)
	require.NoError(t, err)
	assert.Equal(t, `{"html":"<p>ok</p>"}`, text)
	assert.Equal(t, 1, stub.Calls())
	assert.Equal(t, "stub", b.Name())
}

func TestLimitedKeepsBackendErrors(t *testing.T) {
	quota := errors.NewBackendError("stub", errors.BackendQuotaExceeded, "quota", nil)
	b := WithLimits(FailingStub(quota), Limits{Timeout: time.Second})

	_, err := b.Generate(context.Background(), "p", previewSchema)
	assert.True(t, errors.IsRateLimited(err))

	plain := WithLimits(FailingStub(errors.New("boom")), Limits{})
	_, err = plain.Generate(context.Background(), "p", previewSchema)
	assert.True(t, errors.IsProviderUnavailable(err))
}

func TestLimitedRateLimiterDeadline(t *testing.T) {
	stub := StaticStub(`{}`)
	b := WithLimits(stub, Limits{Timeout: 50 * time.Millisecond, RequestsPerSecond: 0.01, Burst: 1})

	_, err := b.Generate(context.Background(), "first", previewSchema)
	require.NoError(t, err)

	_, err = b.Generate(context.Background(), "second", previewSchema)
	require.Error(t, err)
	assert.True(t, errors.IsTimeout(err))
	assert.Equal(t, 1, stub.Calls())
}

func TestStub(t *testing.T) {
	stub := NewStub(func(prompt string, d schema.Descriptor) (string, error) {
		return string(d.Operation) + ":" + prompt, nil
	})

	text, err := stub.Generate(context.Background(), "Paris", previewSchema)
	require.NoError(t, err)
	assert.Equal(t, "preview:Paris", text)
	assert.Equal(t, []string{"Paris"}, stub.Prompts())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = stub.WithDelay(time.Second).Generate(ctx, "late", previewSchema)
	assert.True(t, errors.IsTimeout(err))
	assert.Equal(t, 2, stub.Calls())
}
