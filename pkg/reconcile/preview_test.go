package reconcile_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knwanna/universal-reconciliation-service/internal/backend"
	"github.com/knwanna/universal-reconciliation-service/pkg/errors"
	"github.com/knwanna/universal-reconciliation-service/pkg/reconcile"
)

func TestPreview(t *testing.T) {
	stub := backend.StaticStub(`{"name":"Paris","html":"<p>Capital of <b>France</b> &amp; its largest city</p><script>alert(1)</script>"}`)
	e := newEngine(t, stub)

	card, err := e.Preview(context.Background(), "Q90")
	require.NoError(t, err)
	assert.Contains(t, card, `class="urs-preview"`)
	assert.Contains(t, card, ">Paris</h3>")
	assert.Contains(t, card, ">Q90</div>")
	assert.Contains(t, card, "<p>Capital of France &amp; its largest city</p>")
	assert.NotContains(t, card, "script")
	assert.NotContains(t, card, "alert")
}

func TestPreviewPrefersDescription(t *testing.T) {
	e := newEngine(t, backend.StaticStub(`{"name":"Paris","description":"City in France","html":"<p>ignored</p>"}`))

	card, err := e.Preview(context.Background(), "Q90")
	require.NoError(t, err)
	assert.Contains(t, card, "<p>City in France</p>")
	assert.NotContains(t, card, "ignored")
}

func TestPreviewFallsBack(t *testing.T) {
	e := newEngine(t, backend.FailingStub(errors.NewBackendError("stub", errors.BackendUpstream, "boom", nil)))

	card, err := e.Preview(context.Background(), "<Q90>")
	require.NoError(t, err)
	assert.Equal(t, reconcile.FallbackPreview("<Q90>"), card)
	assert.Contains(t, card, "&lt;Q90&gt;")
	assert.NotContains(t, card, "<Q90>")
}

func TestPreviewRejectsEmptyID(t *testing.T) {
	stub := backend.StaticStub(`{}`)
	e := newEngine(t, stub)

	_, err := e.Preview(context.Background(), "  ")
	assert.True(t, errors.IsValidationError(err))
	assert.Equal(t, 0, stub.Calls())
}
