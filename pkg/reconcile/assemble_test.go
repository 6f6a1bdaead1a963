package reconcile_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knwanna/universal-reconciliation-service/internal/backend"
	"github.com/knwanna/universal-reconciliation-service/pkg/reconcile"
)

func sampleBatchResult() *reconcile.BatchResult {
	return &reconcile.BatchResult{
		Results: map[string]reconcile.QueryResult{
			"q1": {
				QueryID: "q1",
				Candidates: []reconcile.Candidate{
					{ID: "Q90", Name: "Paris", Score: 0.95, Match: true, Types: []reconcile.Type{{ID: "Q515", Name: "City"}}},
					{ID: "Q2", Name: "Paris Hilton", Score: 0.2},
				},
			},
			"q0": {
				QueryID:    "q0",
				Candidates: []reconcile.Candidate{},
				Err:        &reconcile.ErrorInfo{Kind: reconcile.ErrorKindBackend, Code: "timeout", Message: "deadline exceeded"},
			},
		},
		Metadata: reconcile.BatchMetadata{
			ProcessedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			Duration:    1500 * time.Millisecond,
		},
	}
}

func TestAssemble(t *testing.T) {
	resp := reconcile.Assemble(sampleBatchResult())

	require.Len(t, resp.Results, 2)
	assert.Equal(t, 2, resp.Metadata.QueryCount)
	assert.Equal(t, 1, resp.Metadata.ErrorCount)
	assert.Equal(t, int64(1500), resp.Metadata.DurationMs)

	q1 := resp.Results["q1"]
	require.Len(t, q1.Result, 2)
	assert.Equal(t, "Q90", q1.Result[0].ID)
	assert.NotNil(t, q1.Result[1].Type, "type list is never nil")

	q0 := resp.Results["q0"]
	assert.NotNil(t, q0.Result)
	assert.Empty(t, q0.Result)
	require.NotNil(t, q0.Error)
	assert.Equal(t, "timeout", q0.Error.Code)
}

func TestResponseMarshalJSON(t *testing.T) {
	data, err := json.Marshal(reconcile.Assemble(sampleBatchResult()))
	require.NoError(t, err)

	out := string(data)
	assert.True(t, strings.HasPrefix(out, `{"q0":{"result":[],"error":{`), out)
	assert.Less(t, strings.Index(out, `"q0"`), strings.Index(out, `"q1"`))
	assert.Less(t, strings.Index(out, `"q1"`), strings.Index(out, `"metadata"`))
	assert.Contains(t, out, `"type":[]`)
	assert.NotContains(t, out, "queryId")

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 3)

	var meta reconcile.ResponseMetadata
	require.NoError(t, json.Unmarshal(decoded["metadata"], &meta))
	assert.Equal(t, 2, meta.QueryCount)
	assert.Equal(t, 1, meta.ErrorCount)
}

func TestResponseMarshalJSONMetadataCollision(t *testing.T) {
	br := &reconcile.BatchResult{
		Results: map[string]reconcile.QueryResult{
			"metadata": {QueryID: "metadata", Candidates: []reconcile.Candidate{{ID: "x", Name: "X"}}},
		},
	}
	data, err := json.Marshal(reconcile.Assemble(br))
	require.NoError(t, err)

	var decoded map[string]reconcile.QueryResponse
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "x", decoded["metadata"].Result[0].ID)
}

func TestReconcileRoundTrip(t *testing.T) {
	e := newEngine(t, backend.StaticStub(parisAnswer))
	br, err := e.Reconcile(context.Background(), reconcile.Batch{
		"q0": {Text: "Paris"},
		"q1": {Text: "Lyon"},
	})
	require.NoError(t, err)

	data, err := json.Marshal(reconcile.Assemble(br))
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	for id, r := range br.Results {
		var qr reconcile.QueryResponse
		require.NoError(t, json.Unmarshal(decoded[id], &qr))
		require.Len(t, qr.Result, len(r.Candidates))
		for i, c := range r.Candidates {
			assert.Equal(t, c.ID, qr.Result[i].ID)
			assert.Equal(t, c.Name, qr.Result[i].Name)
			assert.Equal(t, c.Score, qr.Result[i].Score)
			assert.Equal(t, c.Match, qr.Result[i].Match)
			assert.Equal(t, c.Types, qr.Result[i].Type)
		}
	}
}
