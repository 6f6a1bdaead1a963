package reconcile_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knwanna/universal-reconciliation-service/pkg/reconcile"
)

func TestQueryUnmarshalJSON(t *testing.T) {
	var batch reconcile.Batch
	err := json.Unmarshal([]byte(`{
		"q0": {"query": "Paris", "type": "/location", "limit": 3},
		"q1": {"query": "Berlin", "type": ["Q515", "Q5119"], "type_strict": "should"},
		"q2": {"query": "Rome", "type": null,
		       "properties": [{"pid": "P17", "v": "Italy"}, {"id": "P31", "value": {"id": "Q515"}}]}
	}`), &batch)
	require.NoError(t, err)

	assert.Equal(t, reconcile.Query{Text: "Paris", Type: "/location", Limit: 3}, batch["q0"])
	assert.Equal(t, "Q515", batch["q1"].Type)
	assert.Equal(t, "should", batch["q1"].TypeStrict)
	assert.Empty(t, batch["q2"].Type)
	assert.Equal(t, []reconcile.PropertyConstraint{
		{ID: "P17", Value: "Italy"},
		{ID: "P31", Value: map[string]any{"id": "Q515"}},
	}, batch["q2"].Properties)
}

func TestQueryUnmarshalJSONRejectsBadType(t *testing.T) {
	var q reconcile.Query
	assert.Error(t, json.Unmarshal([]byte(`{"query":"x","type":42}`), &q))
	assert.Error(t, json.Unmarshal([]byte(`{"query":"x","type":[1]}`), &q))
}
