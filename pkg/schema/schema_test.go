package schema_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/knwanna/universal-reconciliation-service/pkg/errors"
	"github.com/knwanna/universal-reconciliation-service/pkg/schema"
)

func TestLookupEveryOperation(t *testing.T) {
	ops := []schema.Operation{
		schema.OpReconcile,
		schema.OpSuggestEntity,
		schema.OpSuggestType,
		schema.OpSuggestProperty,
		schema.OpExtend,
		schema.OpPreview,
		schema.OpProposeProperties,
		schema.OpMatchChunk,
	}
	for _, op := range ops {
		t.Run(op.String(), func(t *testing.T) {
			d, err := schema.Lookup(op)
			require.NoError(t, err)
			assert.Equal(t, op, d.Operation)
			assert.NotEmpty(t, d.Fields)
		})
	}
	assert.Len(t, schema.Operations(), len(ops))
}

func TestLookupUnknown(t *testing.T) {
	_, err := schema.Lookup("suggestColor")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Panics(t, func() { schema.MustLookup("suggestColor") })
}

func TestReconcileDescriptor(t *testing.T) {
	d := schema.MustLookup(schema.OpReconcile)
	assert.Equal(t, schema.KindObject, d.Kind)
	assert.Equal(t, "result", d.ListField)

	list, ok := d.List()
	require.True(t, ok)
	assert.Equal(t, schema.Array, list.Type)

	names := make([]string, 0, len(d.ElementFields()))
	for _, f := range d.ElementFields() {
		names = append(names, f.Name)
	}
	assert.Subset(t, names, []string{"id", "name", "score", "match", "type"})
}

func TestGenAISchema(t *testing.T) {
	t.Run("object root", func(t *testing.T) {
		s := schema.MustLookup(schema.OpReconcile).GenAISchema()
		assert.Equal(t, genai.TypeObject, s.Type)
		assert.Equal(t, []string{"result"}, s.Required)
		result := s.Properties["result"]
		require.NotNil(t, result)
		assert.Equal(t, genai.TypeArray, result.Type)
		require.NotNil(t, result.Items)
		assert.Equal(t, genai.TypeNumber, result.Items.Properties["score"].Type)
		assert.Equal(t, genai.TypeBoolean, result.Items.Properties["match"].Type)
		assert.Contains(t, result.Items.Required, "name")
	})

	t.Run("array root", func(t *testing.T) {
		s := schema.MustLookup(schema.OpSuggestEntity).GenAISchema()
		assert.Equal(t, genai.TypeArray, s.Type)
		require.NotNil(t, s.Items)
		assert.ElementsMatch(t, []string{"id", "name"}, s.Items.Required)
	})
}

func TestDescribe(t *testing.T) {
	text := schema.MustLookup(schema.OpReconcile).Describe()
	assert.Contains(t, text, `"result"`)
	assert.Contains(t, text, "Required fields: result, name")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	require.True(t, start >= 0 && end > start)
	var example map[string]any
	require.NoError(t, json.Unmarshal([]byte(text[start:end+1]), &example))
	assert.Contains(t, example, "result")

	arr := schema.MustLookup(schema.OpSuggestType).Describe()
	assert.Contains(t, arr, "[{")
	assert.Equal(t, 1, strings.Count(arr, "Required fields: id, name"))
}
