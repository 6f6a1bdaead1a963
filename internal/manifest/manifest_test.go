package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knwanna/universal-reconciliation-service/pkg/errors"
)

func TestBuild(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ViewURL = "https://www.wikidata.org/wiki/{{id}}"

	m := Build(cfg, "https://recon.example.org/")

	assert.Equal(t, "Universal Reconciliation Service", m.Name)
	assert.Equal(t, "https://recon.example.org/api/v1/preview?id={{id}}", m.Preview.URL)
	assert.Equal(t, 600, m.Preview.Width)
	assert.Equal(t, "https://recon.example.org/api/v1", m.Suggest.Entity.ServiceURL)
	assert.Equal(t, "/suggest/type", m.Suggest.Type.ServicePath)
	assert.Equal(t, "/suggest/property", m.Suggest.Property.ServicePath)
	assert.Equal(t, "/extend/propose", m.Extend.ProposeProperties.ServicePath)
	require.Len(t, m.Extend.PropertySettings, 1)
	assert.Equal(t, "limit", m.Extend.PropertySettings[0].Name)
	assert.Equal(t, 5, m.Extend.PropertySettings[0].Default)
	require.NotNil(t, m.View)
	assert.Equal(t, cfg.ViewURL, m.View.URL)
}

func TestBuildJSONShape(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultTypes = nil

	data, err := json.Marshal(Build(cfg, "http://localhost:8080"))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	for _, key := range []string{"name", "identifierSpace", "schemaSpace", "defaultTypes", "preview", "suggest", "extend"} {
		assert.Contains(t, doc, key)
	}
	assert.NotContains(t, doc, "view")
	assert.Equal(t, []any{}, doc["defaultTypes"])
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: Museum Collections
defaultTypes:
  - id: Q3305213
    name: painting
view:
  url: https://collections.example.org/{{id}}
`), 0o600))

	base := Build(DefaultConfig(), "http://localhost:8080")
	m, err := Load(path, base)
	require.NoError(t, err)

	assert.Equal(t, "Museum Collections", m.Name)
	assert.Equal(t, []Type{{ID: "Q3305213", Name: "painting"}}, m.DefaultTypes)
	assert.Equal(t, "https://collections.example.org/{{id}}", m.View.URL)
	assert.Equal(t, base.IdentifierSpace, m.IdentifierSpace)
	assert.Equal(t, base.Preview.URL, m.Preview.URL)

	assert.Equal(t, "Universal Reconciliation Service", base.Name)
	assert.Nil(t, base.View)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	var cfgErr *errors.ConfigError
	assert.True(t, errors.As(err, &cfgErr))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("name: [unclosed"), 0o600))
	_, err = Load(bad, nil)
	var parseErr *errors.ParseError
	assert.True(t, errors.As(err, &parseErr))

	incomplete := filepath.Join(t.TempDir(), "incomplete.yaml")
	require.NoError(t, os.WriteFile(incomplete, []byte("name: Only a name\n"), 0o600))
	_, err = Load(incomplete, nil)
	assert.True(t, errors.IsValidationError(err))
}
