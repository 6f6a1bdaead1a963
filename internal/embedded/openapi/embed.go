// Package openapi embeds the OpenAPI 3.1 specification of the reconciliation
// HTTP API. The YAML document is the source; the JSON form is derived from it
// at startup.
package openapi

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"

	"github.com/goccy/go-yaml"
)

// SpecYAML contains the OpenAPI 3.1 specification in YAML format.
// Served at: GET /api/v1/openapi.yaml
//
//go:embed openapi.yaml
var SpecYAML []byte

// SpecJSON contains the same specification in JSON format.
// Served at: GET /api/v1/openapi.json
var SpecJSON = mustJSON(SpecYAML)

// ETag identifies this build's document; both encodings share it.
var ETag = etag(SpecYAML)

func etag(doc []byte) string {
	sum := sha256.Sum256(doc)
	return `"` + hex.EncodeToString(sum[:8]) + `"`
}

func mustJSON(doc []byte) []byte {
	out, err := yaml.YAMLToJSON(doc)
	if err != nil {
		panic("openapi: embedded specification is not valid YAML: " + err.Error())
	}
	return out
}
