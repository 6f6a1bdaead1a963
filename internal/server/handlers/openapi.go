package handlers

import (
	"net/http"

	"github.com/knwanna/universal-reconciliation-service/internal/embedded/openapi"
)

// HandleOpenAPIJSON serves the API description as JSON.
// @Summary Get OpenAPI document (JSON)
// @Tags meta
// @Produce json
// @Success 200 {object} object "OpenAPI 3.1 document"
// @Success 304 "Not modified"
// @Router /api/v1/openapi.json [get].
func (h *Handlers) HandleOpenAPIJSON(w http.ResponseWriter, r *http.Request) {
	writeDocument(w, r, "application/json", openapi.SpecJSON)
}

// HandleOpenAPIYAML serves the API description as YAML.
// @Summary Get OpenAPI document (YAML)
// @Tags meta
// @Produce application/x-yaml
// @Success 200 {string} string "OpenAPI 3.1 document"
// @Success 304 "Not modified"
// @Router /api/v1/openapi.yaml [get].
func (h *Handlers) HandleOpenAPIYAML(w http.ResponseWriter, r *http.Request) {
	writeDocument(w, r, "application/x-yaml", openapi.SpecYAML)
}

// writeDocument answers conditional requests for the embedded document
// with 304.
func writeDocument(w http.ResponseWriter, r *http.Request, contentType string, body []byte) {
	w.Header().Set("ETag", openapi.ETag)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if r.Header.Get("If-None-Match") == openapi.ETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(body)
}
