package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/knwanna/universal-reconciliation-service/internal/server/response"
	"github.com/knwanna/universal-reconciliation-service/pkg/errors"
	"github.com/knwanna/universal-reconciliation-service/pkg/reconcile"
)

// HandleReconcile handles GET/POST /api/v1/reconcile.
// A GET without a queries parameter serves the service manifest; a POST
// must carry one.
// @Summary Reconcile a batch of queries
// @Description Returns ranked candidates per query id, or the service manifest when no queries are given
// @Tags reconcile
// @Accept json
// @Accept x-www-form-urlencoded
// @Produce json
// @Param queries query string false "JSON object of query id to query"
// @Param callback query string false "JSONP callback"
// @Success 200 {object} object
// @Failure 400 {object} response.Response{error=response.Error}
// @Security ApiKeyAuth
// @Router /api/v1/reconcile [get].
func (h *Handlers) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	cb, ok := callback(w, r)
	if !ok {
		return
	}

	raw, err := h.jsonParam(w, r, "queries")
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	if raw == "" {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			h.serveManifest(w, r, cb)
			return
		}
		response.ErrorFromType(w, &errors.ValidationError{Field: "queries", Message: "parameter is required"})
		return
	}

	var batch reconcile.Batch
	if err := json.Unmarshal([]byte(raw), &batch); err != nil {
		response.ErrorFromType(w, errors.WrapParse("json", "queries", err))
		return
	}

	result, err := h.engine.Reconcile(r.Context(), batch)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	response.Protocol(w, http.StatusOK, reconcile.Assemble(result), cb)
}

func (h *Handlers) serveManifest(w http.ResponseWriter, r *http.Request, cb string) {
	m, err := h.manifest(r)
	if err != nil {
		h.logger.Error().Err(err).Msg("Manifest unavailable")
		response.ErrorFromType(w, err)
		return
	}
	response.Protocol(w, http.StatusOK, m, cb)
}
