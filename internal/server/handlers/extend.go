package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/knwanna/universal-reconciliation-service/internal/server/cache"
	"github.com/knwanna/universal-reconciliation-service/internal/server/response"
	"github.com/knwanna/universal-reconciliation-service/pkg/errors"
	"github.com/knwanna/universal-reconciliation-service/pkg/reconcile"
)

// HandleExtend handles GET/POST /api/v1/extend.
// @Summary Data extension
// @Description Fetches property values for reconciled entity ids
// @Tags extend
// @Accept json
// @Accept x-www-form-urlencoded
// @Produce json
// @Param extend query string false "JSON {ids, properties}"
// @Param callback query string false "JSONP callback"
// @Success 200 {object} reconcile.ExtendResponse
// @Failure 400 {object} response.Response{error=response.Error}
// @Security ApiKeyAuth
// @Router /api/v1/extend [post].
func (h *Handlers) HandleExtend(w http.ResponseWriter, r *http.Request) {
	cb, ok := callback(w, r)
	if !ok {
		return
	}

	raw, err := h.jsonParam(w, r, "extend")
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	if raw == "" {
		response.ErrorFromType(w, &errors.ValidationError{Field: "extend", Message: "parameter is required"})
		return
	}

	var req reconcile.ExtendRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		response.ErrorFromType(w, errors.WrapParse("json", "extend", err))
		return
	}

	resp, err := h.engine.Extend(r.Context(), req)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	h.recorder.ExtendCompleted(resp)

	response.Protocol(w, http.StatusOK, resp, cb)
}

// HandlePropose handles GET/POST /api/v1/extend/propose.
// @Summary Propose extension properties
// @Description Lists properties worth fetching for entities of a type
// @Tags extend
// @Produce json
// @Param type query string true "Type id"
// @Param limit query integer false "Maximum properties (default 10, max 50)"
// @Param callback query string false "JSONP callback"
// @Success 200 {object} reconcile.ProposeResponse
// @Failure 400 {object} response.Response{error=response.Error}
// @Security ApiKeyAuth
// @Router /api/v1/extend/propose [get].
func (h *Handlers) HandlePropose(w http.ResponseWriter, r *http.Request) {
	cb, ok := callback(w, r)
	if !ok {
		return
	}
	h.limitBody(w, r)
	if err := r.ParseForm(); err != nil {
		response.ErrorFromType(w, errors.WrapParse("form", "", err))
		return
	}
	limit, err := intParam(r.Form, "limit")
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	typeID := r.Form.Get("type")

	key := cache.Key("propose", typeID, limit)
	if cached, ok := cache.Lookup[*reconcile.ProposeResponse](h.cache, key); ok {
		response.Protocol(w, http.StatusOK, cached, cb)
		return
	}

	resp, err := h.engine.ProposeProperties(r.Context(), typeID, limit)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	if resp.Err == nil {
		h.cache.Set(key, resp)
	}
	response.Protocol(w, http.StatusOK, resp, cb)
}
