package handlers

import (
	"net/http"
	"strings"

	"github.com/knwanna/universal-reconciliation-service/internal/server/cache"
	"github.com/knwanna/universal-reconciliation-service/internal/server/response"
	"github.com/knwanna/universal-reconciliation-service/pkg/reconcile"
)

// flyoutLimit is how many suggestions a prefix flyout shows.
const flyoutLimit = 5

// HandleSuggest returns the handler for GET /api/v1/suggest/{kind}.
// @Summary Suggest entities, types or properties
// @Description Auto-complete for OpenRefine suggest widgets
// @Tags suggest
// @Produce json
// @Param kind path string true "entity, type or property"
// @Param prefix query string true "Text typed so far"
// @Param limit query integer false "Maximum suggestions (default 10, max 50)"
// @Param callback query string false "JSONP callback"
// @Success 200 {object} reconcile.SuggestResult
// @Failure 400 {object} response.Response{error=response.Error}
// @Security ApiKeyAuth
// @Router /api/v1/suggest/{kind} [get].
func (h *Handlers) HandleSuggest(kind reconcile.SuggestKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cb, ok := callback(w, r)
		if !ok {
			return
		}
		limit, err := intParam(r.URL.Query(), "limit")
		if err != nil {
			response.ErrorFromType(w, err)
			return
		}

		res, err := h.suggest(r, kind, r.URL.Query().Get("prefix"), limit)
		if err != nil {
			response.ErrorFromType(w, err)
			return
		}
		response.Protocol(w, http.StatusOK, res, cb)
	}
}

// suggest serves from cache when it can. Results carrying a backend error
// are not cached.
func (h *Handlers) suggest(r *http.Request, kind reconcile.SuggestKind, prefix string, limit int) (*reconcile.SuggestResult, error) {
	key := cache.Key("suggest", kind, prefix, limit)
	if cached, ok := cache.Lookup[*reconcile.SuggestResult](h.cache, key); ok {
		return cached, nil
	}

	res, err := h.engine.Suggest(r.Context(), kind, prefix, limit)
	if err != nil {
		return nil, err
	}
	if res.Err == nil {
		h.cache.Set(key, res)
	}
	return res, nil
}

// flyout is the document suggest widgets render next to a suggestion.
type flyout struct {
	ID   string `json:"id"`
	HTML string `json:"html"`
}

// HandleFlyout handles GET /api/v1/suggest/flyout.
// With id it returns the preview card for that entity; with prefix it
// returns up to five entity suggestions.
// @Summary Suggest flyout
// @Description Flyout HTML for an entity id, or short suggestions for a prefix
// @Tags suggest
// @Produce json
// @Param id query string false "Entity id"
// @Param prefix query string false "Text typed so far"
// @Param callback query string false "JSONP callback"
// @Success 200 {object} object
// @Failure 400 {object} response.Response{error=response.Error}
// @Security ApiKeyAuth
// @Router /api/v1/suggest/flyout [get].
func (h *Handlers) HandleFlyout(w http.ResponseWriter, r *http.Request) {
	cb, ok := callback(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	if id := strings.TrimSpace(q.Get("id")); id != "" {
		html, err := h.preview(r, id)
		if err != nil {
			response.ErrorFromType(w, err)
			return
		}
		response.Protocol(w, http.StatusOK, flyout{ID: id, HTML: html}, cb)
		return
	}

	if prefix := q.Get("prefix"); prefix != "" {
		res, err := h.suggest(r, reconcile.SuggestEntity, prefix, flyoutLimit)
		if err != nil {
			response.ErrorFromType(w, err)
			return
		}
		response.Protocol(w, http.StatusOK, res, cb)
		return
	}

	response.BadRequest(w, "Missing parameter", "either id or prefix is required")
}
