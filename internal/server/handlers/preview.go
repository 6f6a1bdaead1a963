package handlers

import (
	"net/http"
	"strings"

	"github.com/knwanna/universal-reconciliation-service/internal/server/cache"
	"github.com/knwanna/universal-reconciliation-service/internal/server/response"
	"github.com/knwanna/universal-reconciliation-service/pkg/reconcile"
)

// HandlePreview handles GET /api/v1/preview.
// @Summary Entity preview
// @Description HTML card describing an entity, sized for the manifest preview frame
// @Tags preview
// @Produce html
// @Param id query string true "Entity id"
// @Success 200 {string} string "HTML fragment"
// @Failure 400 {object} response.Response{error=response.Error}
// @Security ApiKeyAuth
// @Router /api/v1/preview [get].
func (h *Handlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	html, err := h.preview(r, r.URL.Query().Get("id"))
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.HTML(w, http.StatusOK, html)
}

// preview serves from cache when it can. Fallback cards are not cached so
// a transient backend failure is retried on the next request.
func (h *Handlers) preview(r *http.Request, id string) (string, error) {
	id = strings.TrimSpace(id)
	key := cache.Key("preview", id)
	if cached, ok := cache.Lookup[string](h.cache, key); ok {
		return cached, nil
	}

	html, err := h.engine.Preview(r.Context(), id)
	if err != nil {
		return "", err
	}
	if html != reconcile.FallbackPreview(id) {
		h.cache.Set(key, html)
	}
	return html, nil
}
