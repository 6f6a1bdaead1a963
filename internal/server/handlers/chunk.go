package handlers

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"strings"

	"github.com/knwanna/universal-reconciliation-service/internal/server/response"
	"github.com/knwanna/universal-reconciliation-service/pkg/constants"
	"github.com/knwanna/universal-reconciliation-service/pkg/errors"
)

// chunkRequest names the input chunk and the dataset file to match it in.
type chunkRequest struct {
	Input    string `json:"input"`
	FileName string `json:"fileName"`
}

// HandleStreamChunk handles POST /api/v1/stream-chunk.
// @Summary Match a stream chunk against a reference dataset
// @Description Finds the record of a server-side data file that an input chunk most likely denotes
// @Tags stream
// @Accept json
// @Produce json
// @Param request body chunkRequest true "Input chunk and dataset file name"
// @Success 200 {object} reconcile.ChunkMatch
// @Failure 400 {object} response.Response{error=response.Error}
// @Failure 404 {object} response.Response{error=response.Error}
// @Security ApiKeyAuth
// @Router /api/v1/stream-chunk [post].
func (h *Handlers) HandleStreamChunk(w http.ResponseWriter, r *http.Request) {
	h.limitBody(w, r)

	var req chunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.ErrorFromType(w, errors.WrapParse("json", "", err))
		return
	}
	req.FileName = strings.TrimSpace(req.FileName)
	if strings.TrimSpace(req.Input) == "" || req.FileName == "" {
		response.ErrorFromType(w, &errors.ValidationError{Field: "input", Message: "input text and file name are required"})
		return
	}

	data, err := h.dataset(req.FileName)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	res, err := h.engine.MatchChunk(r.Context(), req.Input, data)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	h.recorder.ChunkMatched(req.FileName, res)
	response.Protocol(w, http.StatusOK, res, "")
}

// dataset reads one reference file. Names are slash-separated paths inside
// the dataset directory; anything escaping it is rejected.
func (h *Handlers) dataset(name string) (string, error) {
	if h.datasets == nil {
		return "", errors.NewNotFoundError("dataset", name)
	}
	if !fs.ValidPath(name) || name == "." {
		return "", &errors.ValidationError{Field: "fileName", Value: name, Message: "must be a relative path inside the data directory"}
	}

	info, err := fs.Stat(h.datasets, name)
	if err != nil || info.IsDir() {
		return "", errors.NewNotFoundError("dataset", name)
	}
	if info.Size() > constants.MaxChunkDataBytes {
		return "", &errors.ValidationError{
			Field:   "fileName",
			Value:   name,
			Message: fmt.Sprintf("dataset exceeds %d bytes", constants.MaxChunkDataBytes),
		}
	}

	b, err := fs.ReadFile(h.datasets, name)
	if err != nil {
		return "", fmt.Errorf("reading dataset %s: %w", name, err)
	}
	return string(b), nil
}
