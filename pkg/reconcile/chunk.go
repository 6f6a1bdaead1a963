package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/knwanna/universal-reconciliation-service/pkg/constants"
	"github.com/knwanna/universal-reconciliation-service/pkg/errors"
	"github.com/knwanna/universal-reconciliation-service/pkg/logging"
	"github.com/knwanna/universal-reconciliation-service/pkg/schema"
)

// ChunkMatch is the best record of a reference dataset for one input
// chunk. Match is nil when nothing in the data fits.
type ChunkMatch struct {
	Input      string     `json:"input"`
	Match      *string    `json:"match"`
	Confidence float64    `json:"confidence"`
	Err        *ErrorInfo `json:"error,omitempty"`
}

// MatchChunk finds the record of data that input most likely denotes. The
// data is sent to the backend verbatim, so it must stay small. Only invalid
// input is returned as an error; backend failures are reported in the
// result.
func (e *Engine) MatchChunk(ctx context.Context, input, data string) (*ChunkMatch, error) {
	input = strings.TrimSpace(input)
	if input == "" || utf8.RuneCountInString(input) > constants.MaxQueryLength {
		return nil, &errors.ValidationError{
			Field:   "input",
			Value:   input,
			Message: fmt.Sprintf("must be 1 to %d characters", constants.MaxQueryLength),
		}
	}
	if strings.TrimSpace(data) == "" {
		return nil, &errors.ValidationError{Field: "data", Message: "must not be empty"}
	}
	if len(data) > constants.MaxChunkDataBytes {
		return nil, &errors.ValidationError{
			Field:   "data",
			Value:   len(data),
			Message: fmt.Sprintf("must not exceed %d bytes", constants.MaxChunkDataBytes),
		}
	}

	d := schema.MustLookup(schema.OpMatchChunk)
	ctx = logging.WithField(e.scope(ctx, d.Operation), "input", input)
	res := &ChunkMatch{Input: input}
	ans, err := e.ask(ctx, d, chunkPrompt(input, data, d), nil)
	if err != nil {
		res.Err = errorInfo(err)
		logging.FromContext(ctx).Warn().Err(err).Msg("Chunk match failed")
		return res, nil
	}

	obj, ok := ans.value.(map[string]any)
	if !ok {
		return res, nil
	}
	if m := recordText(firstPresent(obj, "match", "record", "value")); m != "" {
		res.Match = &m
		if c, ok := numberField(obj, "confidence", "score"); ok {
			res.Confidence = NormalizeScore(c)
		}
	}
	return res, nil
}

// recordText renders a matched record. Structured records keep their JSON
// form.
func recordText(v any) string {
	switch t := v.(type) {
	case nil, bool:
		return ""
	case string:
		return strings.TrimSpace(t)
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
	return fmt.Sprint(v)
}
