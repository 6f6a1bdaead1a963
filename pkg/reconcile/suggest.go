package reconcile

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/knwanna/universal-reconciliation-service/pkg/constants"
	"github.com/knwanna/universal-reconciliation-service/pkg/errors"
	"github.com/knwanna/universal-reconciliation-service/pkg/logging"
	"github.com/knwanna/universal-reconciliation-service/pkg/schema"
)

// SuggestKind selects what a suggest call completes.
type SuggestKind string

// Suggest kinds.
const (
	SuggestEntity   SuggestKind = "entity"
	SuggestType     SuggestKind = "type"
	SuggestProperty SuggestKind = "property"
)

// ParseSuggestKind validates a suggest kind name.
func ParseSuggestKind(s string) (SuggestKind, error) {
	switch k := SuggestKind(strings.ToLower(strings.TrimSpace(s))); k {
	case SuggestEntity, SuggestType, SuggestProperty:
		return k, nil
	}
	return "", &errors.ValidationError{
		Field:   "kind",
		Value:   s,
		Message: "must be one of entity, type, property",
	}
}

func (k SuggestKind) operation() schema.Operation {
	switch k {
	case SuggestType:
		return schema.OpSuggestType
	case SuggestProperty:
		return schema.OpSuggestProperty
	default:
		return schema.OpSuggestEntity
	}
}

func (k SuggestKind) plural() string {
	switch k {
	case SuggestType:
		return "entity types"
	case SuggestProperty:
		return "entity properties"
	default:
		return "entities"
	}
}

// Suggestion is one auto-complete entry.
type Suggestion struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Score       float64 `json:"score,omitempty"`
}

// SuggestResult is the outcome of one suggest call. Err set means the
// backend could not answer and Result is empty.
type SuggestResult struct {
	Prefix string       `json:"prefix"`
	Result []Suggestion `json:"result"`
	Err    *ErrorInfo   `json:"error,omitempty"`
}

// Suggest completes prefix into entities, types or properties. Only invalid
// input is returned as an error; backend failures are reported in the
// result.
func (e *Engine) Suggest(ctx context.Context, kind SuggestKind, prefix string, limit int) (*SuggestResult, error) {
	prefix = strings.TrimSpace(prefix)
	if _, err := ParseSuggestKind(string(kind)); err != nil {
		return nil, err
	}
	if prefix == "" || utf8.RuneCountInString(prefix) > constants.MaxPrefixLength {
		return nil, &errors.ValidationError{
			Field:   "prefix",
			Value:   prefix,
			Message: fmt.Sprintf("must be 1 to %d characters", constants.MaxPrefixLength),
		}
	}
	limit, err := clampLimit("limit", limit, constants.DefaultSuggestLimit, constants.MaxSuggestLimit)
	if err != nil {
		return nil, err
	}

	d := schema.MustLookup(kind.operation())
	ctx = logging.WithField(e.scope(ctx, d.Operation), "prefix", prefix)
	res := &SuggestResult{Prefix: prefix, Result: []Suggestion{}}
	ans, err := e.ask(ctx, d, suggestPrompt(kind, prefix, limit, d), hasIDAndName)
	if err != nil {
		res.Err = errorInfo(err)
		logging.FromContext(ctx).Warn().Err(err).Msg("Suggest failed")
		return res, nil
	}

	for _, obj := range ans.items {
		s := Suggestion{
			ID:          stringField(obj, "id"),
			Name:        stringField(obj, nameKeys...),
			Description: stringField(obj, "description"),
		}
		if score, ok := numberField(obj, scoreKeys...); ok {
			s.Score = NormalizeScore(score)
		}
		res.Result = append(res.Result, s)
		if len(res.Result) == limit {
			break
		}
	}
	return res, nil
}

func hasIDAndName(obj map[string]any) bool {
	return stringField(obj, "id") != "" && hasName(obj)
}

// clampLimit applies a default to zero limits and caps large ones.
func clampLimit(field string, limit, def, ceiling int) (int, error) {
	switch {
	case limit < 0:
		return 0, &errors.ValidationError{Field: field, Value: limit, Message: "must not be negative"}
	case limit == 0:
		return def, nil
	case limit > ceiling:
		return ceiling, nil
	}
	return limit, nil
}
