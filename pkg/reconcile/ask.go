package reconcile

import (
	"context"
	"sort"

	"github.com/knwanna/universal-reconciliation-service/pkg/errors"
	"github.com/knwanna/universal-reconciliation-service/pkg/extract"
	"github.com/knwanna/universal-reconciliation-service/pkg/logging"
	"github.com/knwanna/universal-reconciliation-service/pkg/schema"
)

// answer is a recovered backend answer.
type answer struct {
	value   any
	items   []map[string]any
	method  extract.Method
	coerced bool
}

// ask performs one backend call under descriptor d and recovers its answer.
// When the answer parses but does not validate, any list of objects found
// in it is used instead, keeping only objects accepted by usable. Zero
// usable objects leaves the schema mismatch as the error.
func (e *Engine) ask(ctx context.Context, d schema.Descriptor, prompt string, usable func(map[string]any) bool) (*answer, error) {
	raw, err := e.backend.Generate(ctx, prompt, d)
	if err != nil {
		return nil, err
	}

	res, err := extract.Extract(raw, d)
	if err == nil {
		return &answer{
			value:  res.Value,
			items:  filterObjects(objectsOf(res.Items(d)), usable),
			method: res.Method,
		}, nil
	}

	var ee *errors.ExtractionError
	if !errors.As(err, &ee) || ee.Reason != errors.SchemaMismatch {
		return nil, err
	}
	items := filterObjects(findObjects(ee.Value, d.ListField), usable)
	if len(items) == 0 {
		return nil, err
	}

	logging.FromContext(ctx).Debug().
		Strs("problems", ee.Problems).
		Int("recovered", len(items)).
		Msg("Coerced mismatched answer")
	return &answer{value: ee.Value, items: items, coerced: true}, nil
}

func objectsOf(items []any) []map[string]any {
	objs := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			objs = append(objs, obj)
		}
	}
	return objs
}

func filterObjects(objs []map[string]any, usable func(map[string]any) bool) []map[string]any {
	if usable == nil {
		return objs
	}
	kept := objs[:0:0]
	for _, obj := range objs {
		if usable(obj) {
			kept = append(kept, obj)
		}
	}
	return kept
}

// attributeKeys name arrays that describe a single item rather than list items.
var attributeKeys = map[string]bool{"type": true, "types": true, "features": true, "values": true}

// findObjects looks for the most plausible list of objects in v: v itself
// when it is shaped like a candidate, the list field, then any other array of
// objects, then arrays inside nested objects, and finally v as a single object.
func findObjects(v any, listField string) []map[string]any {
	if obj, ok := v.(map[string]any); ok && looksLikeCandidate(obj) {
		return []map[string]any{obj}
	}
	if objs := findList(v, listField); len(objs) > 0 {
		return objs
	}
	if obj, ok := v.(map[string]any); ok {
		return []map[string]any{obj}
	}
	return nil
}

func findList(v any, listField string) []map[string]any {
	switch t := v.(type) {
	case []any:
		return objectsOf(t)
	case map[string]any:
		if listField != "" {
			if items, ok := t[listField].([]any); ok {
				if objs := objectsOf(items); len(objs) > 0 {
					return objs
				}
			}
		}
		keys := sortedKeys(t)
		for _, k := range keys {
			if attributeKeys[k] {
				continue
			}
			if items, ok := t[k].([]any); ok {
				if objs := objectsOf(items); len(objs) > 0 {
					return objs
				}
			}
		}
		for _, k := range keys {
			if attributeKeys[k] {
				continue
			}
			if inner, ok := t[k].(map[string]any); ok {
				if objs := findList(inner, listField); len(objs) > 0 {
					return objs
				}
			}
		}
	}
	return nil
}

// looksLikeCandidate reports whether obj carries a name together with a score
// or a match flag.
func looksLikeCandidate(obj map[string]any) bool {
	if stringField(obj, nameKeys...) == "" {
		return false
	}
	if _, ok := obj["match"]; ok {
		return true
	}
	return firstPresent(obj, scoreKeys...) != nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
