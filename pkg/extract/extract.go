// Package extract recovers structured JSON from free-form backend answers.
//
// Backends are asked for JSON only but routinely wrap it in prose or
// markdown fences, or add trailing commas. Extract tries three tiers in
// order: a direct parse of the whole answer, the body of each fenced code
// block, and finally every balanced top-level bracket span. The first
// candidate that parses, has the expected top-level kind and passes shallow
// validation wins.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/knwanna/universal-reconciliation-service/pkg/errors"
	"github.com/knwanna/universal-reconciliation-service/pkg/schema"
)

// Method records which tier recovered the value.
type Method string

// Extraction tiers.
const (
	MethodDirect  Method = "direct"
	MethodFenced  Method = "fenced"
	MethodScanned Method = "scanned"
)

// Result is a successfully extracted and validated value.
type Result struct {
	Value  any
	Method Method
}

// Object returns the value as a JSON object, if it is one.
func (r *Result) Object() (map[string]any, bool) {
	m, ok := r.Value.(map[string]any)
	return m, ok
}

// Items returns the result list: the value itself for array descriptors,
// or the list field for object descriptors.
func (r *Result) Items(d schema.Descriptor) []any {
	switch v := r.Value.(type) {
	case []any:
		return v
	case map[string]any:
		if items, ok := v[d.ListField].([]any); ok {
			return items
		}
	}
	return nil
}

var fencePattern = regexp.MustCompile("(?s)```[ \\t]*([A-Za-z0-9_+-]*)[^\\n`]*\\n?(.*?)```")

// Extract parses raw against d. It returns an *errors.ExtractionError with
// Reason Unparseable when no tier yields JSON of the right kind, or Reason
// SchemaMismatch (carrying the first parsed candidate) when JSON was found
// but none of it validates.
func Extract(raw string, d schema.Descriptor) (*Result, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &errors.ExtractionError{
			Operation: d.Operation.String(),
			Reason:    errors.Unparseable,
			Err:       errors.New("empty answer"),
		}
	}

	var mismatch *errors.ExtractionError
	try := func(text string, method Method) *Result {
		v, ok := parse(text)
		if !ok {
			return nil
		}
		if v, ok = conform(v, d); !ok {
			return nil
		}
		if problems := Validate(v, d); len(problems) > 0 {
			if mismatch == nil {
				mismatch = &errors.ExtractionError{
					Operation: d.Operation.String(),
					Reason:    errors.SchemaMismatch,
					Problems:  problems,
					Value:     v,
				}
			}
			return nil
		}
		return &Result{Value: v, Method: method}
	}

	if r := try(trimmed, MethodDirect); r != nil {
		return r, nil
	}
	for _, block := range fencedBlocks(trimmed) {
		if r := try(block, MethodFenced); r != nil {
			return r, nil
		}
	}
	for _, span := range balancedSpans(trimmed, openers(d)) {
		if r := try(span, MethodScanned); r != nil {
			return r, nil
		}
	}

	if mismatch != nil {
		return nil, mismatch
	}
	return nil, &errors.ExtractionError{
		Operation: d.Operation.String(),
		Reason:    errors.Unparseable,
		Err:       errors.New("no JSON " + string(d.Kind) + " found in answer"),
	}
}

// parse decodes text, retrying once without trailing commas.
func parse(text string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		return v, true
	}
	cleaned := stripTrailingCommas(text)
	if cleaned == text {
		return nil, false
	}
	if err := json.Unmarshal([]byte(cleaned), &v); err == nil {
		return v, true
	}
	return nil, false
}

// conform checks the top-level kind, wrapping a bare list for object
// descriptors that declare a list field and unwrapping a single-list object
// for array descriptors.
func conform(v any, d schema.Descriptor) (any, bool) {
	switch d.Kind {
	case schema.KindArray:
		switch t := v.(type) {
		case []any:
			return t, true
		case map[string]any:
			if len(t) == 1 {
				for _, inner := range t {
					if items, ok := inner.([]any); ok {
						return items, true
					}
				}
			}
		}
		return nil, false
	default:
		switch t := v.(type) {
		case map[string]any:
			return t, true
		case []any:
			if d.ListField != "" {
				return map[string]any{d.ListField: t}, true
			}
		}
		return nil, false
	}
}

func fencedBlocks(text string) []string {
	var blocks []string
	for _, m := range fencePattern.FindAllStringSubmatch(text, -1) {
		lang := strings.ToLower(m[1])
		if lang != "" && lang != "json" && lang != "json5" && lang != "javascript" {
			continue
		}
		if body := strings.TrimSpace(m[2]); body != "" {
			blocks = append(blocks, body)
		}
	}
	return blocks
}

func openers(d schema.Descriptor) string {
	if d.Kind == schema.KindArray {
		return "["
	}
	if d.ListField != "" {
		return "{["
	}
	return "{"
}

// balancedSpans returns every top-level balanced bracket span whose opening
// bracket is in open, in textual order. Brackets inside string literals are
// ignored. Once an opener never closes, later openers of the same kind are
// no longer tried, which keeps the scan linear.
func balancedSpans(text, open string) []string {
	var spans []string
	for i := 0; i < len(text); i++ {
		if !strings.ContainsRune(open, rune(text[i])) {
			continue
		}
		end, ok := matchBracket(text, i)
		if !ok {
			open = strings.ReplaceAll(open, string(text[i]), "")
			if open == "" {
				break
			}
			continue
		}
		spans = append(spans, text[i:end+1])
		i = end
	}
	return spans
}

func matchBracket(text string, start int) (int, bool) {
	opening := text[start]
	closing := byte('}')
	if opening == '[' {
		closing = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch ch {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case opening:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// stripTrailingCommas removes commas that directly precede a closing
// bracket, outside string literals.
func stripTrailingCommas(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))

	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if inString {
			sb.WriteByte(ch)
			if escaped {
				escaped = false
			} else if ch == '\\' {
				escaped = true
			} else if ch == '"' {
				inString = false
			}
			continue
		}
		if ch == '"' {
			inString = true
			sb.WriteByte(ch)
			continue
		}
		if ch == ',' {
			j := i + 1
			for j < len(text) && isSpace(text[j]) {
				j++
			}
			if j < len(text) && (text[j] == '}' || text[j] == ']') {
				continue
			}
		}
		sb.WriteByte(ch)
	}
	return sb.String()
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}
