package reconcile

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	nameKeys  = []string{"name", "label", "title"}
	scoreKeys = []string{"score", "relevance", "confidence"}
	typeKeys  = []string{"type", "types"}
)

// NormalizeScore maps a backend score into [0,1]. Values in (1,100] are
// read as percentages; everything else is clamped and NaN becomes 0.
func NormalizeScore(s float64) float64 {
	if math.IsNaN(s) {
		return 0
	}
	if s > 1 && s <= 100 {
		s /= 100
	}
	return math.Max(0, math.Min(1, s))
}

func hasName(obj map[string]any) bool {
	return stringField(obj, nameKeys...) != ""
}

// toCandidate maps one answer object onto a Candidate, filling defaults.
func (e *Engine) toCandidate(obj map[string]any) (Candidate, bool) {
	name := stringField(obj, nameKeys...)
	if name == "" {
		return Candidate{}, false
	}

	c := Candidate{
		ID:          stringField(obj, "id"),
		Name:        name,
		Description: stringField(obj, "description"),
		Types:       parseTypes(firstPresent(obj, typeKeys...)),
		Features:    parseFeatures(obj["features"]),
	}
	if c.ID == "" {
		c.ID = e.opts.newID()
	}
	if s, ok := numberField(obj, scoreKeys...); ok {
		c.Score = NormalizeScore(s)
	}
	if m, ok := boolField(obj, "match"); ok {
		c.Match = m
	} else {
		c.Match = c.Score > e.opts.matchThreshold
	}
	return c, true
}

func firstPresent(obj map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringField(obj map[string]any, keys ...string) string {
	switch v := firstPresent(obj, keys...).(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func numberField(obj map[string]any, keys ...string) (float64, bool) {
	switch v := firstPresent(obj, keys...).(type) {
	case float64:
		return v, true
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "%"))
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

func boolField(obj map[string]any, key string) (bool, bool) {
	switch v := obj[key].(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return b, err == nil
	}
	return false, false
}

// parseTypes accepts a list of {id,name} objects or strings, or a single
// object or string. String types get a title-cased display name.
func parseTypes(v any) []Type {
	types := []Type{}
	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case nil:
		return types
	default:
		items = []any{t}
	}

	for _, item := range items {
		switch t := item.(type) {
		case string:
			if id := strings.TrimSpace(t); id != "" {
				types = append(types, Type{ID: id, Name: TypeName(id)})
			}
		case map[string]any:
			id := stringField(t, "id")
			name := stringField(t, nameKeys...)
			switch {
			case id == "" && name == "":
				continue
			case id == "":
				id = name
			case name == "":
				name = TypeName(id)
			}
			types = append(types, Type{ID: id, Name: name})
		}
	}
	return types
}

// TypeName derives a display name from a type id such as "/location" or
// "human_settlement".
func TypeName(id string) string {
	s := strings.TrimRight(id, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return id
	}
	return cases.Title(language.English).String(s)
}

// parseFeatures accepts a list of {id,value} objects or a plain object.
func parseFeatures(v any) []Feature {
	switch t := v.(type) {
	case []any:
		var fs []Feature
		for _, item := range t {
			if obj, ok := item.(map[string]any); ok {
				if id := stringField(obj, "id", "name"); id != "" {
					fs = append(fs, Feature{ID: id, Value: obj["value"]})
				}
			}
		}
		return fs
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fs := make([]Feature, 0, len(keys))
		for _, k := range keys {
			fs = append(fs, Feature{ID: k, Value: t[k]})
		}
		return fs
	}
	return nil
}
