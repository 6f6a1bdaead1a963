package extract

import (
	"fmt"

	"github.com/knwanna/universal-reconciliation-service/pkg/schema"
)

// Validate checks v against d shallowly: required fields are present and
// non-null, and declared fields have the right primitive kind. Elements of
// the result list are checked one level deep. It returns one message per
// problem, or nil.
func Validate(v any, d schema.Descriptor) []string {
	if d.Kind == schema.KindArray {
		items, ok := v.([]any)
		if !ok {
			return []string{fmt.Sprintf("expected array, got %s", kindName(v))}
		}
		return validateElements(items, d.Fields, "")
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return []string{fmt.Sprintf("expected object, got %s", kindName(v))}
	}
	problems := validateObject(obj, d.Fields, "")
	if f, ok := d.List(); ok {
		if items, ok := obj[f.Name].([]any); ok {
			problems = append(problems, validateElements(items, f.Items, f.Name)...)
		}
	}
	return problems
}

func validateObject(obj map[string]any, fields []schema.Field, path string) []string {
	var problems []string
	for _, f := range fields {
		name := join(path, f.Name)
		val, present := obj[f.Name]
		if !present || val == nil {
			if f.Required {
				problems = append(problems, "missing required field "+name)
			}
			continue
		}
		if !hasKind(val, f.Type) {
			problems = append(problems, fmt.Sprintf("field %s: expected %s, got %s", name, f.Type, kindName(val)))
		}
	}
	return problems
}

func validateElements(items []any, fields []schema.Field, path string) []string {
	var problems []string
	for i, item := range items {
		at := fmt.Sprintf("%s[%d]", path, i)
		obj, ok := item.(map[string]any)
		if !ok {
			problems = append(problems, fmt.Sprintf("element %s: expected object, got %s", at, kindName(item)))
			continue
		}
		problems = append(problems, validateObject(obj, fields, at)...)
	}
	return problems
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func hasKind(v any, t schema.FieldType) bool {
	switch t {
	case schema.String:
		_, ok := v.(string)
		return ok
	case schema.Number:
		_, ok := v.(float64)
		return ok
	case schema.Boolean:
		_, ok := v.(bool)
		return ok
	case schema.Array:
		_, ok := v.([]any)
		return ok
	case schema.Object:
		_, ok := v.(map[string]any)
		return ok
	}
	return true
}

func kindName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
