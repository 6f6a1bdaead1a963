// Package schema declares the expected shape of backend answers for every
// reconciliation operation. Descriptors are built once at init and are
// read-only afterwards; they drive prompt construction, the Gemini response
// schema and the shallow validation done by the extractor.
package schema

import (
	"encoding/json"
	"sort"
	"strings"

	"google.golang.org/genai"

	"github.com/knwanna/universal-reconciliation-service/pkg/errors"
)

// Operation identifies one kind of backend call.
type Operation string

// Supported operations.
const (
	OpReconcile         Operation = "reconcile"
	OpSuggestEntity     Operation = "suggestEntity"
	OpSuggestType       Operation = "suggestType"
	OpSuggestProperty   Operation = "suggestProperty"
	OpExtend            Operation = "extend"
	OpPreview           Operation = "preview"
	OpProposeProperties Operation = "proposeProperties"
	OpMatchChunk        Operation = "matchChunk"
)

// String returns the operation name.
func (o Operation) String() string { return string(o) }

// Kind is the top-level JSON kind of an answer.
type Kind string

// Top-level kinds.
const (
	KindObject Kind = "object"
	KindArray  Kind = "array"
)

// FieldType is the JSON kind of a declared field.
type FieldType string

// Field types.
const (
	String  FieldType = "string"
	Number  FieldType = "number"
	Boolean FieldType = "boolean"
	Array   FieldType = "array"
	Object  FieldType = "object"
)

// Field declares one named member of an object.
type Field struct {
	Name        string
	Type        FieldType
	Required    bool
	Description string
	// Items describes object elements of an Array field. Empty means the
	// elements are primitives of ItemType.
	Items    []Field
	ItemType FieldType
}

// Descriptor is the contract for one operation.
//
// For KindObject, Fields are the members of the root object and ListField,
// when set, names the array member holding the result list. For KindArray,
// Fields describe every element.
type Descriptor struct {
	Operation   Operation
	Kind        Kind
	Description string
	Fields      []Field
	ListField   string
}

// List returns the declaration of the list field, if any.
func (d Descriptor) List() (Field, bool) {
	if d.ListField == "" {
		return Field{}, false
	}
	for _, f := range d.Fields {
		if f.Name == d.ListField {
			return f, true
		}
	}
	return Field{}, false
}

// ElementFields returns the fields of one result element: the item fields
// of the list field for object descriptors, or Fields for array descriptors.
func (d Descriptor) ElementFields() []Field {
	if d.Kind == KindArray {
		return d.Fields
	}
	if f, ok := d.List(); ok {
		return f.Items
	}
	return nil
}

var typeFields = []Field{
	{Name: "id", Type: String, Required: true},
	{Name: "name", Type: String, Required: true},
}

var candidateFields = []Field{
	{Name: "id", Type: String, Description: "stable identifier of the entity"},
	{Name: "name", Type: String, Required: true, Description: "canonical entity name"},
	{Name: "score", Type: Number, Description: "confidence between 0 and 1"},
	{Name: "match", Type: Boolean, Description: "true when this is certainly the entity"},
	{Name: "type", Type: Array, Items: typeFields},
	{Name: "description", Type: String},
}

var suggestFields = []Field{
	{Name: "id", Type: String, Required: true},
	{Name: "name", Type: String, Required: true},
	{Name: "description", Type: String},
	{Name: "score", Type: Number},
}

var valueFields = []Field{
	{Name: "str", Type: String},
	{Name: "num", Type: Number},
	{Name: "bool", Type: Boolean},
	{Name: "date", Type: String, Description: "ISO 8601 date"},
	{Name: "id", Type: String, Description: "entity identifier for entity values"},
	{Name: "name", Type: String, Description: "entity name for entity values"},
}

var registry = map[Operation]Descriptor{}

func register(d Descriptor) {
	registry[d.Operation] = d
}

func init() {
	register(Descriptor{
		Operation:   OpReconcile,
		Kind:        KindObject,
		Description: "ranked candidate entities for one query",
		ListField:   "result",
		Fields: []Field{
			{Name: "result", Type: Array, Required: true, Items: candidateFields},
		},
	})
	for _, op := range []Operation{OpSuggestEntity, OpSuggestType, OpSuggestProperty} {
		register(Descriptor{
			Operation:   op,
			Kind:        KindArray,
			Description: "auto-complete suggestions",
			Fields:      suggestFields,
		})
	}
	register(Descriptor{
		Operation:   OpExtend,
		Kind:        KindObject,
		Description: "property values of one entity",
		ListField:   "properties",
		Fields: []Field{
			{Name: "properties", Type: Array, Required: true, Items: []Field{
				{Name: "id", Type: String, Required: true, Description: "property id"},
				{Name: "name", Type: String, Description: "property display name"},
				{Name: "values", Type: Array, Items: valueFields},
			}},
		},
	})
	register(Descriptor{
		Operation:   OpPreview,
		Kind:        KindObject,
		Description: "HTML preview card of one entity",
		Fields: []Field{
			{Name: "html", Type: String, Required: true, Description: "self-contained HTML fragment"},
			{Name: "name", Type: String},
			{Name: "description", Type: String},
		},
	})
	register(Descriptor{
		Operation:   OpProposeProperties,
		Kind:        KindObject,
		Description: "properties commonly held by entities of a type",
		ListField:   "properties",
		Fields: []Field{
			{Name: "properties", Type: Array, Required: true, Items: []Field{
				{Name: "id", Type: String, Required: true},
				{Name: "name", Type: String, Required: true},
				{Name: "description", Type: String},
			}},
		},
	})
	register(Descriptor{
		Operation:   OpMatchChunk,
		Kind:        KindObject,
		Description: "best record of a reference dataset for one input chunk",
		Fields: []Field{
			{Name: "match", Type: String, Description: "the matching record as written in the data, or null"},
			{Name: "confidence", Type: Number, Required: true, Description: "confidence between 0 and 100"},
		},
	})
}

// Lookup returns the descriptor for op.
func Lookup(op Operation) (Descriptor, error) {
	d, ok := registry[op]
	if !ok {
		return Descriptor{}, errors.NewNotFoundError("operation", string(op))
	}
	return d, nil
}

// MustLookup is like Lookup but panics for unknown operations.
func MustLookup(op Operation) Descriptor {
	d, err := Lookup(op)
	if err != nil {
		panic(err)
	}
	return d
}

// Operations returns every registered operation, sorted by name.
func Operations() []Operation {
	ops := make([]Operation, 0, len(registry))
	for op := range registry {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// GenAISchema converts the descriptor to a Gemini response schema.
func (d Descriptor) GenAISchema() *genai.Schema {
	if d.Kind == KindArray {
		return &genai.Schema{
			Type:  genai.TypeArray,
			Items: objectSchema(d.Fields, d.Description),
		}
	}
	return objectSchema(d.Fields, d.Description)
}

func objectSchema(fields []Field, description string) *genai.Schema {
	s := &genai.Schema{
		Type:        genai.TypeObject,
		Description: description,
		Properties:  make(map[string]*genai.Schema, len(fields)),
	}
	for _, f := range fields {
		s.Properties[f.Name] = fieldSchema(f)
		s.PropertyOrdering = append(s.PropertyOrdering, f.Name)
		if f.Required {
			s.Required = append(s.Required, f.Name)
		}
	}
	return s
}

func fieldSchema(f Field) *genai.Schema {
	switch f.Type {
	case Array:
		s := &genai.Schema{Type: genai.TypeArray, Description: f.Description}
		if len(f.Items) > 0 {
			s.Items = objectSchema(f.Items, "")
		} else {
			s.Items = &genai.Schema{Type: genaiType(f.ItemType)}
		}
		return s
	default:
		return &genai.Schema{Type: genaiType(f.Type), Description: f.Description}
	}
}

func genaiType(t FieldType) genai.Type {
	switch t {
	case Number:
		return genai.TypeNumber
	case Boolean:
		return genai.TypeBoolean
	case Array:
		return genai.TypeArray
	case Object:
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// Describe renders a compact example document for use in prompts.
func (d Descriptor) Describe() string {
	var example any
	if d.Kind == KindArray {
		example = []any{exampleObject(d.Fields)}
	} else {
		example = exampleObject(d.Fields)
	}
	b, _ := json.Marshal(example)

	var sb strings.Builder
	sb.WriteString("Respond with JSON only, shaped like: ")
	sb.Write(b)
	if req := requiredNames(d); len(req) > 0 {
		sb.WriteString(". Required fields: ")
		sb.WriteString(strings.Join(req, ", "))
	}
	sb.WriteString(".")
	return sb.String()
}

func exampleObject(fields []Field) map[string]any {
	obj := make(map[string]any, len(fields))
	for _, f := range fields {
		obj[f.Name] = exampleValue(f)
	}
	return obj
}

func exampleValue(f Field) any {
	switch f.Type {
	case Number:
		return 0.0
	case Boolean:
		return false
	case Array:
		if len(f.Items) > 0 {
			return []any{exampleObject(f.Items)}
		}
		return []any{exampleValue(Field{Type: f.ItemType})}
	case Object:
		return map[string]any{}
	default:
		return "string"
	}
}

func requiredNames(d Descriptor) []string {
	var names []string
	if d.Kind == KindObject {
		for _, f := range d.Fields {
			if f.Required {
				names = append(names, f.Name)
			}
		}
	}
	for _, f := range d.ElementFields() {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}
