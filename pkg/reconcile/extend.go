package reconcile

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/knwanna/universal-reconciliation-service/pkg/constants"
	"github.com/knwanna/universal-reconciliation-service/pkg/errors"
	"github.com/knwanna/universal-reconciliation-service/pkg/logging"
	"github.com/knwanna/universal-reconciliation-service/pkg/schema"
)

// ExtendRequest asks for property values of reconciled entities.
type ExtendRequest struct {
	IDs        []string         `json:"ids"`
	Properties []ExtendProperty `json:"properties"`
}

// ExtendProperty names one requested property. Settings may carry a
// "limit" on the number of values returned.
type ExtendProperty struct {
	ID       string         `json:"id"`
	Settings map[string]any `json:"settings,omitempty"`
}

func (p ExtendProperty) limit() int {
	switch v := p.Settings["limit"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return 0
}

// PropertyMeta describes one column of an extend response.
type PropertyMeta struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Value is one property value. Exactly one of the kinds is normally set;
// entity values use ID and Name.
type Value struct {
	Str  *string  `json:"str,omitempty"`
	Num  *float64 `json:"num,omitempty"`
	Bool *bool    `json:"bool,omitempty"`
	Date *string  `json:"date,omitempty"`
	ID   string   `json:"id,omitempty"`
	Name string   `json:"name,omitempty"`
}

// ExtendResponse is the protocol form of a data extension. Rows maps
// entity id to property id to values; every requested pair is present.
type ExtendResponse struct {
	Meta   []PropertyMeta                `json:"meta"`
	Rows   map[string]map[string][]Value `json:"rows"`
	Errors map[string]*ErrorInfo         `json:"errors,omitempty"`
}

type extendRow struct {
	id     string
	values map[string][]Value
	names  map[string]string
	err    *ErrorInfo
}

// Extend fetches property values for every entity concurrently. A failed
// entity gets empty value lists and an entry in Errors; only invalid input
// is returned as an error.
func (e *Engine) Extend(ctx context.Context, req ExtendRequest) (*ExtendResponse, error) {
	ids, props, err := validateExtend(req)
	if err != nil {
		return nil, err
	}

	ctx = e.scope(ctx, schema.OpExtend)
	rows := make([]extendRow, len(ids))
	g := new(errgroup.Group)
	g.SetLimit(e.opts.maxConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			rows[i] = e.extendOne(ctx, id, props)
			return nil
		})
	}
	_ = g.Wait()

	resp := &ExtendResponse{
		Meta: make([]PropertyMeta, 0, len(props)),
		Rows: make(map[string]map[string][]Value, len(ids)),
	}
	for _, p := range props {
		meta := PropertyMeta{ID: p.ID, Name: TypeName(p.ID)}
		for _, r := range rows {
			if name := r.names[p.ID]; name != "" {
				meta.Name = name
				break
			}
		}
		resp.Meta = append(resp.Meta, meta)
	}
	for _, r := range rows {
		resp.Rows[r.id] = r.values
		if r.err != nil {
			if resp.Errors == nil {
				resp.Errors = make(map[string]*ErrorInfo)
			}
			resp.Errors[r.id] = r.err
		}
	}
	return resp, nil
}

func (e *Engine) extendOne(ctx context.Context, id string, props []ExtendProperty) (row extendRow) {
	row = extendRow{id: id, values: emptyValues(props), names: map[string]string{}}
	ctx = logging.WithField(ctx, "entity_id", id)
	defer func() {
		if r := recover(); r != nil {
			row = extendRow{
				id:     id,
				values: emptyValues(props),
				err:    errorInfo(&errors.InternalError{Operation: string(schema.OpExtend), Panic: r}),
			}
		}
	}()

	d := schema.MustLookup(schema.OpExtend)
	ans, err := e.ask(ctx, d, extendPrompt(id, props, d), func(obj map[string]any) bool {
		return stringField(obj, "id") != ""
	})
	if err != nil {
		row.err = errorInfo(err)
		logging.FromContext(ctx).Warn().Err(err).Msg("Extend failed")
		return row
	}

	wanted := make(map[string]ExtendProperty, len(props))
	for _, p := range props {
		wanted[p.ID] = p
	}
	for _, obj := range ans.items {
		pid := stringField(obj, "id")
		p, ok := wanted[pid]
		if !ok {
			continue
		}
		row.names[pid] = stringField(obj, nameKeys...)
		values := parseValues(obj["values"])
		if limit := p.limit(); limit > 0 && len(values) > limit {
			values = values[:limit]
		}
		row.values[pid] = values
	}
	return row
}

func emptyValues(props []ExtendProperty) map[string][]Value {
	values := make(map[string][]Value, len(props))
	for _, p := range props {
		values[p.ID] = []Value{}
	}
	return values
}

// parseValues maps backend values onto protocol values. Bare primitives
// are accepted as well as {str|num|bool|date|id,name} objects.
func parseValues(v any) []Value {
	items, ok := v.([]any)
	if !ok {
		if v == nil {
			return []Value{}
		}
		items = []any{v}
	}

	values := make([]Value, 0, len(items))
	for _, item := range items {
		switch t := item.(type) {
		case string:
			values = append(values, Value{Str: &t})
		case float64:
			values = append(values, Value{Num: &t})
		case bool:
			values = append(values, Value{Bool: &t})
		case map[string]any:
			if val, ok := objectValue(t); ok {
				values = append(values, val)
			}
		}
	}
	return values
}

func objectValue(obj map[string]any) (Value, bool) {
	if id := stringField(obj, "id"); id != "" {
		return Value{ID: id, Name: stringField(obj, nameKeys...)}, true
	}
	if s, ok := obj["str"].(string); ok {
		return Value{Str: &s}, true
	}
	if n, ok := obj["num"].(float64); ok {
		return Value{Num: &n}, true
	}
	if b, ok := obj["bool"].(bool); ok {
		return Value{Bool: &b}, true
	}
	if d, ok := obj["date"].(string); ok {
		return Value{Date: &d}, true
	}
	return Value{}, false
}

func validateExtend(req ExtendRequest) ([]string, []ExtendProperty, error) {
	ids := dedupe(req.IDs)
	if len(ids) == 0 || len(ids) > constants.MaxExtendIDs {
		return nil, nil, &errors.ValidationError{
			Field:   "ids",
			Value:   len(ids),
			Message: fmt.Sprintf("must contain 1 to %d entity ids", constants.MaxExtendIDs),
		}
	}

	seen := make(map[string]bool, len(req.Properties))
	props := make([]ExtendProperty, 0, len(req.Properties))
	for _, p := range req.Properties {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		props = append(props, p)
	}
	if len(props) == 0 || len(props) > constants.MaxExtendProperties {
		return nil, nil, &errors.ValidationError{
			Field:   "properties",
			Value:   len(props),
			Message: fmt.Sprintf("must contain 1 to %d properties", constants.MaxExtendProperties),
		}
	}
	return ids, props, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
