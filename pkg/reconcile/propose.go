package reconcile

import (
	"context"
	"strings"

	"github.com/knwanna/universal-reconciliation-service/pkg/constants"
	"github.com/knwanna/universal-reconciliation-service/pkg/errors"
	"github.com/knwanna/universal-reconciliation-service/pkg/logging"
	"github.com/knwanna/universal-reconciliation-service/pkg/schema"
)

// ProposeResponse lists properties worth extending entities of a type with.
type ProposeResponse struct {
	Type       string         `json:"type"`
	Limit      int            `json:"limit"`
	Properties []PropertyMeta `json:"properties"`
	Err        *ErrorInfo     `json:"error,omitempty"`
}

// ProposeProperties suggests properties for entities of typeID.
func (e *Engine) ProposeProperties(ctx context.Context, typeID string, limit int) (*ProposeResponse, error) {
	typeID = strings.TrimSpace(typeID)
	if typeID == "" {
		return nil, &errors.ValidationError{Field: "type", Message: "must not be empty"}
	}
	limit, err := clampLimit("limit", limit, constants.DefaultProposeLimit, constants.MaxSuggestLimit)
	if err != nil {
		return nil, err
	}

	ctx = logging.WithField(e.scope(ctx, schema.OpProposeProperties), "type", typeID)
	resp := &ProposeResponse{Type: typeID, Limit: limit, Properties: []PropertyMeta{}}
	d := schema.MustLookup(schema.OpProposeProperties)
	ans, err := e.ask(ctx, d, proposePrompt(typeID, limit, d), hasIDAndName)
	if err != nil {
		resp.Err = errorInfo(err)
		logging.FromContext(ctx).Warn().Err(err).Msg("Property proposal failed")
		return resp, nil
	}

	for _, obj := range ans.items {
		resp.Properties = append(resp.Properties, PropertyMeta{
			ID:          stringField(obj, "id"),
			Name:        stringField(obj, nameKeys...),
			Description: stringField(obj, "description"),
		})
		if len(resp.Properties) == limit {
			break
		}
	}
	return resp, nil
}
