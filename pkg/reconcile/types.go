package reconcile

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/knwanna/universal-reconciliation-service/pkg/extract"
)

// Batch maps query ids to queries for one reconcile call.
type Batch map[string]Query

// Query is one free-text reconciliation query.
type Query struct {
	ID         string               `json:"-"`
	Text       string               `json:"query"`
	Type       string               `json:"type,omitempty"`
	TypeStrict string               `json:"type_strict,omitempty"`
	Limit      int                  `json:"limit,omitempty"`
	Properties []PropertyConstraint `json:"properties,omitempty"`
}

// UnmarshalJSON accepts the OpenRefine wire form, where type may be a
// string or a list of strings.
func (q *Query) UnmarshalJSON(data []byte) error {
	var wire struct {
		Query      string               `json:"query"`
		Type       json.RawMessage      `json:"type"`
		TypeStrict string               `json:"type_strict"`
		Limit      int                  `json:"limit"`
		Properties []PropertyConstraint `json:"properties"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	q.Text = wire.Query
	q.TypeStrict = wire.TypeStrict
	q.Limit = wire.Limit
	q.Properties = wire.Properties
	q.Type = ""

	raw := bytes.TrimSpace(wire.Type)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '[':
		var types []string
		if err := json.Unmarshal(raw, &types); err != nil {
			return err
		}
		if len(types) > 0 {
			q.Type = types[0]
		}
	default:
		if err := json.Unmarshal(raw, &q.Type); err != nil {
			return err
		}
	}
	return nil
}

// PropertyConstraint narrows a query by a known property value.
type PropertyConstraint struct {
	ID    string `json:"pid"`
	Value any    `json:"v,omitempty"`
}

// UnmarshalJSON accepts both pid/v and id/value keys.
func (p *PropertyConstraint) UnmarshalJSON(data []byte) error {
	var wire struct {
		PID   string `json:"pid"`
		ID    string `json:"id"`
		V     any    `json:"v"`
		Value any    `json:"value"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	p.ID = wire.PID
	if p.ID == "" {
		p.ID = wire.ID
	}
	p.Value = wire.V
	if p.Value == nil {
		p.Value = wire.Value
	}
	return nil
}

// Type is an entity type annotation.
type Type struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Feature is a named matching feature reported by the backend.
type Feature struct {
	ID    string `json:"id"`
	Value any    `json:"value"`
}

// Candidate is one ranked entity match.
type Candidate struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Score       float64   `json:"score"`
	Match       bool      `json:"match"`
	Types       []Type    `json:"type"`
	Description string    `json:"description,omitempty"`
	Features    []Feature `json:"features,omitempty"`
}

// ErrorKind is the coarse class of a per-query failure.
type ErrorKind string

// Error kinds.
const (
	ErrorKindBackend    ErrorKind = "backend"
	ErrorKindExtraction ErrorKind = "extraction"
	ErrorKindInternal   ErrorKind = "internal"
)

// ErrorInfo describes why a query failed.
type ErrorInfo struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// QueryResult is the outcome of one query. Err set means the query failed;
// Candidates is then empty.
type QueryResult struct {
	QueryID    string         `json:"queryId"`
	Candidates []Candidate    `json:"candidates"`
	Err        *ErrorInfo     `json:"error,omitempty"`
	Method     extract.Method `json:"-"`
	Coerced    bool           `json:"-"`
}

// Failed reports whether the query failed.
func (r QueryResult) Failed() bool { return r.Err != nil }

// Counts summarizes a batch.
type Counts struct {
	Queries    int `json:"queries"`
	Succeeded  int `json:"succeeded"`
	Failed     int `json:"failed"`
	Candidates int `json:"candidates"`
}

// BatchMetadata describes one reconcile invocation.
type BatchMetadata struct {
	ProcessedAt time.Time     `json:"processedAt"`
	Counts      Counts        `json:"counts"`
	Duration    time.Duration `json:"duration"`
}

// BatchResult holds one result per submitted query id.
type BatchResult struct {
	Results  map[string]QueryResult `json:"results"`
	Metadata BatchMetadata          `json:"metadata"`
}
