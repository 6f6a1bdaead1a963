package reconcile

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"
)

// MetadataKey is the top-level key holding response metadata.
const MetadataKey = "metadata"

// Response is the protocol form of a BatchResult: one entry per query id
// at the top level, plus a metadata object.
type Response struct {
	Results  map[string]QueryResponse
	Metadata ResponseMetadata
}

// QueryResponse is the protocol form of one query's result.
type QueryResponse struct {
	Result []CandidateResponse `json:"result"`
	Error  *ErrorInfo          `json:"error,omitempty"`
}

// CandidateResponse carries exactly the protocol fields of a candidate.
type CandidateResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        []Type    `json:"type"`
	Score       float64   `json:"score"`
	Match       bool      `json:"match"`
	Description string    `json:"description,omitempty"`
	Features    []Feature `json:"features,omitempty"`
}

// ResponseMetadata summarizes the batch for protocol clients.
type ResponseMetadata struct {
	ProcessedAt time.Time `json:"processedAt"`
	QueryCount  int       `json:"queryCount"`
	ErrorCount  int       `json:"errorCount"`
	DurationMs  int64     `json:"durationMs"`
}

// Assemble converts an engine result into its protocol form. Candidate
// lists are never nil and internal diagnostics are dropped.
func Assemble(br *BatchResult) Response {
	resp := Response{
		Results: make(map[string]QueryResponse, len(br.Results)),
		Metadata: ResponseMetadata{
			ProcessedAt: br.Metadata.ProcessedAt,
			QueryCount:  len(br.Results),
			DurationMs:  br.Metadata.Duration.Milliseconds(),
		},
	}
	for id, r := range br.Results {
		qr := QueryResponse{
			Result: make([]CandidateResponse, 0, len(r.Candidates)),
			Error:  r.Err,
		}
		for _, c := range r.Candidates {
			types := c.Types
			if types == nil {
				types = []Type{}
			}
			qr.Result = append(qr.Result, CandidateResponse{
				ID:          c.ID,
				Name:        c.Name,
				Type:        types,
				Score:       c.Score,
				Match:       c.Match,
				Description: c.Description,
				Features:    c.Features,
			})
		}
		if r.Failed() {
			resp.Metadata.ErrorCount++
		}
		resp.Results[id] = qr
	}
	return resp
}

// MarshalJSON writes query ids as top-level keys, in sorted order, followed
// by the metadata object. Metadata is left out when a query id would
// collide with its key.
func (r Response) MarshalJSON() ([]byte, error) {
	ids := make([]string, 0, len(r.Results))
	for id := range r.Results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range ids {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, id, r.Results[id]); err != nil {
			return nil, err
		}
	}
	if _, collides := r.Results[MetadataKey]; !collides {
		if len(ids) > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, MetadataKey, r.Metadata); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeMember(buf *bytes.Buffer, key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}
