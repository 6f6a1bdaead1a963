package events

import (
	"context"
	"sort"
	"sync"

	"github.com/knwanna/universal-reconciliation-service/pkg/reconcile"
)

// Recorder observes the reconciliation engine, publishing activity on a
// Broker and keeping running totals for the metrics endpoint.
type Recorder struct {
	broker *Broker

	mu         sync.Mutex
	batches    uint64
	queries    uint64
	failed     uint64
	candidates uint64
	extends    uint64
	chunks     uint64
	failures   map[string]uint64
}

// NewRecorder creates a recorder publishing on broker.
func NewRecorder(broker *Broker) *Recorder {
	return &Recorder{
		broker:   broker,
		failures: make(map[string]uint64),
	}
}

var _ reconcile.Observer = (*Recorder)(nil)

// QuerySettled publishes a summary of one settled query.
func (r *Recorder) QuerySettled(_ context.Context, result reconcile.QueryResult) {
	r.mu.Lock()
	r.queries++
	r.candidates += uint64(len(result.Candidates))
	if result.Err != nil {
		r.failed++
		r.failures[result.Err.Code]++
	}
	r.mu.Unlock()

	data := map[string]any{
		"query_id":   result.QueryID,
		"candidates": len(result.Candidates),
	}
	if len(result.Candidates) > 0 {
		top := result.Candidates[0]
		data["top"] = map[string]any{
			"id":    top.ID,
			"name":  top.Name,
			"score": top.Score,
			"match": top.Match,
		}
	}
	if result.Err != nil {
		data["error"] = result.Err
	}
	r.broker.Publish(QuerySettled, data)
}

// BatchCompleted publishes the counts of a finished batch.
func (r *Recorder) BatchCompleted(_ context.Context, result *reconcile.BatchResult) {
	r.mu.Lock()
	r.batches++
	r.mu.Unlock()

	r.broker.Publish(BatchCompleted, map[string]any{
		"counts":      result.Metadata.Counts,
		"duration_ms": result.Metadata.Duration.Milliseconds(),
	})
}

// ExtendCompleted publishes the outcome of a data-extension request.
func (r *Recorder) ExtendCompleted(resp *reconcile.ExtendResponse) {
	r.mu.Lock()
	r.extends++
	r.mu.Unlock()

	properties := make([]string, 0, len(resp.Meta))
	for _, m := range resp.Meta {
		properties = append(properties, m.ID)
	}
	r.broker.Publish(ExtendCompleted, map[string]any{
		"rows":       len(resp.Rows),
		"failed":     len(resp.Errors),
		"properties": properties,
	})
}

// ChunkMatched publishes the outcome of matching one chunk against dataset.
func (r *Recorder) ChunkMatched(dataset string, res *reconcile.ChunkMatch) {
	r.mu.Lock()
	r.chunks++
	r.mu.Unlock()

	data := map[string]any{
		"dataset":    dataset,
		"input":      res.Input,
		"matched":    res.Match != nil,
		"confidence": res.Confidence,
	}
	if res.Err != nil {
		data["error"] = res.Err
	}
	r.broker.Publish(ChunkMatched, data)
}

// Totals is a snapshot of the recorder counters.
type Totals struct {
	Batches    uint64
	Queries    uint64
	Failed     uint64
	Candidates uint64
	Extends    uint64
	Chunks     uint64
	// Failures counts failed queries by error code.
	Failures []CodeCount
}

// CodeCount pairs an error code with its count.
type CodeCount struct {
	Code  string
	Count uint64
}

// Totals returns the current counters, with failures sorted by code.
func (r *Recorder) Totals() Totals {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := Totals{
		Batches:    r.batches,
		Queries:    r.queries,
		Failed:     r.failed,
		Candidates: r.candidates,
		Extends:    r.extends,
		Chunks:     r.chunks,
		Failures:   make([]CodeCount, 0, len(r.failures)),
	}
	for code, n := range r.failures {
		t.Failures = append(t.Failures, CodeCount{Code: code, Count: n})
	}
	sort.Slice(t.Failures, func(i, j int) bool { return t.Failures[i].Code < t.Failures[j].Code })
	return t
}
