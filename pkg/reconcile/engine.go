// Package reconcile implements the query-batch reconciliation engine.
//
// An Engine accepts a batch of independent free-text queries, asks the
// answer backend about each one concurrently, recovers the JSON answer with
// package extract, normalizes it into ranked candidates and reports one
// result per query. A failing query never fails its siblings or the batch;
// only a malformed batch is rejected, before any backend call is made.
//
// The same single-call pipeline backs the auxiliary operations: Suggest,
// Preview, Extend and ProposeProperties.
package reconcile

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/knwanna/universal-reconciliation-service/pkg/errors"
	"github.com/knwanna/universal-reconciliation-service/pkg/logging"
	"github.com/knwanna/universal-reconciliation-service/pkg/schema"
)

// Backend generates raw answer text for a prompt constrained by a schema.
type Backend interface {
	Generate(ctx context.Context, prompt string, d schema.Descriptor) (string, error)
}

// Engine reconciles query batches against a Backend. It is safe for
// concurrent use.
type Engine struct {
	backend  Backend
	opts     *options
	logger   *zerolog.Logger
	observer Observer
}

// New creates an Engine.
func New(backend Backend, opts ...Option) (*Engine, error) {
	if backend == nil {
		return nil, &errors.ValidationError{Field: "backend", Message: "cannot be nil"}
	}
	o, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &Engine{
		backend:  backend,
		opts:     o,
		logger:   o.logger,
		observer: o.observer,
	}, nil
}

// MaxBatchSize returns the largest batch the engine accepts.
func (e *Engine) MaxBatchSize() int { return e.opts.maxBatchSize }

// MatchThreshold returns the score above which candidates count as matches.
func (e *Engine) MatchThreshold() float64 { return e.opts.matchThreshold }

// Reconcile runs every query of batch and waits for all of them to settle.
// It returns a *errors.ValidationError, without calling the backend, when
// the batch is malformed. Per-query failures are reported in the result.
func (e *Engine) Reconcile(ctx context.Context, batch Batch) (*BatchResult, error) {
	if err := e.validateBatch(batch); err != nil {
		return nil, err
	}

	ctx = e.scope(ctx, schema.OpReconcile)
	start := time.Now()
	ids := sortedIDs(batch)
	results := make([]QueryResult, len(ids))

	g := new(errgroup.Group)
	g.SetLimit(e.opts.maxConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			q := batch[id]
			q.ID = id
			results[i] = e.runQuery(ctx, q)
			e.notify(ctx, "query_settled", func() { e.observer.QuerySettled(ctx, results[i]) })
			return nil
		})
	}
	_ = g.Wait()

	br := &BatchResult{
		Results: make(map[string]QueryResult, len(ids)),
		Metadata: BatchMetadata{
			ProcessedAt: time.Now().UTC(),
			Duration:    time.Since(start),
		},
	}
	counts := &br.Metadata.Counts
	for _, r := range results {
		br.Results[r.QueryID] = r
		counts.Queries++
		if r.Failed() {
			counts.Failed++
		} else {
			counts.Succeeded++
		}
		counts.Candidates += len(r.Candidates)
	}

	logging.FromContext(ctx).Debug().
		Int("queries", counts.Queries).
		Int("failed", counts.Failed).
		Int("candidates", counts.Candidates).
		Dur("duration", br.Metadata.Duration).
		Msg("Batch reconciled")

	e.notify(ctx, "batch_completed", func() { e.observer.BatchCompleted(ctx, br) })
	return br, nil
}

// scope returns ctx carrying a logger tagged with op and the backend name.
// A logger already in ctx, such as a per-request one, takes precedence over
// the engine logger.
func (e *Engine) scope(ctx context.Context, op schema.Operation) context.Context {
	ctx = logging.WithDefaultLogger(ctx, e.logger)
	ctx = logging.WithOperation(ctx, op.String())
	if n, ok := e.backend.(interface{ Name() string }); ok {
		ctx = logging.WithBackend(ctx, n.Name())
	}
	return ctx
}

// notify runs an observer callback. A panicking observer is logged and
// never reaches the caller.
func (e *Engine) notify(ctx context.Context, event string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logging.FromContext(ctx).Error().
				Str("event", event).
				Interface("panic", r).
				Msg("Observer panicked")
		}
	}()
	fn()
}

// runQuery never panics; a panic becomes an internal error for this query.
func (e *Engine) runQuery(ctx context.Context, q Query) (res QueryResult) {
	ctx = logging.WithQuery(ctx, q.ID)
	defer func() {
		if r := recover(); r != nil {
			res = e.failed(ctx, q.ID, &errors.InternalError{Operation: string(schema.OpReconcile), Panic: r})
		}
	}()

	d := schema.MustLookup(schema.OpReconcile)
	ans, err := e.ask(ctx, d, reconcilePrompt(q, e.limitFor(q), d), hasName)
	if err != nil {
		return e.failed(ctx, q.ID, err)
	}

	candidates := make([]Candidate, 0, len(ans.items))
	for _, obj := range ans.items {
		if c, ok := e.toCandidate(obj); ok {
			candidates = append(candidates, c)
		}
	}
	sortCandidates(candidates)
	if limit := e.limitFor(q); len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return QueryResult{
		QueryID:    q.ID,
		Candidates: candidates,
		Method:     ans.method,
		Coerced:    ans.coerced,
	}
}

func (e *Engine) failed(ctx context.Context, id string, err error) QueryResult {
	info := errorInfo(err)
	logging.FromContext(ctx).Warn().
		Str("kind", string(info.Kind)).
		Str("code", info.Code).
		Err(err).
		Msg("Query failed")
	return QueryResult{QueryID: id, Candidates: []Candidate{}, Err: info}
}

// limitFor returns the effective candidate limit of q.
func (e *Engine) limitFor(q Query) int {
	limit := q.Limit
	if limit <= 0 {
		limit = e.opts.defaultLimit
	}
	if limit > e.opts.maxLimit {
		limit = e.opts.maxLimit
	}
	return limit
}

// sortCandidates orders by score descending, keeping backend order on ties.
func sortCandidates(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		return cs[i].Score > cs[j].Score
	})
}

func sortedIDs(batch Batch) []string {
	ids := make([]string, 0, len(batch))
	for id := range batch {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func newCandidateID() string {
	return "urs-" + uuid.NewString()
}

// errorInfo classifies a per-query failure.
func errorInfo(err error) *ErrorInfo {
	var be *errors.BackendError
	if errors.As(err, &be) {
		return &ErrorInfo{Kind: ErrorKindBackend, Code: string(be.Kind), Message: be.Error()}
	}
	var ee *errors.ExtractionError
	if errors.As(err, &ee) {
		return &ErrorInfo{Kind: ErrorKindExtraction, Code: string(ee.Reason), Message: ee.Error()}
	}
	var ie *errors.InternalError
	if errors.As(err, &ie) {
		return &ErrorInfo{Kind: ErrorKindInternal, Code: "internal", Message: "internal error"}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &ErrorInfo{Kind: ErrorKindBackend, Code: string(errors.BackendTimeout), Message: err.Error()}
	}
	return &ErrorInfo{Kind: ErrorKindBackend, Code: string(errors.BackendUpstream), Message: err.Error()}
}
