package reconcile

import "context"

// Observer is notified as reconciliation work settles. Calls may arrive
// concurrently from several goroutines and must not block for long.
type Observer interface {
	// QuerySettled is called once per query, success or failure.
	QuerySettled(ctx context.Context, result QueryResult)
	// BatchCompleted is called after every query of a batch has settled.
	BatchCompleted(ctx context.Context, result *BatchResult)
}

type nopObserver struct{}

func (nopObserver) QuerySettled(context.Context, QueryResult)   {}
func (nopObserver) BatchCompleted(context.Context, *BatchResult) {}

// Observers fans notifications out to several observers in order.
type Observers []Observer

// QuerySettled notifies every observer.
func (obs Observers) QuerySettled(ctx context.Context, result QueryResult) {
	for _, o := range obs {
		o.QuerySettled(ctx, result)
	}
}

// BatchCompleted notifies every observer.
func (obs Observers) BatchCompleted(ctx context.Context, result *BatchResult) {
	for _, o := range obs {
		o.BatchCompleted(ctx, result)
	}
}
