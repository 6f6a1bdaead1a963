package reconcile

import (
	"github.com/rs/zerolog"

	"github.com/knwanna/universal-reconciliation-service/pkg/constants"
	"github.com/knwanna/universal-reconciliation-service/pkg/errors"
	"github.com/knwanna/universal-reconciliation-service/pkg/logging"
)

type options struct {
	maxBatchSize   int
	maxConcurrency int
	matchThreshold float64
	defaultLimit   int
	maxLimit       int
	logger         *zerolog.Logger
	observer       Observer
	newID          func() string
}

func defaultOptions() *options {
	return &options{
		maxBatchSize:   constants.MaxBatchSize,
		maxConcurrency: constants.MaxConcurrency,
		matchThreshold: constants.MatchThreshold,
		defaultLimit:   constants.DefaultLimit,
		maxLimit:       constants.MaxLimit,
		logger:         logging.Default(),
		observer:       nopObserver{},
		newID:          newCandidateID,
	}
}

// Option is a function that configures an Engine.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.defaultLimit > o.maxLimit {
		return nil, &errors.ValidationError{
			Field:   "default_limit",
			Value:   o.defaultLimit,
			Message: "cannot exceed the maximum limit",
		}
	}
	return o, nil
}

func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

func positive(field string, n int) error {
	if n < 1 {
		return &errors.ValidationError{Field: field, Value: n, Message: "must be at least 1"}
	}
	return nil
}

// WithMaxBatchSize sets the largest accepted batch.
func WithMaxBatchSize(n int) Option {
	return func(o *options) error {
		if err := positive("max_batch_size", n); err != nil {
			return err
		}
		o.maxBatchSize = n
		return nil
	}
}

// WithMaxConcurrency bounds concurrently in-flight backend calls per batch.
func WithMaxConcurrency(n int) Option {
	return func(o *options) error {
		if err := positive("max_concurrency", n); err != nil {
			return err
		}
		o.maxConcurrency = n
		return nil
	}
}

// WithMatchThreshold sets the score above which a candidate without an
// explicit match flag is marked as a match.
func WithMatchThreshold(t float64) Option {
	return func(o *options) error {
		if t < 0 || t > 1 {
			return &errors.ValidationError{Field: "match_threshold", Value: t, Message: "must be within [0,1]"}
		}
		o.matchThreshold = t
		return nil
	}
}

// WithDefaultLimit sets the candidate count for queries without a limit.
func WithDefaultLimit(n int) Option {
	return func(o *options) error {
		if err := positive("default_limit", n); err != nil {
			return err
		}
		o.defaultLimit = n
		return nil
	}
}

// WithMaxLimit sets the hard ceiling on candidates per query.
func WithMaxLimit(n int) Option {
	return func(o *options) error {
		if err := positive("max_limit", n); err != nil {
			return err
		}
		o.maxLimit = n
		return nil
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return &errors.ValidationError{Field: "logger", Message: "cannot be nil"}
		}
		o.logger = logger
		return nil
	}
}

// WithObserver registers an observer for settled queries and batches.
func WithObserver(observer Observer) Option {
	return func(o *options) error {
		if observer == nil {
			return &errors.ValidationError{Field: "observer", Message: "cannot be nil"}
		}
		o.observer = observer
		return nil
	}
}

// WithIDGenerator replaces the generator used for candidates the backend
// returned without an id. Generated ids must be unique.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) error {
		if fn == nil {
			return &errors.ValidationError{Field: "id_generator", Message: "cannot be nil"}
		}
		o.newID = fn
		return nil
	}
}
