package application

import (
	"github.com/rs/zerolog"

	"github.com/knwanna/universal-reconciliation-service/internal/backend"
	"github.com/knwanna/universal-reconciliation-service/internal/manifest"
	"github.com/knwanna/universal-reconciliation-service/pkg/reconcile"
)

// Mock provides a mock implementation of Application for testing.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a default value; the
// default engine answers every prompt with an empty result list.
type Mock struct {
	EngineFunc       func(opts ...reconcile.Option) (*reconcile.Engine, error)
	ManifestFunc     func() manifest.Config
	LoggerFunc       func() *zerolog.Logger
	OutputFormatFunc func() string
	VersionFunc      func() string
	CommitFunc       func() string
	DateFunc         func() string
	BuiltByFunc      func() string
}

// Engine returns an engine using the mock function or an empty-answer stub.
func (m *Mock) Engine(opts ...reconcile.Option) (*reconcile.Engine, error) {
	if m.EngineFunc != nil {
		return m.EngineFunc(opts...)
	}
	return reconcile.New(backend.StaticStub(`{"result":[]}`), opts...)
}

// Manifest returns manifest config using the mock function or the defaults.
func (m *Mock) Manifest() manifest.Config {
	if m.ManifestFunc != nil {
		return m.ManifestFunc()
	}
	return manifest.DefaultConfig()
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns output format using the mock function or "table".
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "table"
}

// Version returns version using the mock function or "dev".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}

// Commit returns commit using the mock function or "unknown".
func (m *Mock) Commit() string {
	if m.CommitFunc != nil {
		return m.CommitFunc()
	}
	return "unknown"
}

// Date returns date using the mock function or "unknown".
func (m *Mock) Date() string {
	if m.DateFunc != nil {
		return m.DateFunc()
	}
	return "unknown"
}

// BuiltBy returns builtBy using the mock function or "test".
func (m *Mock) BuiltBy() string {
	if m.BuiltByFunc != nil {
		return m.BuiltByFunc()
	}
	return "test"
}

// Ensure Mock implements Application at compile time.
var _ Application = (*Mock)(nil)
