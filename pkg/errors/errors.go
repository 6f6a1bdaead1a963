// Package errors provides custom error types for the reconciliation service.
// These errors enable programmatic error checking across the engine, the
// answer backend and the HTTP layer.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is and As are aliases for the standard library functions so callers can
// use a single errors import.
var (
	Is = errors.Is
	As = errors.As
)

// Common sentinel errors for the reconciliation service
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrAPIKeyRequired indicates that an API key is required but not provided
	ErrAPIKeyRequired = errors.New("API key required")

	// ErrAPIKeyInvalid indicates that the backend rejected the credentials
	ErrAPIKeyInvalid = errors.New("API key invalid")

	// ErrProviderUnavailable indicates that the answer backend failed upstream
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrRateLimited indicates that the backend quota has been exceeded
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")

	// ErrUnparseable indicates backend output contained no recoverable JSON
	ErrUnparseable = errors.New("unparseable output")

	// ErrSchemaMismatch indicates backend output did not match the expected schema
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrInternal indicates an unexpected fault inside the pipeline
	ErrInternal = errors.New("internal error")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure of caller input.
// Details lists every individual problem found, when more than one.
type ValidationError struct {
	Field   string
	Value   any
	Message string
	Details []string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// BackendKind classifies answer backend failures.
type BackendKind string

// Backend failure kinds.
const (
	BackendTimeout       BackendKind = "timeout"
	BackendQuotaExceeded BackendKind = "quota_exceeded"
	BackendUnauthorized  BackendKind = "unauthorized"
	BackendUpstream      BackendKind = "upstream"
)

// BackendError represents a failure of the answer-generation backend.
type BackendError struct {
	Provider   string
	Kind       BackendKind
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *BackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("backend error from %s (%s, status %d): %s", e.Provider, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend error from %s (%s): %s", e.Provider, e.Kind, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *BackendError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *BackendError) Is(target error) bool {
	switch e.Kind {
	case BackendTimeout:
		return target == ErrTimeout
	case BackendQuotaExceeded:
		return target == ErrRateLimited
	case BackendUnauthorized:
		return target == ErrAPIKeyInvalid
	case BackendUpstream:
		return target == ErrProviderUnavailable
	}
	return false
}

// NewBackendError creates a new BackendError
func NewBackendError(provider string, kind BackendKind, message string, err error) *BackendError {
	return &BackendError{
		Provider: provider,
		Kind:     kind,
		Message:  message,
		Err:      err,
	}
}

// BackendKindFromStatus maps an upstream HTTP status code to a BackendKind.
func BackendKindFromStatus(status int) BackendKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return BackendUnauthorized
	case status == http.StatusTooManyRequests:
		return BackendQuotaExceeded
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return BackendTimeout
	default:
		return BackendUpstream
	}
}

// ExtractionReason classifies extraction failures.
type ExtractionReason string

// Extraction failure reasons.
const (
	Unparseable    ExtractionReason = "unparseable"
	SchemaMismatch ExtractionReason = "schema_mismatch"
)

// ExtractionError represents backend output that could not be turned into
// the expected structure. For SchemaMismatch, Value holds the parsed JSON so
// callers can attempt a partial recovery.
type ExtractionError struct {
	Operation string
	Reason    ExtractionReason
	Problems  []string
	Value     any
	Err       error
}

// Error implements the error interface
func (e *ExtractionError) Error() string {
	if len(e.Problems) > 0 {
		return fmt.Sprintf("extraction failed for %s (%s): %v", e.Operation, e.Reason, e.Problems)
	}
	if e.Err != nil {
		return fmt.Sprintf("extraction failed for %s (%s): %v", e.Operation, e.Reason, e.Err)
	}
	return fmt.Sprintf("extraction failed for %s (%s)", e.Operation, e.Reason)
}

// Unwrap implements errors.Unwrap
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ExtractionError) Is(target error) bool {
	switch e.Reason {
	case Unparseable:
		return target == ErrUnparseable
	case SchemaMismatch:
		return target == ErrSchemaMismatch
	}
	return false
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// InternalError represents an unexpected fault, usually a recovered panic.
type InternalError struct {
	Operation string
	Panic     any
	Err       error
}

// Error implements the error interface
func (e *InternalError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("internal error during %s: panic: %v", e.Operation, e.Panic)
	}
	return fmt.Sprintf("internal error during %s: %v", e.Operation, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *InternalError) Is(target error) bool {
	return target == ErrInternal
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml"
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsAPIKeyError checks if an error is related to API keys
func IsAPIKeyError(err error) bool {
	return errors.Is(err, ErrAPIKeyRequired) || errors.Is(err, ErrAPIKeyInvalid)
}

// IsRateLimited checks if an error is a rate limit error
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// IsProviderUnavailable checks if an error indicates backend unavailability
func IsProviderUnavailable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}

// IsExtractionError checks if an error is an extraction failure of any reason
func IsExtractionError(err error) bool {
	return errors.Is(err, ErrUnparseable) || errors.Is(err, ErrSchemaMismatch)
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Format: format, File: file, Message: err.Error(), Err: err}
}

// WrapBackend wraps an error as a BackendError, classifying it by status.
func WrapBackend(provider string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{
		Provider:   provider,
		Kind:       BackendKindFromStatus(statusCode),
		StatusCode: statusCode,
		Message:    err.Error(),
		Err:        err,
	}
}
