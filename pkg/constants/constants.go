// Package constants provides shared constants used throughout the reconciliation
// service. This includes timeouts, limits, protocol defaults and file permissions
// that should be consistent across the engine, the server and the CLI.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultBackendTimeout bounds a single answer backend call
	DefaultBackendTimeout = 30 * time.Second

	// DefaultTimeout is the standard timeout for general operations
	DefaultTimeout = 10 * time.Second

	// CommandTimeout is the default timeout for one-shot CLI commands
	CommandTimeout = 2 * time.Minute

	// ShutdownTimeout is how long the server waits for in-flight requests
	ShutdownTimeout = 30 * time.Second
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Reconciliation limits and defaults
const (
	// MaxBatchSize is the largest number of queries accepted in one reconcile call
	MaxBatchSize = 50

	// MaxConcurrency bounds concurrently in-flight backend calls per batch
	MaxConcurrency = 10

	// MatchThreshold is the score above which a candidate is flagged as a match
	MatchThreshold = 0.7

	// DefaultLimit is the number of candidates returned when a query sets none
	DefaultLimit = 5

	// MaxLimit is the hard ceiling on candidates per query
	MaxLimit = 100

	// MaxQueryLength is the longest accepted query text, in characters
	MaxQueryLength = 1000

	// MaxTypeLength is the longest accepted type hint, in characters
	MaxTypeLength = 100
)

// Suggest, extend and propose limits
const (
	// MaxPrefixLength is the longest accepted suggest prefix
	MaxPrefixLength = 100

	// DefaultSuggestLimit is the number of suggestions returned by default
	DefaultSuggestLimit = 10

	// MaxSuggestLimit is the hard ceiling on suggestions
	MaxSuggestLimit = 50

	// MaxExtendIDs is the largest number of entity ids in one extend request
	MaxExtendIDs = 100

	// MaxExtendProperties is the largest number of properties in one extend request
	MaxExtendProperties = 20

	// DefaultProposeLimit is the number of proposed properties returned by default
	DefaultProposeLimit = 10

	// MaxChunkDataBytes bounds the reference data sent with one chunk match
	MaxChunkDataBytes = 256 << 10
)

// Backend defaults
const (
	// DefaultModel is the generative model used when none is configured
	DefaultModel = "gemini-2.5-flash"

	// DefaultTemperature keeps answers close to deterministic
	DefaultTemperature = 0.3

	// DefaultMaxOutputTokens bounds the size of one backend answer
	DefaultMaxOutputTokens = 4096

	// DefaultBackendRPS is the steady-state request rate against the backend
	DefaultBackendRPS = 10.0

	// DefaultBackendBurst is the limiter burst size
	DefaultBackendBurst = 10
)

// Service description defaults
const (
	// DefaultServiceName is the name advertised in the service manifest
	DefaultServiceName = "Universal Reconciliation Service"

	// DefaultIdentifierSpace is the advertised identifier space
	DefaultIdentifierSpace = "http://www.wikidata.org/entity/"

	// DefaultSchemaSpace is the advertised schema space
	DefaultSchemaSpace = "http://www.wikidata.org/prop/direct/"

	// PreviewWidth is the advertised preview iframe width
	PreviewWidth = 600

	// PreviewHeight is the advertised preview iframe height
	PreviewHeight = 400
)

// Server defaults
const (
	// DefaultPort is the default HTTP port
	DefaultPort = 8080

	// DefaultPathPrefix is the default API path prefix
	DefaultPathPrefix = "/api/v1"

	// DefaultCacheTTL is how long suggest/preview answers are cached
	DefaultCacheTTL = 5 * time.Minute

	// DefaultRateLimit is the per-IP requests per minute
	DefaultRateLimit = 100

	// MaxRequestBytes bounds request bodies
	MaxRequestBytes = 1 << 20
)
