package server

import (
	"time"

	"github.com/knwanna/universal-reconciliation-service/pkg/constants"
)

// Config holds server configuration.
type Config struct {
	// Server settings
	Host string
	Port int

	// API settings
	PathPrefix string
	// BaseURL is the public origin advertised in the manifest. When empty
	// it is derived from each request's Host header.
	BaseURL string
	// ManifestFile optionally overrides the generated manifest (YAML).
	ManifestFile string
	// DataDir holds the reference datasets for stream-chunk matching.
	// Empty disables the endpoint.
	DataDir string

	// CORS settings
	CORSEnabled bool
	CORSOrigins []string

	// Authentication settings
	AuthEnabled bool
	AuthHeader  string
	AuthAPIKey  string

	// Performance settings
	RateLimit       int // Requests per minute per IP (0 to disable)
	CacheTTL        time.Duration
	MaxRequestBytes int64

	// HTTP timeouts
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Features
	MetricsEnabled bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            constants.DefaultPort,
		PathPrefix:      constants.DefaultPathPrefix,
		CORSEnabled:     false,
		CORSOrigins:     []string{},
		AuthEnabled:     false,
		AuthHeader:      "X-API-Key",
		RateLimit:       constants.DefaultRateLimit,
		CacheTTL:        constants.DefaultCacheTTL,
		MaxRequestBytes: constants.MaxRequestBytes,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    2 * time.Minute,
		IdleTimeout:     120 * time.Second,
		MetricsEnabled:  true,
	}
}
