package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/knwanna/universal-reconciliation-service/pkg/constants"
	"github.com/knwanna/universal-reconciliation-service/pkg/errors"
)

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Backend configuration
	APIKey          string
	Project         string
	Location        string
	Model           string
	BackendTimeout  time.Duration
	BackendRPS      float64
	BackendBurst    int
	Temperature     float64
	MaxOutputTokens int

	// Engine tunables
	MaxBatchSize   int
	MaxConcurrency int
	MatchThreshold float64
	DefaultLimit   int

	// Service description
	ServiceName     string
	IdentifierSpace string
	SchemaSpace     string
	ViewURL         string
	ManifestFile    string
	DataDir         string

	// Server settings read from the environment; serve flags override them.
	HTTPHost string
	HTTPPort int
	BaseURL  string
	APIToken string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (~/.reconciler.yaml or ./.reconciler.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	return loadConfig(os.Getenv("RECONCILER_CONFIG"))
}

func loadConfig(configFile string) (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	setDefaults(v)

	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		// Search for config in standard locations
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".reconciler")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicitly named file must exist; the search path is optional.
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, errors.NewConfigError("config", "cannot read config file", err)
		}
	}

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no_color"),
		Format:  v.GetString("format"),

		ConfigFile: v.ConfigFileUsed(),

		APIKey:          v.GetString("gemini_api_key"),
		Project:         v.GetString("google_cloud_project"),
		Location:        v.GetString("google_cloud_location"),
		Model:           v.GetString("model"),
		BackendTimeout:  v.GetDuration("backend_timeout"),
		BackendRPS:      v.GetFloat64("backend_rps"),
		BackendBurst:    v.GetInt("backend_burst"),
		Temperature:     v.GetFloat64("temperature"),
		MaxOutputTokens: v.GetInt("max_output_tokens"),

		MaxBatchSize:   v.GetInt("max_batch_size"),
		MaxConcurrency: v.GetInt("max_concurrency"),
		MatchThreshold: v.GetFloat64("match_threshold"),
		DefaultLimit:   v.GetInt("default_limit"),

		ServiceName:     v.GetString("service_name"),
		IdentifierSpace: v.GetString("identifier_space"),
		SchemaSpace:     v.GetString("schema_space"),
		ViewURL:         v.GetString("view_url"),
		ManifestFile:    v.GetString("manifest_file"),
		DataDir:         v.GetString("data_dir"),

		HTTPHost: v.GetString("http_host"),
		HTTPPort: v.GetInt("http_port"),
		BaseURL:  v.GetString("base_url"),
		APIToken: v.GetString("api_key"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		LogOutput: v.GetString("log_output"),
	}
	if config.APIKey == "" {
		config.APIKey = v.GetString("google_api_key")
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model", constants.DefaultModel)
	v.SetDefault("backend_timeout", constants.DefaultBackendTimeout)
	v.SetDefault("backend_rps", constants.DefaultBackendRPS)
	v.SetDefault("backend_burst", constants.DefaultBackendBurst)
	v.SetDefault("temperature", constants.DefaultTemperature)
	v.SetDefault("max_output_tokens", constants.DefaultMaxOutputTokens)

	v.SetDefault("max_batch_size", constants.MaxBatchSize)
	v.SetDefault("max_concurrency", constants.MaxConcurrency)
	v.SetDefault("match_threshold", constants.MatchThreshold)
	v.SetDefault("default_limit", constants.DefaultLimit)

	v.SetDefault("service_name", constants.DefaultServiceName)
	v.SetDefault("identifier_space", constants.DefaultIdentifierSpace)
	v.SetDefault("schema_space", constants.DefaultSchemaSpace)

	v.SetDefault("http_host", "localhost")
	v.SetDefault("http_port", constants.DefaultPort)

	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")
}

// bindEnv binds keys whose environment names differ from the config key.
func bindEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"model":                 {"RECONCILER_MODEL", "MODEL"},
		"gemini_api_key":        {"GEMINI_API_KEY"},
		"google_api_key":        {"GOOGLE_API_KEY"},
		"google_cloud_project":  {"GOOGLE_CLOUD_PROJECT", "GOOGLE_VERTEX_PROJECT"},
		"google_cloud_location": {"GOOGLE_CLOUD_LOCATION", "GOOGLE_VERTEX_LOCATION"},
		"api_key":               {"RECONCILER_API_KEY"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return errors.NewConfigError("config", "cannot bind environment variable for "+key, err)
		}
	}
	return nil
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env; neither overrides the real environment.
func loadEnvFiles() {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")
}
