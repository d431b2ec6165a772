// Package config handles application configuration loading from a YAML file and environment variables.
package config

import (
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	contextutils "github.com/AgamW017/vibe/internal/utils"

	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the environment variable that points at the YAML config file
const ConfigFileEnv = "VIBE_CONFIG_FILE"

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server" yaml:"server"`

	// Database configuration
	Database DatabaseConfig `json:"database" yaml:"database"`

	// Video and playlist processing collaborators
	Generation GenerationConfig `json:"generation" yaml:"generation"`

	// OpenTelemetry Configuration
	OpenTelemetry OpenTelemetryConfig `json:"open_telemetry" yaml:"open_telemetry"`

	// Internal fields
	IsTest bool `json:"is_test" yaml:"is_test"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port            string   `json:"port" yaml:"port"`
	Debug           bool     `json:"debug" yaml:"debug"`
	LogLevel        string   `json:"log_level" yaml:"log_level"`
	CORSOrigins     []string `json:"cors_origins" yaml:"cors_origins"`
	MaxAIConcurrent int      `json:"max_ai_concurrent" yaml:"max_ai_concurrent"`
	// FeedbackPageSizeMax caps page_size on feedback listings.
	FeedbackPageSizeMax int                  `json:"feedback_page_size_max" yaml:"feedback_page_size_max"`
	CircuitBreaker      CircuitBreakerConfig `json:"circuit_breaker" yaml:"circuit_breaker"`
}

// CircuitBreakerConfig controls load shedding after repeated 5xx responses
type CircuitBreakerConfig struct {
	Enabled   bool          `json:"enabled" yaml:"enabled"`
	Threshold int           `json:"threshold" yaml:"threshold"`
	Timeout   time.Duration `json:"timeout" yaml:"timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL             string        `json:"url" yaml:"url"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`       // Maximum number of open connections to the database
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`       // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"` // Maximum amount of time a connection may be reused
	RunMigrations   bool          `json:"run_migrations" yaml:"run_migrations"`
}

// GenerationConfig configures the external AI engine and the playlist feed source
type GenerationConfig struct {
	// AIEngineURL is the base URL of the question-generation engine, e.g. http://ai-engine:8000
	AIEngineURL    string        `json:"ai_engine_url" yaml:"ai_engine_url"`
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`
	// PlaylistFeedURL is a fmt template taking the playlist id
	PlaylistFeedURL  string        `json:"playlist_feed_url" yaml:"playlist_feed_url"`
	PlaylistCacheTTL time.Duration `json:"playlist_cache_ttl" yaml:"playlist_cache_ttl"`
	MaxPlaylistItems int           `json:"max_playlist_items" yaml:"max_playlist_items"`
	// YouTubeAPIKey enables full playlist listing through the YouTube Data API.
	// Without it the public feed is used, which only carries the newest 15 entries.
	YouTubeAPIKey string `json:"youtube_api_key" yaml:"youtube_api_key"`
	// YouTubeAPIEndpoint overrides the Data API base URL
	YouTubeAPIEndpoint string `json:"youtube_api_endpoint" yaml:"youtube_api_endpoint"`
}

// OpenTelemetryConfig holds all OpenTelemetry-related configuration
type OpenTelemetryConfig struct {
	Endpoint       string            `json:"endpoint" yaml:"endpoint"`               // Default: "localhost:4317"
	Protocol       string            `json:"protocol" yaml:"protocol"`               // "grpc" or "http", default: "grpc"
	Insecure       bool              `json:"insecure" yaml:"insecure"`               // Default: true (for localhost)
	Headers        map[string]string `json:"headers" yaml:"headers"`                 // For authenticated endpoints
	ServiceName    string            `json:"service_name" yaml:"service_name"`       // Default: "vibe-backend"
	ServiceVersion string            `json:"service_version" yaml:"service_version"` // From version package
	EnableTracing  bool              `json:"enable_tracing" yaml:"enable_tracing"`
	EnableMetrics  bool              `json:"enable_metrics" yaml:"enable_metrics"`
	EnableLogging  bool              `json:"enable_logging" yaml:"enable_logging"`
	SamplingRate   float64           `json:"sampling_rate" yaml:"sampling_rate"` // Default: 1.0 (100%)
}

// NewConfig loads configuration from YAML file first, then overrides with environment variables
func NewConfig() (result0 *Config, err error) {
	config, err := loadConfigWithOverrides()
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config: %w", err)
	}

	config.overrideFromEnv()
	config.applyDefaults()

	return config, nil
}

// applyDefaults fills in zero values that have a sensible default
func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.MaxAIConcurrent <= 0 {
		c.Server.MaxAIConcurrent = DefaultMaxAIConcurrent
	}
	if c.Server.FeedbackPageSizeMax <= 0 {
		c.Server.FeedbackPageSizeMax = DefaultFeedbackPageSizeMax
	}
	if c.Server.CircuitBreaker.Threshold <= 0 {
		c.Server.CircuitBreaker.Threshold = DefaultCircuitBreakerThreshold
	}
	if c.Server.CircuitBreaker.Timeout <= 0 {
		c.Server.CircuitBreaker.Timeout = DefaultCircuitBreakerTimeout
	}

	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = DefaultMaxOpenConns
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = DefaultMaxIdleConns
	}
	if c.Database.ConnMaxLifetime <= 0 {
		c.Database.ConnMaxLifetime = DatabaseConnMaxLifetime
	}

	if c.Generation.RequestTimeout <= 0 {
		c.Generation.RequestTimeout = AIRequestTimeout
	}
	if c.Generation.PlaylistFeedURL == "" {
		c.Generation.PlaylistFeedURL = DefaultPlaylistFeedURL
	}
	if c.Generation.PlaylistCacheTTL <= 0 {
		c.Generation.PlaylistCacheTTL = DefaultPlaylistCacheTTL
	}

	if c.OpenTelemetry.ServiceName == "" {
		c.OpenTelemetry.ServiceName = "vibe-backend"
	}
	if c.OpenTelemetry.Protocol == "" {
		c.OpenTelemetry.Protocol = "grpc"
	}
	if c.OpenTelemetry.SamplingRate <= 0 {
		c.OpenTelemetry.SamplingRate = 1.0
	}
}

// overrideFromEnv overrides config values with environment variables using reflection
func (c *Config) overrideFromEnv() {
	overrideStructFromEnvWithPrefix(c, "")
}

var durationType = reflect.TypeOf(time.Duration(0))

// overrideStructFromEnvWithPrefix recursively overrides struct fields with environment variables.
// The variable name is the upper-cased yaml tag joined to its parents with "_", e.g. DATABASE_URL.
func overrideStructFromEnvWithPrefix(v interface{}, prefix string) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		if !field.CanSet() {
			continue
		}

		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}

		envKey := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
		if prefix != "" {
			envKey = prefix + "_" + envKey
		}

		if field.Type() == durationType {
			if envVal := os.Getenv(envKey); envVal != "" {
				if d, err := time.ParseDuration(envVal); err == nil {
					field.SetInt(int64(d))
				}
			}
			continue
		}

		switch field.Kind() {
		case reflect.String:
			if envVal := os.Getenv(envKey); envVal != "" {
				field.SetString(envVal)
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if intVal, err := strconv.ParseInt(envVal, 10, 64); err == nil {
					field.SetInt(intVal)
				}
			}
		case reflect.Float32, reflect.Float64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if floatVal, err := strconv.ParseFloat(envVal, 64); err == nil {
					field.SetFloat(floatVal)
				}
			}
		case reflect.Bool:
			if envVal := os.Getenv(envKey); envVal != "" {
				if boolVal, err := strconv.ParseBool(envVal); err == nil {
					field.SetBool(boolVal)
				}
			}
		case reflect.Slice:
			if envVal := os.Getenv(envKey); envVal != "" {
				// Only string slices, e.g. SERVER_CORS_ORIGINS=a,b
				if field.Type().Elem().Kind() == reflect.String {
					slice := strings.Split(envVal, ",")
					field.Set(reflect.ValueOf(slice))
				}
			}
		case reflect.Struct:
			if field.CanAddr() {
				overrideStructFromEnvWithPrefix(field.Addr().Interface(), envKey)
			}
		}
	}
}

// loadConfigWithOverrides loads the config file named by VIBE_CONFIG_FILE, or config.yaml.
// A missing default config.yaml is not an error: the service can run from the environment alone.
func loadConfigWithOverrides() (result0 *Config, err error) {
	if envPath := os.Getenv(ConfigFileEnv); envPath != "" {
		config, err := loadConfigFromFile(envPath)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config from %s: %w", envPath, err)
		}
		return config, nil
	}

	config, err := loadConfigFromFile("config.yaml")
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	return config, err
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (result0 *Config, err error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(yamlFile, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
