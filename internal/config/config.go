// Package config provides configuration management for the paper network service.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// Config holds all configuration for the paper network service.
type Config struct {
	// Server contains the operational HTTP listener settings.
	Server ServerConfig `mapstructure:"server"`
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Events contains Kafka publisher settings for collection events.
	Events EventsConfig `mapstructure:"events"`
	// Sources contains paper source API configurations.
	Sources SourcesConfig `mapstructure:"sources"`
	// Collection contains collection run and network expansion settings.
	Collection CollectionConfig `mapstructure:"collection"`
}

// ServerConfig holds the operational HTTP listener configuration.
// The listener serves health, readiness, and metrics endpoints while a
// collection run is active.
type ServerConfig struct {
	// Host is the address to bind the listener to (default: 0.0.0.0).
	Host string `mapstructure:"host" validate:"required"`
	// Port is the listener port (default: 8080).
	Port int `mapstructure:"port" validate:"gte=1,lte=65535"`
	// ReadTimeout is the maximum duration for reading a request.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing a response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host" validate:"required"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port" validate:"gte=1,lte=65535"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password (use environment variable in production).
	Password string `mapstructure:"password"`
	// Name is the database name.
	Name string `mapstructure:"name" validate:"required"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	// Default is "require" for production security. Use "disable" only for local development.
	SSLMode string `mapstructure:"ssl_mode" validate:"oneof=disable require verify-ca verify-full"`
	// MaxConns is the maximum number of connections in the pool (default: 25).
	MaxConns int32 `mapstructure:"max_conns" validate:"gtefield=MinConns"`
	// MinConns is the minimum number of connections to keep open (default: 2).
	MinConns int32 `mapstructure:"min_conns" validate:"gte=0"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath is the path to migration files (relative or absolute).
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun enables automatic migration on startup (default: false).
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
	// StatementCacheCapacity is the size of the prepared statement cache.
	StatementCacheCapacity int `mapstructure:"statement_cache_capacity"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level" validate:"oneof=trace debug info warn error fatal panic"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format" validate:"oneof=json console"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and the operational listener.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for the metrics endpoint.
	Path string `mapstructure:"path" validate:"required_if=Enabled true"`
}

// EventsConfig holds Kafka publisher settings for collection lifecycle events.
type EventsConfig struct {
	// Enabled controls whether event publishing is active.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers" validate:"required_if=Enabled true"`
	// Topic is the Kafka topic collection events are published to.
	Topic string `mapstructure:"topic" validate:"required_if=Enabled true"`
	// BatchSize is the maximum number of messages to batch before sending.
	BatchSize int `mapstructure:"batch_size"`
	// BatchTimeout is the maximum time to wait for a batch to fill before sending.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// SourcesConfig holds configuration for the paper source APIs.
type SourcesConfig struct {
	// ArXiv contains arXiv API settings.
	ArXiv ArXivConfig `mapstructure:"arxiv"`
	// SemanticScholar contains Semantic Scholar Graph API settings.
	SemanticScholar SemanticScholarConfig `mapstructure:"semantic_scholar"`
	// PubMed contains NCBI E-utilities settings.
	PubMed PubMedConfig `mapstructure:"pubmed"`
}

// ArXivConfig holds arXiv API settings. The arXiv usage policy allows one
// request every three seconds, expressed here as a call window.
type ArXivConfig struct {
	// Enabled controls whether this source is used.
	Enabled bool `mapstructure:"enabled"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// WindowCalls is the number of requests allowed per window.
	WindowCalls int `mapstructure:"window_calls" validate:"gte=1"`
	// Window is the rate limit window duration.
	Window time.Duration `mapstructure:"window" validate:"gt=0"`
	// MaxResults is the maximum results per query.
	MaxResults int `mapstructure:"max_results" validate:"gte=1"`
}

// SemanticScholarConfig holds Semantic Scholar Graph API settings. The
// unauthenticated quota is 100 requests per five minutes, shared across all
// calls the client makes.
type SemanticScholarConfig struct {
	// Enabled controls whether this source is used.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is loaded from PAPERNET_SOURCES_SEMANTIC_SCHOLAR_API_KEY.
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// WindowCalls is the number of requests allowed per window.
	WindowCalls int `mapstructure:"window_calls" validate:"gte=1"`
	// Window is the rate limit window duration.
	Window time.Duration `mapstructure:"window" validate:"gt=0"`
	// MaxResults is the maximum results per query.
	MaxResults int `mapstructure:"max_results" validate:"gte=1"`
}

// PubMedConfig holds NCBI E-utilities settings.
type PubMedConfig struct {
	// Enabled controls whether this source is used.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is loaded from PAPERNET_SOURCES_PUBMED_API_KEY.
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// RateLimit is the maximum requests per second (NCBI allows 3 without an API key).
	RateLimit float64 `mapstructure:"rate_limit" validate:"gt=0"`
	// BurstSize is the rate limiter burst size.
	BurstSize int `mapstructure:"burst_size" validate:"gte=1"`
	// MaxResults is the maximum results per query.
	MaxResults int `mapstructure:"max_results" validate:"gte=1"`
	// MaintenanceMode short-circuits PubMed searches with empty results
	// instead of calling NCBI. Collection proceeds from the remaining sources.
	MaintenanceMode bool `mapstructure:"maintenance_mode"`
}

// CollectionConfig holds collection run and network expansion settings.
type CollectionConfig struct {
	// ContactEmail identifies the operator to external APIs. Required by the
	// arXiv usage policy and the NCBI E-utilities guidelines; the --email CLI
	// flag overrides it.
	ContactEmail string `mapstructure:"contact_email" validate:"omitempty,email"`
	// ExpansionRounds is the number of network expansion rounds after seeding.
	ExpansionRounds int `mapstructure:"expansion_rounds" validate:"gte=0"`
	// SeedPaperLimit is the maximum papers fetched per source for a seed author.
	SeedPaperLimit int `mapstructure:"seed_paper_limit" validate:"gte=1"`
	// ExpansionPaperLimit is the maximum papers fetched per source for each
	// expanded author.
	ExpansionPaperLimit int `mapstructure:"expansion_paper_limit" validate:"gte=1"`
	// CandidateAuthors is how many frequent collaborators are considered per round.
	CandidateAuthors int `mapstructure:"candidate_authors" validate:"gte=1"`
	// AuthorsPerRound is how many of the candidates are searched per round.
	AuthorsPerRound int `mapstructure:"authors_per_round" validate:"gte=1,ltefield=CandidateAuthors"`
	// RequestDelay is the pause between author searches during a run.
	RequestDelay time.Duration `mapstructure:"request_delay" validate:"gte=0"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}
	if c.StatementCacheCapacity > 0 {
		params.Set("statement_cache_capacity", fmt.Sprintf("%d", c.StatementCacheCapacity))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// Address returns the operational HTTP listen address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("PAPERNET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if present
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/paper-network-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.Sources.SemanticScholar.APIKey = os.Getenv("PAPERNET_SOURCES_SEMANTIC_SCHOLAR_API_KEY")
	cfg.Sources.PubMed.APIKey = os.Getenv("PAPERNET_SOURCES_PUBMED_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "papernet")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "paper_network")
	// Default to "require" for production security. Use PAPERNET_DATABASE_SSL_MODE=disable for local development.
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)
	v.SetDefault("database.statement_cache_capacity", 512)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Events defaults
	v.SetDefault("events.enabled", false)
	v.SetDefault("events.brokers", []string{"localhost:9092"})
	v.SetDefault("events.topic", "events.paper_network.collections")
	v.SetDefault("events.batch_size", 100)
	v.SetDefault("events.batch_timeout", "10ms")

	// Sources defaults - arXiv (one request per 3 seconds per usage policy)
	v.SetDefault("sources.arxiv.enabled", true)
	v.SetDefault("sources.arxiv.base_url", "https://export.arxiv.org/api")
	v.SetDefault("sources.arxiv.timeout", "30s")
	v.SetDefault("sources.arxiv.window_calls", 1)
	v.SetDefault("sources.arxiv.window", "3s")
	v.SetDefault("sources.arxiv.max_results", 100)

	// Sources defaults - Semantic Scholar (100 requests per 5 minutes unauthenticated)
	v.SetDefault("sources.semantic_scholar.enabled", true)
	v.SetDefault("sources.semantic_scholar.base_url", "https://api.semanticscholar.org/graph/v1")
	v.SetDefault("sources.semantic_scholar.timeout", "30s")
	v.SetDefault("sources.semantic_scholar.window_calls", 100)
	v.SetDefault("sources.semantic_scholar.window", "5m")
	v.SetDefault("sources.semantic_scholar.max_results", 100)

	// Sources defaults - PubMed (NCBI recommends max 3 req/sec without API key).
	// Ships in maintenance mode; flip sources.pubmed.maintenance_mode off to
	// restore live NCBI searches.
	v.SetDefault("sources.pubmed.enabled", true)
	v.SetDefault("sources.pubmed.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("sources.pubmed.timeout", "30s")
	v.SetDefault("sources.pubmed.rate_limit", 3.0)
	v.SetDefault("sources.pubmed.burst_size", 3)
	v.SetDefault("sources.pubmed.max_results", 100)
	v.SetDefault("sources.pubmed.maintenance_mode", true)

	// Collection defaults
	v.SetDefault("collection.contact_email", "")
	v.SetDefault("collection.expansion_rounds", 2)
	v.SetDefault("collection.seed_paper_limit", 50)
	v.SetDefault("collection.expansion_paper_limit", 20)
	v.SetDefault("collection.candidate_authors", 20)
	v.SetDefault("collection.authors_per_round", 10)
	v.SetDefault("collection.request_delay", "2s")
}

// validate is the shared validator for configuration structs.
var validate = validator.New()

// Validate validates the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
