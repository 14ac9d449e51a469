// Package config loads the portal configuration from the environment.
// A .env file, when present, is loaded first and never overrides variables already set.
package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/Dorico-Dynamics/txova-go-core/logging"

	"github.com/Dorico-Dynamics/txova-go-portal/base"
	"github.com/Dorico-Dynamics/txova-go-portal/external/storage"
)

// DefaultProductsPageSize is used when neither page size variable holds a positive number.
const DefaultProductsPageSize = 12

// EnvProduction is the APP_ENV value of a production deployment.
const EnvProduction = "production"

// Config is the portal configuration.
type Config struct {
	// BackendURL is the server-only backend origin.
	BackendURL string `env:"BACKEND_URL"`

	// PublicAPIBaseURL is the backend origin visible to browsers.
	PublicAPIBaseURL string `env:"PUBLIC_API_BASE_URL"`

	// AppOrigin is the portal's own origin.
	AppOrigin string `env:"APP_ORIGIN"`

	// DebugTrace and PublicDebugTrace turn tracing on when set to "1".
	DebugTrace       string `env:"DEBUG_TRACE"`
	PublicDebugTrace string `env:"PUBLIC_DEBUG_TRACE"`

	ProductsPageSizeRaw       string `env:"PRODUCTS_PAGE_SIZE"`
	PublicProductsPageSizeRaw string `env:"PUBLIC_PRODUCTS_PAGE_SIZE"`

	// AppEnv is the deployment environment.
	AppEnv string `env:"APP_ENV" envDefault:"development"`

	// ListenAddr is the HTTP listen address.
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":3000"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// RequestTimeout bounds a single backend exchange.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`

	// CircuitBreakerEnabled turns on per-host circuit breaking of backend calls.
	CircuitBreakerEnabled bool `env:"CIRCUIT_BREAKER_ENABLED" envDefault:"false"`

	// ErrorReports configures the client error report sinks.
	ErrorReports ErrorReportConfig `envPrefix:"ERROR_REPORT_"`
}

// ErrorReportConfig configures where client error reports go besides the log.
type ErrorReportConfig struct {
	// KafkaBrokers enables publishing when non-empty.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"portal.client-errors"`

	// StorageEndpoint enables archiving when non-empty.
	StorageEndpoint  string `env:"STORAGE_ENDPOINT"`
	StorageAccessKey string `env:"STORAGE_ACCESS_KEY"`
	StorageSecretKey string `env:"STORAGE_SECRET_KEY"`
	StorageBucket    string `env:"STORAGE_BUCKET" envDefault:"portal-client-errors"`
	StorageUseSSL    bool   `env:"STORAGE_USE_SSL" envDefault:"true"`
	StorageRegion    string `env:"STORAGE_REGION"`
}

// Load reads an optional .env file and parses the environment.
// A missing file is ignored; an empty path skips the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	return parse(env.Options{})
}

// LoadFrom parses the configuration from the given variables only.
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.BackendURL == "" && c.PublicAPIBaseURL == "" {
		return fmt.Errorf("BACKEND_URL or PUBLIC_API_BASE_URL is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// Production reports whether the portal runs in production.
func (c *Config) Production() bool {
	return c.AppEnv == EnvProduction
}

// ProductsPageSize returns the first of PRODUCTS_PAGE_SIZE and PUBLIC_PRODUCTS_PAGE_SIZE that is set.
// A value that is not a positive number gives DefaultProductsPageSize.
func (c *Config) ProductsPageSize() int {
	raw := c.ProductsPageSizeRaw
	if raw == "" {
		raw = c.PublicProductsPageSizeRaw
	}

	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || n <= 0 || n != float64(int(n)) {
		return DefaultProductsPageSize
	}
	return int(n)
}

// TraceFlags returns the environment inputs of trace resolution.
func (c *Config) TraceFlags() base.TraceFlags {
	return base.TraceFlags{
		ServerDebug: c.DebugTrace == "1",
		PublicDebug: c.PublicDebugTrace == "1",
	}
}

// Origins returns the backend origins.
func (c *Config) Origins() base.Origins {
	return base.Origins{Server: c.BackendURL, Public: c.PublicAPIBaseURL}
}

// BaseConfig returns the server-context base client configuration.
func (c *Config) BaseConfig() *base.Config {
	cfg := base.DefaultConfig()
	cfg.Context = base.ContextServer
	cfg.Origins = c.Origins()
	cfg.AppOrigin = c.AppOrigin
	cfg.RequestTimeout = c.RequestTimeout
	cfg.Trace = base.ResolveTrace(base.ContextServer, c.TraceFlags())
	if c.CircuitBreakerEnabled {
		cfg.CircuitBreaker = base.DefaultCircuitBreakerConfig()
	}
	return cfg
}

// StorageConfig returns the archive configuration, or nil when archiving is off.
func (c *Config) StorageConfig() *storage.Config {
	r := c.ErrorReports
	if r.StorageEndpoint == "" {
		return nil
	}
	return &storage.Config{
		Endpoint:  r.StorageEndpoint,
		AccessKey: r.StorageAccessKey,
		SecretKey: r.StorageSecretKey,
		Bucket:    r.StorageBucket,
		UseSSL:    r.StorageUseSSL,
		Region:    r.StorageRegion,
	}
}

// SlogLevel parses LOG_LEVEL.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// LoggingConfig returns the logger configuration. LOG_FORMAT=text selects text output,
// anything else keeps the logging package default.
func (c *Config) LoggingConfig() logging.Config {
	level, _ := c.SlogLevel()
	cfg := logging.Config{Level: level}
	if strings.EqualFold(c.LogFormat, "text") {
		cfg.Format = logging.FormatText
	}
	return cfg
}
