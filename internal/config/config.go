package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	PKK      PKKConfig      `yaml:"pkk" mapstructure:"pkk"`
	Geocoder GeocoderConfig `yaml:"geocoder" mapstructure:"geocoder"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Breaker  BreakerConfig  `yaml:"breaker" mapstructure:"breaker"`
	Ingest   IngestConfig   `yaml:"ingest" mapstructure:"ingest"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
}

// PKKConfig configures the cadastral registry client.
type PKKConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	MaxAttempts int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InsecureTLS bool    `yaml:"insecure_tls" mapstructure:"insecure_tls"`
}

// GeocoderConfig configures the Nominatim client.
type GeocoderConfig struct {
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent    string  `yaml:"user_agent" mapstructure:"user_agent"`
	Email        string  `yaml:"email" mapstructure:"email"`
	CountryCodes string  `yaml:"country_codes" mapstructure:"country_codes"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	MaxAttempts  int     `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Workers          int `yaml:"workers" mapstructure:"workers"`
	RecordIntervalMS int `yaml:"record_interval_ms" mapstructure:"record_interval_ms"`
	Limit            int `yaml:"limit" mapstructure:"limit"`
}

// RecordInterval returns the per-record spacing as a duration.
func (b BatchConfig) RecordInterval() time.Duration {
	return time.Duration(b.RecordIntervalMS) * time.Millisecond
}

// CacheConfig configures the address cache. A TTL of zero keeps entries
// for the life of the process.
type CacheConfig struct {
	TTLSecs int `yaml:"ttl_secs" mapstructure:"ttl_secs"`
}

// BreakerConfig configures the per-upstream circuit breakers.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// IngestConfig selects the sheet and header row of input files.
type IngestConfig struct {
	SheetIndex int    `yaml:"sheet_index" mapstructure:"sheet_index"`
	SheetName  string `yaml:"sheet_name" mapstructure:"sheet_name"`
	HeaderRow  int    `yaml:"header_row" mapstructure:"header_row"`
}

// StoreConfig configures the optional run sink.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// DSN returns the connection target for the configured driver.
func (s StoreConfig) DSN() string {
	if s.Driver == "sqlite" {
		return s.SQLitePath
	}
	return s.DatabaseURL
}

// ServerConfig configures the upload server.
type ServerConfig struct {
	Port        int `yaml:"port" mapstructure:"port"`
	MaxUploadMB int `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	MaxLots     int `yaml:"max_lots" mapstructure:"max_lots"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. An empty path
// searches the working directory for config.yaml.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("LOTMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("pkk.base_url", "https://pkk.rosreestr.ru")
	v.SetDefault("pkk.user_agent", "Cadastral Map App/1.0")
	v.SetDefault("pkk.timeout_secs", 10)
	v.SetDefault("pkk.rate_limit", 3.0)
	v.SetDefault("pkk.max_attempts", 2)
	v.SetDefault("pkk.insecure_tls", false)
	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.user_agent", "Cadastral Map App/1.0")
	v.SetDefault("geocoder.email", "")
	v.SetDefault("geocoder.country_codes", "ru")
	v.SetDefault("geocoder.timeout_secs", 10)
	v.SetDefault("geocoder.rate_limit", 1.0)
	v.SetDefault("geocoder.max_attempts", 2)
	v.SetDefault("batch.workers", 1)
	v.SetDefault("batch.record_interval_ms", 0)
	v.SetDefault("batch.limit", 0)
	v.SetDefault("cache.ttl_secs", 0)
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.reset_timeout_secs", 30)
	v.SetDefault("ingest.sheet_index", 0)
	v.SetDefault("ingest.sheet_name", "")
	v.SetDefault("ingest.header_row", -1)
	v.SetDefault("store.driver", "")
	v.SetDefault("store.sqlite_path", "lotmap.db")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_mb", 20)
	v.SetDefault("server.max_lots", 1000)

	// Read config file (optional unless named explicitly)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. mode is one of
// "resolve", "serve" or "extract".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "extract":
		return nil
	case "resolve", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.PKK.BaseURL == "" {
		errs = append(errs, "pkk.base_url is required")
	}
	if c.Geocoder.BaseURL == "" {
		errs = append(errs, "geocoder.base_url is required")
	}
	if c.Geocoder.UserAgent == "" {
		errs = append(errs, "geocoder.user_agent is required")
	}
	if c.PKK.RateLimit <= 0 || c.Geocoder.RateLimit <= 0 {
		errs = append(errs, "rate_limit must be > 0")
	}
	if c.Geocoder.RateLimit > 1 {
		errs = append(errs, "geocoder.rate_limit must not exceed 1 request per second")
	}
	if c.Batch.Workers < 1 || c.Batch.Workers > 32 {
		errs = append(errs, "batch.workers must be between 1 and 32")
	}
	if c.Batch.RecordIntervalMS < 0 {
		errs = append(errs, "batch.record_interval_ms must be >= 0")
	}
	if c.Ingest.HeaderRow < -1 {
		errs = append(errs, "ingest.header_row must be >= -1")
	}

	switch c.Store.Driver {
	case "":
	case "sqlite":
		if c.Store.SQLitePath == "" {
			errs = append(errs, "store.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for the postgres driver")
		}
	default:
		errs = append(errs, "store.driver must be sqlite, postgres or empty")
	}

	if mode == "serve" {
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.MaxUploadMB <= 0 {
			errs = append(errs, "server.max_upload_mb must be > 0")
		}
		if c.Server.MaxLots <= 0 {
			errs = append(errs, "server.max_lots must be > 0")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
