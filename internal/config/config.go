package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is the complete application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Database  DatabaseConfig  `yaml:"database" envconfig:"DATABASE"`
	Ingestion IngestionConfig `yaml:"ingestion" envconfig:"INGESTION"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// DatabaseConfig locates the SQLite database file.
type DatabaseConfig struct {
	File string `yaml:"file" envconfig:"FILE" default:"salespulse.db"`
}

// IngestionConfig tunes the import pipeline.
type IngestionConfig struct {
	MaxErrors     int    `yaml:"max_errors" envconfig:"MAX_ERRORS" default:"0"`
	MaxUploadMB   int64  `yaml:"max_upload_mb" envconfig:"MAX_UPLOAD_MB" default:"32"`
	DefaultUpsert bool   `yaml:"default_upsert" envconfig:"DEFAULT_UPSERT" default:"false"`
	SchemaDir     string `yaml:"schema_dir" envconfig:"SCHEMA_DIR" default:"schemas"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// SecurityConfig contains the request limits of the web layer.
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// PathsConfig contains the file system layout configuration.
type PathsConfig struct {
	BaseDir    string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	UploadsDir string `yaml:"uploads_dir" envconfig:"UPLOADS_DIR" default:"data/uploads"`
	ExportsDir string `yaml:"exports_dir" envconfig:"EXPORTS_DIR" default:"data/exports"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// Load reads configuration from environment variables and the optional YAML
// config file, file values taking precedence where set.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("SALES", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	configFile := configFilePath()
	if _, err := os.Stat(configFile); err == nil {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// configFilePath returns the YAML config location, overridable through
// SALES_CONFIG_FILE.
func configFilePath() string {
	if path := os.Getenv("SALES_CONFIG_FILE"); path != "" {
		return path
	}
	return "config.yaml"
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeConfigs overlays file config on the env-derived config: a file value
// wins wherever the file sets the field.
func mergeConfigs(fileConfig, envConfig Config) Config {
	out := envConfig
	if fileConfig.Server.Port != 0 {
		out.Server.Port = fileConfig.Server.Port
	}
	if fileConfig.Server.ReadTimeout != 0 {
		out.Server.ReadTimeout = fileConfig.Server.ReadTimeout
	}
	if fileConfig.Server.WriteTimeout != 0 {
		out.Server.WriteTimeout = fileConfig.Server.WriteTimeout
	}
	if fileConfig.Server.IdleTimeout != 0 {
		out.Server.IdleTimeout = fileConfig.Server.IdleTimeout
	}
	if fileConfig.Server.ShutdownTimeout != 0 {
		out.Server.ShutdownTimeout = fileConfig.Server.ShutdownTimeout
	}
	if fileConfig.Database.File != "" {
		out.Database.File = fileConfig.Database.File
	}
	if fileConfig.Ingestion.MaxErrors != 0 {
		out.Ingestion.MaxErrors = fileConfig.Ingestion.MaxErrors
	}
	if fileConfig.Ingestion.MaxUploadMB != 0 {
		out.Ingestion.MaxUploadMB = fileConfig.Ingestion.MaxUploadMB
	}
	if fileConfig.Ingestion.SchemaDir != "" {
		out.Ingestion.SchemaDir = fileConfig.Ingestion.SchemaDir
	}
	if fileConfig.Logging.Level != "" {
		out.Logging.Level = fileConfig.Logging.Level
	}
	if fileConfig.Logging.Format != "" {
		out.Logging.Format = fileConfig.Logging.Format
	}
	if fileConfig.Logging.Output != "" {
		out.Logging.Output = fileConfig.Logging.Output
	}
	if fileConfig.Logging.FilePath != "" {
		out.Logging.FilePath = fileConfig.Logging.FilePath
	}
	if len(fileConfig.Security.AllowedOrigins) > 0 {
		out.Security.AllowedOrigins = fileConfig.Security.AllowedOrigins
	}
	if fileConfig.Security.RateLimit.RPS != 0 {
		out.Security.RateLimit = fileConfig.Security.RateLimit
	}
	if fileConfig.Paths.BaseDir != "" {
		out.Paths.BaseDir = fileConfig.Paths.BaseDir
	}
	if fileConfig.Paths.DataDir != "" {
		out.Paths.DataDir = fileConfig.Paths.DataDir
	}
	if fileConfig.Paths.UploadsDir != "" {
		out.Paths.UploadsDir = fileConfig.Paths.UploadsDir
	}
	if fileConfig.Paths.ExportsDir != "" {
		out.Paths.ExportsDir = fileConfig.Paths.ExportsDir
	}
	if fileConfig.Paths.LogsDir != "" {
		out.Paths.LogsDir = fileConfig.Paths.LogsDir
	}
	return out
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}
	if c.Database.File == "" {
		return fmt.Errorf("database file must not be empty")
	}
	if c.Ingestion.MaxUploadMB <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}
	return nil
}
