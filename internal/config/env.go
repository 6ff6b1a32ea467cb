package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/markdave123-py/doctrinekb/internal/core"
)

type Config struct {
	DatabaseURL string `yaml:"database_url"`
	SslCertPath string `yaml:"ssl_cert_path"`

	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	MaxUploadMB  int `yaml:"max_upload_mb"`

	Port           string `yaml:"port"`
	RequestTimeout int    `yaml:"request_timeout_seconds"`

	KBBaseURL  string `yaml:"kb_base_url"`
	KBProject  string `yaml:"kb_project"`
	KBAgent    string `yaml:"kb_agent"`
	KBName     string `yaml:"kb_name"`
	KBTimeout  int    `yaml:"kb_timeout_seconds"`
	CatalogTTL int    `yaml:"catalog_ttl_seconds"`

	AwsAccessKey string `yaml:"aws_access_key"`
	AwsSecretKey string `yaml:"aws_secret_key"`
	AwsRegion    string `yaml:"aws_region"`
	BucketName   string `yaml:"bucket_name"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func defaultConfig() *Config {
	return &Config{
		ChunkSize:      1000,
		ChunkOverlap:   200,
		MaxUploadMB:    50,
		Port:           "8080",
		RequestTimeout: 120,
		KBBaseURL:      "http://127.0.0.1:47334",
		KBProject:      "mindsdb",
		KBAgent:        "military_doctrine_chatbot",
		KBName:         "military_kb",
		KBTimeout:      15,
		CatalogTTL:     300,
		AwsRegion:      "us-east-2",
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// LoadConfig builds the configuration from defaults, then the optional YAML
// file at path, then the environment (a .env file is loaded first when
// present). The result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadKBConfig loads the configuration for commands that only talk to the
// knowledge base. Chunk store settings are not required.
func LoadKBConfig(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateKB(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &core.ConfigurationError{Field: "config file", Reason: fmt.Sprintf("%q: %v", path, err)}
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &core.ConfigurationError{Field: "config file", Reason: fmt.Sprintf("%q: %v", path, err)}
		}
	}

	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.SslCertPath = getEnv("SSL_CERT_PATH", cfg.SslCertPath)
	cfg.ChunkSize = getEnvInt("CHUNK_SIZE", cfg.ChunkSize)
	cfg.ChunkOverlap = getEnvInt("CHUNK_OVERLAP", cfg.ChunkOverlap)
	cfg.MaxUploadMB = getEnvInt("MAX_UPLOAD_MB", cfg.MaxUploadMB)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.RequestTimeout = getEnvInt("REQUEST_TIMEOUT_SECONDS", cfg.RequestTimeout)
	cfg.KBBaseURL = getEnv("KB_BASE_URL", cfg.KBBaseURL)
	cfg.KBProject = getEnv("KB_PROJECT", cfg.KBProject)
	cfg.KBAgent = getEnv("KB_AGENT", cfg.KBAgent)
	cfg.KBName = getEnv("KB_NAME", cfg.KBName)
	cfg.KBTimeout = getEnvInt("KB_TIMEOUT_SECONDS", cfg.KBTimeout)
	cfg.CatalogTTL = getEnvInt("CATALOG_TTL_SECONDS", cfg.CatalogTTL)
	cfg.AwsAccessKey = getEnv("AWS_ACCESS_KEY", cfg.AwsAccessKey)
	cfg.AwsSecretKey = getEnv("AWS_SECRET_KEY", cfg.AwsSecretKey)
	cfg.AwsRegion = getEnv("AWS_REGION", cfg.AwsRegion)
	cfg.BucketName = getEnv("BUCKET_NAME", cfg.BucketName)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	return cfg, nil
}

// Validate reports every missing or inconsistent setting. Each one is a
// *core.ConfigurationError, joined with errors.Join.
func (c *Config) Validate() error {
	var errs []error
	add := func(field, reason string) {
		errs = append(errs, &core.ConfigurationError{Field: field, Reason: reason})
	}

	if strings.TrimSpace(c.DatabaseURL) == "" {
		add("DATABASE_URL", "is not set")
	}
	if c.ChunkSize <= 0 {
		add("CHUNK_SIZE", fmt.Sprintf("must be positive, got %d", c.ChunkSize))
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		add("CHUNK_OVERLAP", fmt.Sprintf("must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap))
	}
	if c.MaxUploadMB <= 0 {
		add("MAX_UPLOAD_MB", "must be positive")
	}
	if c.BucketName != "" && (c.AwsAccessKey == "" || c.AwsSecretKey == "") {
		add("AWS_ACCESS_KEY", "and AWS_SECRET_KEY are required when BUCKET_NAME is set")
	}
	if err := c.ValidateKB(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ValidateKB checks the settings needed to reach the knowledge base.
func (c *Config) ValidateKB() error {
	var errs []error
	add := func(field, reason string) {
		errs = append(errs, &core.ConfigurationError{Field: field, Reason: reason})
	}

	if strings.TrimSpace(c.KBBaseURL) == "" {
		add("KB_BASE_URL", "is not set")
	}
	if c.KBTimeout <= 0 {
		add("KB_TIMEOUT_SECONDS", "must be positive")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		add("LOG_FORMAT", fmt.Sprintf("must be text or json, got %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

// ArchiveEnabled reports whether uploads should be copied to object storage.
func (c *Config) ArchiveEnabled() bool { return c.BucketName != "" }

func (c *Config) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

func (c *Config) KBTimeoutDuration() time.Duration {
	return time.Duration(c.KBTimeout) * time.Second
}

func (c *Config) CatalogTTLDuration() time.Duration {
	return time.Duration(c.CatalogTTL) * time.Second
}

// IsConfigurationError reports whether err came from configuration loading.
func IsConfigurationError(err error) bool {
	var cfgErr *core.ConfigurationError
	return errors.As(err, &cfgErr)
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("environment value is not an int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}
