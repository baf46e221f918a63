package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	OTel       OTelConfig
	Tracker    TrackerConfig
	Storage    StorageConfig
	Attachment AttachmentConfig
	Notify     NotifyConfig
	Env        string
	Port       string
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

// TrackerConfig holds the Linear API settings.
type TrackerConfig struct {
	APIURL  string
	APIKey  string
	TeamID  string
	Timeout time.Duration
}

// StorageConfig holds the S3-compatible (Cloudflare R2) bucket settings.
type StorageConfig struct {
	AccessKeyID     string
	SecretAccessKey string
	AccountID       string
	Endpoint        string // Optional: overrides the endpoint derived from AccountID
	Bucket          string
	PublicBaseURL   string
	Region          string
	UniqueKeys      bool
	Timeout         time.Duration
}

type AttachmentConfig struct {
	DownloadTimeout time.Duration
	MaxBytes        int64
	Concurrency     int
}

type NotifyConfig struct {
	RedisURL     string
	RedisStream  string
	StreamMaxLen int64
}

type ServiceType string

const (
	ServiceTypeServer ServiceType = "server"
)

// MissingSettingError reports a required setting that is unset.
// Name is the environment variable the operator has to provide.
type MissingSettingError struct {
	Name string
}

func (e *MissingSettingError) Error() string {
	return fmt.Sprintf("missing required setting %s", e.Name)
}

// Load loads configuration from environment variables.
// In development, it loads from service-specific .env files:
//   - .env.server for the webhook server
//
// Falls back to .env if service-specific file doesn't exist.
//
// Load never fails on missing Linear or R2 credentials: the health endpoint
// reports partial configuration and each operation validates what it needs.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("RELAY_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	cfg := Config{
		Env:  getEnv("RELAY_ENV", "development"),
		Port: getEnv("PORT", "8080"),
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "crmrelay"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		Tracker: TrackerConfig{
			APIURL:  getEnv("LINEAR_API_URL", "https://api.linear.app/graphql"),
			APIKey:  strings.TrimSpace(getEnv("LINEAR_API_KEY", "")),
			TeamID:  strings.TrimSpace(getEnv("LINEAR_TEAM_ID", "")),
			Timeout: getEnvDuration("LINEAR_TIMEOUT", 20*time.Second),
		},
		Storage: StorageConfig{
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			Endpoint:        getEnv("R2_ENDPOINT", ""),
			Bucket:          getEnv("R2_BUCKET_NAME", ""),
			PublicBaseURL:   getEnv("R2_PUBLIC_BASE_URL", ""),
			Region:          getEnv("R2_REGION", "auto"),
			UniqueKeys:      getEnvBool("STORAGE_UNIQUE_KEYS", false),
			Timeout:         getEnvDuration("STORAGE_TIMEOUT", 60*time.Second),
		},
		Attachment: AttachmentConfig{
			DownloadTimeout: getEnvDuration("ATTACHMENT_DOWNLOAD_TIMEOUT", 60*time.Second),
			MaxBytes:        getEnvInt64("ATTACHMENT_MAX_BYTES", 100<<20),
			Concurrency:     getEnvInt("ATTACHMENT_CONCURRENCY", 4),
		},
		Notify: NotifyConfig{
			RedisURL:     getEnv("REDIS_URL", ""),
			RedisStream:  getEnv("REDIS_STREAM", "crmrelay_issues"),
			StreamMaxLen: getEnvInt64("REDIS_STREAM_MAXLEN", 1000),
		},
	}

	if cfg.Attachment.Concurrency < 1 {
		return Config{}, fmt.Errorf("ATTACHMENT_CONCURRENCY must be at least 1")
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c NotifyConfig) Enabled() bool {
	return c.RedisURL != ""
}

// Validate checks the settings every tracker call needs.
func (c TrackerConfig) Validate() error {
	if c.APIKey == "" {
		return &MissingSettingError{Name: "LINEAR_API_KEY"}
	}
	if c.TeamID == "" {
		return &MissingSettingError{Name: "LINEAR_TEAM_ID"}
	}
	return nil
}

// Validate checks the settings an upload and its public link need.
func (c StorageConfig) Validate() error {
	switch {
	case c.AccessKeyID == "":
		return &MissingSettingError{Name: "R2_ACCESS_KEY_ID"}
	case c.SecretAccessKey == "":
		return &MissingSettingError{Name: "R2_SECRET_ACCESS_KEY"}
	case c.AccountID == "" && c.Endpoint == "":
		return &MissingSettingError{Name: "R2_ACCOUNT_ID"}
	case c.Bucket == "":
		return &MissingSettingError{Name: "R2_BUCKET_NAME"}
	case c.PublicBaseURL == "":
		return &MissingSettingError{Name: "R2_PUBLIC_BASE_URL"}
	}
	return nil
}

func (c StorageConfig) Enabled() bool {
	return c.Validate() == nil
}

// EndpointURL returns the S3 API endpoint for the bucket's account.
func (c StorageConfig) EndpointURL() string {
	if c.Endpoint != "" {
		return strings.TrimSuffix(c.Endpoint, "/")
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
