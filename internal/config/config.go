package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPPort          = "8080"
	defaultTemporalAddress   = "localhost:7233"
	defaultTemporalNS        = "default"
	defaultTaskQueue         = "flyclaim-tracker-task-queue"
	defaultUpstreamTimeout   = 15
	defaultMinioEndpoint     = "localhost:9000"
	defaultMinioBucket       = "tickets"
	defaultTrackPollInterval = 10 * time.Minute
	defaultTrackMaxPolls     = 200
)

type Config struct {
	HTTPPort           string        `yaml:"http_port"`
	CORSOrigins        []string      `yaml:"cors_origins"`
	PostgresDSN        string        `yaml:"postgres_dsn"`
	FlyClaimAPIURL     string        `yaml:"flyclaim_api_url"`
	UpstreamTimeoutSec int           `yaml:"upstream_timeout_sec"`
	TemporalAddress    string        `yaml:"temporal_address"`
	TemporalNamespace  string        `yaml:"temporal_namespace"`
	TemporalTaskQueue  string        `yaml:"temporal_task_queue"`
	WorkflowIDPrefix   string        `yaml:"workflow_id_prefix"`
	MinioEndpoint      string        `yaml:"minio_endpoint"`
	MinioAccessKey     string        `yaml:"minio_access_key"`
	MinioSecretKey     string        `yaml:"minio_secret_key"`
	MinioBucket        string        `yaml:"minio_bucket"`
	MinioUseSSL        bool          `yaml:"minio_use_ssl"`
	AllowedUploadBytes int64         `yaml:"max_upload_bytes"`
	UploadsPerMinute   int           `yaml:"uploads_per_minute"`
	TrackPollInterval  time.Duration `yaml:"track_poll_interval"`
	TrackMaxPolls      int           `yaml:"track_max_polls"`
	LogLevel           string        `yaml:"log_level"`
	LogFormat          string        `yaml:"log_format"`
}

func Default() Config {
	return Config{
		HTTPPort:           defaultHTTPPort,
		UpstreamTimeoutSec: defaultUpstreamTimeout,
		TemporalAddress:    defaultTemporalAddress,
		TemporalNamespace:  defaultTemporalNS,
		TemporalTaskQueue:  defaultTaskQueue,
		WorkflowIDPrefix:   "flyclaim",
		MinioEndpoint:      defaultMinioEndpoint,
		MinioBucket:        defaultMinioBucket,
		AllowedUploadBytes: 8 * 1024 * 1024,
		UploadsPerMinute:   10,
		TrackPollInterval:  defaultTrackPollInterval,
		TrackMaxPolls:      defaultTrackMaxPolls,
		LogLevel:           "info",
		LogFormat:          "json",
	}
}

// Load builds the config from defaults, then the optional YAML file named by
// FLYCLAIM_CONFIG, then environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("FLYCLAIM_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.HTTPPort = getenv("HTTP_PORT", cfg.HTTPPort)
	cfg.CORSOrigins = getenvList("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.PostgresDSN = getenv("POSTGRES_DSN", cfg.PostgresDSN)
	cfg.FlyClaimAPIURL = getenv("FLYCLAIM_API_URL", cfg.FlyClaimAPIURL)
	cfg.UpstreamTimeoutSec = getenvInt("UPSTREAM_TIMEOUT_SEC", cfg.UpstreamTimeoutSec)
	cfg.TemporalAddress = getenv("TEMPORAL_ADDRESS", cfg.TemporalAddress)
	cfg.TemporalNamespace = getenv("TEMPORAL_NAMESPACE", cfg.TemporalNamespace)
	cfg.TemporalTaskQueue = getenv("TEMPORAL_TASK_QUEUE", cfg.TemporalTaskQueue)
	cfg.WorkflowIDPrefix = getenv("WORKFLOW_ID_PREFIX", cfg.WorkflowIDPrefix)
	cfg.MinioEndpoint = getenv("MINIO_ENDPOINT", cfg.MinioEndpoint)
	cfg.MinioAccessKey = getenv("MINIO_ACCESS_KEY", cfg.MinioAccessKey)
	cfg.MinioSecretKey = getenv("MINIO_SECRET_KEY", cfg.MinioSecretKey)
	cfg.MinioBucket = getenv("MINIO_BUCKET", cfg.MinioBucket)
	cfg.MinioUseSSL = getenvBool("MINIO_USE_SSL", cfg.MinioUseSSL)
	cfg.AllowedUploadBytes = int64(getenvInt("MAX_UPLOAD_BYTES", int(cfg.AllowedUploadBytes)))
	cfg.UploadsPerMinute = getenvInt("UPLOADS_PER_MINUTE", cfg.UploadsPerMinute)
	cfg.TrackPollInterval = getenvDuration("TRACK_POLL_INTERVAL", cfg.TrackPollInterval)
	cfg.TrackMaxPolls = getenvInt("TRACK_MAX_POLLS", cfg.TrackMaxPolls)
	cfg.LogLevel = getenv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getenv("LOG_FORMAT", cfg.LogFormat)

	if cfg.PostgresDSN == "" {
		return Config{}, fmt.Errorf("POSTGRES_DSN is required")
	}
	if cfg.FlyClaimAPIURL == "" {
		return Config{}, fmt.Errorf("FLYCLAIM_API_URL is required")
	}

	return cfg, nil
}

func (c Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutSec) * time.Second
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal([]byte(interpolateEnvVars(string(data))), cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// interpolateEnvVars replaces ${VAR} with the environment value, or an empty string.
func interpolateEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func getenv(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getenvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
