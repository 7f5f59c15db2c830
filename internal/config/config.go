// Package config loads and validates linkvault configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendPubSub = "pubsub"
	BackendRedis  = "redis"
	BackendGCS    = "gcs"
	BackendS3     = "s3"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Parser   ParserConfig   `mapstructure:"parser"`
	Tags     TagsConfig     `mapstructure:"tags"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// QueueConfig selects the job broker.
type QueueConfig struct {
	Backend  string       `mapstructure:"backend"`
	Capacity int          `mapstructure:"capacity"`
	PubSub   PubSubConfig `mapstructure:"pubsub"`
	Redis    RedisConfig  `mapstructure:"redis"`
}

// PubSubConfig holds the Pub/Sub project and provisioning switch.
type PubSubConfig struct {
	ProjectID    string `mapstructure:"project_id"`
	EnsureQueues bool   `mapstructure:"ensure_queues"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`

	// ConsumerID names this process's processing lists; empty picks a random one.
	ConsumerID   string        `mapstructure:"consumer_id"`
	HeartbeatTTL time.Duration `mapstructure:"heartbeat_ttl"`
}

// StorageConfig selects where preview images go.
type StorageConfig struct {
	Backend    string   `mapstructure:"backend"`
	Bucket     string   `mapstructure:"bucket"`
	Prefix     string   `mapstructure:"prefix"`
	Folder     string   `mapstructure:"folder"`
	PublicBase string   `mapstructure:"public_base"`
	S3         S3Config `mapstructure:"s3"`
}

// S3Config holds S3-specific settings.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// DatabaseConfig controls the Postgres content store. An empty DSN selects
// the in-memory store.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	Migrate         bool          `mapstructure:"migrate"`
}

// BrowserConfig configures the shared headless browser and page fetcher.
type BrowserConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ExecPath    string        `mapstructure:"exec_path"`
	RemoteURL   string        `mapstructure:"remote_url"`
	Headless    bool          `mapstructure:"headless"`
	NoSandbox   bool          `mapstructure:"no_sandbox"`
	NavTimeout  time.Duration `mapstructure:"nav_timeout"`
	IdleGrace   time.Duration `mapstructure:"idle_grace"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
}

// ParserConfig configures metadata strategies and their HTTP clients.
type ParserConfig struct {
	UserAgent         string        `mapstructure:"user_agent"`
	HTTPTimeout       time.Duration `mapstructure:"http_timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	GitHubAPIBase     string        `mapstructure:"github_api_base"`
	InstagramBase     string        `mapstructure:"instagram_base"`
	YouTubeAPIKey     string        `mapstructure:"youtube_api_key"`
	YouTubeEndpoint   string        `mapstructure:"youtube_endpoint"`
}

// TagsConfig bounds generated tags.
type TagsConfig struct {
	MaxTags int `mapstructure:"max_tags"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LINKVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// setDefaults registers every key so environment overrides are picked up by
// Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", "60s")
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("logging.development", true)

	v.SetDefault("queue.backend", BackendMemory)
	v.SetDefault("queue.capacity", 256)
	v.SetDefault("queue.pubsub.project_id", "")
	v.SetDefault("queue.pubsub.ensure_queues", false)
	v.SetDefault("queue.redis.addr", "")
	v.SetDefault("queue.redis.password", "")
	v.SetDefault("queue.redis.db", 0)
	v.SetDefault("queue.redis.prefix", "linkvault:queue")
	v.SetDefault("queue.redis.consumer_id", "")
	v.SetDefault("queue.redis.heartbeat_ttl", "30s")

	v.SetDefault("storage.backend", BackendMemory)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("storage.folder", "previews")
	v.SetDefault("storage.public_base", "")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.region", "")
	v.SetDefault("storage.s3.access_key_id", "")
	v.SetDefault("storage.s3.secret_access_key", "")
	v.SetDefault("storage.s3.use_path_style", false)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.table", "content_items")
	v.SetDefault("database.max_conns", 0)
	v.SetDefault("database.min_conns", 0)
	v.SetDefault("database.max_conn_lifetime", "0s")
	v.SetDefault("database.migrate", true)

	v.SetDefault("browser.enabled", true)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.remote_url", "")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.no_sandbox", false)
	v.SetDefault("browser.nav_timeout", "30s")
	v.SetDefault("browser.idle_grace", "2s")
	v.SetDefault("browser.max_attempts", 3)
	v.SetDefault("browser.base_delay", "1s")

	v.SetDefault("parser.user_agent", "linkvault-bot/1.0")
	v.SetDefault("parser.http_timeout", "15s")
	v.SetDefault("parser.max_retries", 2)
	v.SetDefault("parser.requests_per_second", 5.0)
	v.SetDefault("parser.burst", 5)
	v.SetDefault("parser.github_api_base", "https://api.github.com")
	v.SetDefault("parser.instagram_base", "https://www.instagram.com")
	v.SetDefault("parser.youtube_api_key", "")
	v.SetDefault("parser.youtube_endpoint", "")

	v.SetDefault("tags.max_tags", 10)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Queue.Backend {
	case BackendMemory:
		if c.Queue.Capacity <= 0 {
			return fmt.Errorf("queue.capacity must be > 0")
		}
	case BackendPubSub:
		if c.Queue.PubSub.ProjectID == "" {
			return fmt.Errorf("queue.pubsub.project_id is required for the pubsub backend")
		}
	case BackendRedis:
		if c.Queue.Redis.Addr == "" {
			return fmt.Errorf("queue.redis.addr is required for the redis backend")
		}
		if c.Queue.Redis.HeartbeatTTL <= 0 {
			return fmt.Errorf("queue.redis.heartbeat_ttl must be > 0")
		}
	default:
		return fmt.Errorf("queue.backend %q is not one of memory, pubsub, redis", c.Queue.Backend)
	}
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendGCS:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the gcs backend")
		}
	case BackendS3:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the s3 backend")
		}
		if c.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required for the s3 backend")
		}
	default:
		return fmt.Errorf("storage.backend %q is not one of memory, gcs, s3", c.Storage.Backend)
	}
	if c.Browser.Enabled {
		if c.Browser.NavTimeout <= 0 {
			return fmt.Errorf("browser.nav_timeout must be > 0")
		}
		if c.Browser.MaxAttempts <= 0 {
			return fmt.Errorf("browser.max_attempts must be > 0")
		}
	}
	if c.Parser.HTTPTimeout <= 0 {
		return fmt.Errorf("parser.http_timeout must be > 0")
	}
	if c.Tags.MaxTags <= 0 {
		return fmt.Errorf("tags.max_tags must be > 0")
	}
	return nil
}
