package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Browser.NavTimeout != 30*time.Second || cfg.Browser.MaxAttempts != 3 || cfg.Browser.BaseDelay != time.Second {
		t.Fatalf("unexpected browser defaults: %+v", cfg.Browser)
	}
	if cfg.Tags.MaxTags != 10 {
		t.Fatalf("expected max tags 10, got %d", cfg.Tags.MaxTags)
	}
	if cfg.Queue.Backend != BackendMemory || cfg.Storage.Backend != BackendMemory {
		t.Fatalf("expected memory backends, got %q/%q", cfg.Queue.Backend, cfg.Storage.Backend)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
auth:
  enabled: true
  api_key: secret
logging:
  development: false
queue:
  backend: redis
  redis:
    addr: localhost:6379
    db: 2
storage:
  backend: s3
  bucket: previews
  folder: shots
  s3:
    region: us-east-1
    endpoint: http://minio:9000
    use_path_style: true
database:
  dsn: postgres://u:p@localhost/linkvault
  max_conns: 8
  max_conn_lifetime: 5m
browser:
  nav_timeout: 20s
  max_attempts: 4
  base_delay: 500ms
parser:
  youtube_api_key: yt-key
  requests_per_second: 2.5
tags:
  max_tags: 5
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.Auth.Enabled || cfg.Auth.APIKey != "secret" {
		t.Fatalf("expected auth enabled with secret key")
	}
	if cfg.Queue.Backend != BackendRedis || cfg.Queue.Redis.Addr != "localhost:6379" || cfg.Queue.Redis.DB != 2 {
		t.Fatalf("expected redis queue overrides: %+v", cfg.Queue)
	}
	if cfg.Queue.Redis.Prefix != "linkvault:queue" {
		t.Fatalf("expected default redis prefix to survive, got %q", cfg.Queue.Redis.Prefix)
	}
	if cfg.Queue.Redis.HeartbeatTTL != 30*time.Second {
		t.Fatalf("expected default heartbeat ttl, got %s", cfg.Queue.Redis.HeartbeatTTL)
	}
	if cfg.Storage.Backend != BackendS3 || !cfg.Storage.S3.UsePathStyle || cfg.Storage.Folder != "shots" {
		t.Fatalf("expected s3 storage overrides: %+v", cfg.Storage)
	}
	if cfg.Database.MaxConns != 8 || cfg.Database.MaxConnLifetime != 5*time.Minute {
		t.Fatalf("expected database overrides: %+v", cfg.Database)
	}
	if cfg.Browser.NavTimeout != 20*time.Second || cfg.Browser.BaseDelay != 500*time.Millisecond {
		t.Fatalf("expected browser overrides: %+v", cfg.Browser)
	}
	if cfg.Parser.YouTubeAPIKey != "yt-key" || cfg.Parser.RequestsPerSecond != 2.5 {
		t.Fatalf("expected parser overrides: %+v", cfg.Parser)
	}
	if cfg.Tags.MaxTags != 5 {
		t.Fatalf("expected max tags 5, got %d", cfg.Tags.MaxTags)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:  ServerConfig{Port: 8080},
		Queue:   QueueConfig{Backend: BackendMemory, Capacity: 1},
		Storage: StorageConfig{Backend: BackendMemory},
		Browser: BrowserConfig{Enabled: true, NavTimeout: time.Second, MaxAttempts: 1},
		Parser:  ParserConfig{HTTPTimeout: time.Second},
		Tags:    TagsConfig{MaxTags: 10},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should be valid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"auth missing api key", func(c *Config) { c.Auth.Enabled = true }, "auth.api_key"},
		{"unknown queue", func(c *Config) { c.Queue.Backend = "kafka" }, "queue.backend"},
		{"memory capacity", func(c *Config) { c.Queue.Capacity = 0 }, "queue.capacity"},
		{"pubsub project", func(c *Config) { c.Queue.Backend = BackendPubSub }, "queue.pubsub.project_id"},
		{"redis addr", func(c *Config) { c.Queue.Backend = BackendRedis }, "queue.redis.addr"},
		{"redis heartbeat", func(c *Config) {
			c.Queue.Backend = BackendRedis
			c.Queue.Redis.Addr = "localhost:6379"
			c.Queue.Redis.HeartbeatTTL = 0
		}, "queue.redis.heartbeat_ttl"},
		{"unknown storage", func(c *Config) { c.Storage.Backend = "ftp" }, "storage.backend"},
		{"gcs bucket", func(c *Config) { c.Storage.Backend = BackendGCS }, "storage.bucket"},
		{"s3 region", func(c *Config) {
			c.Storage.Backend = BackendS3
			c.Storage.Bucket = "b"
		}, "storage.s3.region"},
		{"nav timeout", func(c *Config) { c.Browser.NavTimeout = 0 }, "browser.nav_timeout"},
		{"max attempts", func(c *Config) { c.Browser.MaxAttempts = 0 }, "browser.max_attempts"},
		{"http timeout", func(c *Config) { c.Parser.HTTPTimeout = 0 }, "parser.http_timeout"},
		{"max tags", func(c *Config) { c.Tags.MaxTags = 0 }, "tags.max_tags"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestBrowserChecksSkippedWhenDisabled(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Server:  ServerConfig{Port: 1},
		Queue:   QueueConfig{Backend: BackendMemory, Capacity: 1},
		Storage: StorageConfig{Backend: BackendMemory},
		Parser:  ParserConfig{HTTPTimeout: time.Second},
		Tags:    TagsConfig{MaxTags: 1},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected disabled browser to skip checks, got %v", err)
	}
}
