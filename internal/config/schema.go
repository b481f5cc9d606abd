package config

import (
	"strings"
	"time"
)

// Config holds vectra configuration.
// Stored at: ~/.vectra/config.yaml
type Config struct {
	Server      ServerCfg      `mapstructure:"server" yaml:"server"`
	Storage     StorageCfg     `mapstructure:"storage" yaml:"storage"`
	Defra       DefraConfig    `mapstructure:"defra" yaml:"defra"`
	Signing     SigningCfg     `mapstructure:"signing" yaml:"signing"`
	Worker      WorkerCfg      `mapstructure:"worker" yaml:"worker"`
	Webhook     WebhookCfg     `mapstructure:"webhook" yaml:"webhook"`
	ObjectStore ObjectStoreCfg `mapstructure:"objectstore" yaml:"objectstore"`
	Dataset     DatasetCfg     `mapstructure:"dataset" yaml:"dataset"`
	Catalog     CatalogCfg     `mapstructure:"catalog" yaml:"catalog"`
	Replay      ReplayCfg      `mapstructure:"replay" yaml:"replay"`
	Log         LogCfg         `mapstructure:"log" yaml:"log"`
}

// ServerCfg is the HTTP listener.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

// Storage backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendDefra  = "defra"
)

// StorageCfg selects the document store.
type StorageCfg struct {
	Backend    string `mapstructure:"backend" yaml:"backend"`         // memory, sqlite or defra
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"` // empty means ~/.vectra/data/vectra.db
}

// DefraConfig holds DefraDB container configuration.
type DefraConfig struct {
	// URL of an already running DefraDB. When empty the container is managed.
	URL string `mapstructure:"url" yaml:"url"`
	// ContainerName is the Docker container name (default: vectra-defra)
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
	// Image is the Docker image to use (default: sourcenetwork/defradb:latest)
	Image string `mapstructure:"image" yaml:"image"`
	// Port is the host port to bind (default: 9181)
	Port string `mapstructure:"port" yaml:"port"`
}

// SigningCfg configures the shared HMAC secret.
type SigningCfg struct {
	Secret string        `mapstructure:"secret" yaml:"secret"` // supports ${ENV_VAR} syntax
	Window time.Duration `mapstructure:"window" yaml:"window"`
}

// WorkerCfg points at the training worker. An empty URL runs in mock mode.
type WorkerCfg struct {
	URL               string        `mapstructure:"url" yaml:"url"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// WebhookCfg is where the worker reaches this service.
type WebhookCfg struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

// ObjectStoreCfg configures dataset upload URLs. PresignURL wins when both
// are set.
type ObjectStoreCfg struct {
	PresignURL    string        `mapstructure:"presign_url" yaml:"presign_url"`
	PublicBaseURL string        `mapstructure:"public_base_url" yaml:"public_base_url"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// DatasetCfg holds dataset quality thresholds.
type DatasetCfg struct {
	MinImages     int `mapstructure:"min_images" yaml:"min_images"`
	SoftMaxImages int `mapstructure:"soft_max_images" yaml:"soft_max_images"`
}

// CatalogCfg locates the template catalog. An empty Dir uses the built-in
// catalog.
type CatalogCfg struct {
	Dir   string `mapstructure:"dir" yaml:"dir"`
	Watch bool   `mapstructure:"watch" yaml:"watch"`
}

// ReplayCfg selects the webhook replay guard. An empty RedisAddr keeps it
// in memory.
type ReplayCfg struct {
	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db"`
}

// LogCfg configures the process logger.
type LogCfg struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text or json
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server:  ServerCfg{Host: "127.0.0.1", Port: "8080"},
		Storage: StorageCfg{Backend: BackendSQLite},
		Defra: DefraConfig{
			ContainerName: "vectra-defra",
			Image:         "sourcenetwork/defradb:latest",
			Port:          "9181",
		},
		Signing:     SigningCfg{Secret: "${VECTRA_SIGNING_SECRET}", Window: 5 * time.Minute},
		Worker:      WorkerCfg{Timeout: 5 * time.Second, RequestsPerMinute: 60},
		Webhook:     WebhookCfg{BaseURL: "http://127.0.0.1:8080"},
		ObjectStore: ObjectStoreCfg{PublicBaseURL: "http://127.0.0.1:9000/datasets", Timeout: 5 * time.Second},
		Dataset:     DatasetCfg{MinImages: 10, SoftMaxImages: 30},
		Log:         LogCfg{Level: "info", Format: "text"},
	}
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// SigningSecret returns the secret with ${ENV_VAR} references resolved.
func (c *Config) SigningSecret() string {
	return ResolveEnvVars(c.Signing.Secret)
}

// CallbackURL is the webhook address handed to the worker.
func (c *Config) CallbackURL() string {
	return strings.TrimRight(c.Webhook.BaseURL, "/") + WebhookPath
}

// WebhookPath is where worker callbacks are received.
const WebhookPath = "/webhooks/training"
