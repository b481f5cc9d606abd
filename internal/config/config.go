package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	v         *viper.Viper
	config    *Config
	callbacks []func(*Config)
	logger    *slog.Logger
}

// NewManager creates a new config manager and loads initial config.
// An empty cfgFile searches the working directory and ~/.vectra.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{
		v:         viper.New(),
		callbacks: make([]func(*Config), 0),
		logger:    slog.Default(),
	}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile string) error {
	v := cm.v
	for _, e := range DefaultEntries() {
		v.SetDefault(e.Key, e.Value)
	}

	// Environment variables with VECTRA_ prefix, e.g. VECTRA_WORKER_URL
	v.SetEnvPrefix("VECTRA")
	v.SetEnvKeyReplacer(envReplacer)
	v.AutomaticEnv()

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.vectra")
	}

	// Try to read config file (not required)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// File returns the config file in use, or "" when none was found.
func (cm *Manager) File() string {
	return cm.v.ConfigFileUsed()
}

// SetLogger sets the logger used to report rejected reloads.
func (cm *Manager) SetLogger(l *slog.Logger) {
	if l != nil {
		cm.logger = l
	}
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration. A file that fails to
// load or validate leaves the previous config in place.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			cm.logger.Warn("config reload rejected", "file", e.Name, "error", err)
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	backends := []string{BackendMemory, BackendSQLite, BackendDefra}
	if !slices.Contains(backends, c.Storage.Backend) {
		return fmt.Errorf("storage.backend %q: must be one of %v", c.Storage.Backend, backends)
	}
	if c.Dataset.MinImages < 1 {
		return fmt.Errorf("dataset.min_images must be at least 1, got %d", c.Dataset.MinImages)
	}
	if c.Dataset.SoftMaxImages < c.Dataset.MinImages {
		return fmt.Errorf("dataset.soft_max_images (%d) is below dataset.min_images (%d)",
			c.Dataset.SoftMaxImages, c.Dataset.MinImages)
	}
	if c.Signing.Window <= 0 {
		return fmt.Errorf("signing.window must be positive, got %s", c.Signing.Window)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format %q: must be text or json", c.Log.Format)
	}
	return nil
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envPattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Vectra configuration
# Secrets use ${ENV_VAR} syntax to reference environment variables
# Set the webhook secret in your shell: export VECTRA_SIGNING_SECRET=xxx
# Leave worker.url empty to record training jobs in mock mode

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
