package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Signing.Secret != "${VECTRA_SIGNING_SECRET}" {
		t.Errorf("expected signing secret placeholder, got %s", cfg.Signing.Secret)
	}
	if got := cfg.CallbackURL(); got != "http://127.0.0.1:8080/webhooks/training" {
		t.Errorf("CallbackURL() = %s", got)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_SIGNING_KEY", "secret123")

		result := ResolveEnvVars("${TEST_SIGNING_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		mgr, err := NewManager(writeConfig(t, `
storage:
  backend: memory
worker:
  url: http://worker:7000/train
  timeout: 2s
dataset:
  min_images: 5
`))
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Storage.Backend != BackendMemory {
			t.Errorf("backend = %s, want memory", cfg.Storage.Backend)
		}
		if cfg.Worker.URL != "http://worker:7000/train" || cfg.Worker.Timeout != 2*time.Second {
			t.Errorf("worker = %+v", cfg.Worker)
		}
		if cfg.Dataset.MinImages != 5 || cfg.Dataset.SoftMaxImages != 30 {
			t.Errorf("dataset = %+v", cfg.Dataset)
		}
		// Unset keys keep their defaults.
		if cfg.Signing.Window != 5*time.Minute {
			t.Errorf("signing.window = %s, want 5m", cfg.Signing.Window)
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("VECTRA_WORKER_URL", "http://env-worker/train")
		t.Setenv("VECTRA_DATASET_SOFT_MAX_IMAGES", "40")

		mgr, err := NewManager(writeConfig(t, "worker:\n  url: http://file-worker/train\n"))
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		cfg := mgr.Get()
		if cfg.Worker.URL != "http://env-worker/train" {
			t.Errorf("worker.url = %s, want env value", cfg.Worker.URL)
		}
		if cfg.Dataset.SoftMaxImages != 40 {
			t.Errorf("soft_max_images = %d, want 40", cfg.Dataset.SoftMaxImages)
		}
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		tests := []struct {
			name    string
			content string
			want    string
		}{
			{"backend", "storage:\n  backend: postgres\n", "storage.backend"},
			{"min images", "dataset:\n  min_images: 0\n", "min_images"},
			{"soft max below min", "dataset:\n  min_images: 20\n  soft_max_images: 10\n", "soft_max_images"},
			{"log format", "log:\n  format: xml\n", "log.format"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := NewManager(writeConfig(t, tt.content))
				if err == nil || !strings.Contains(err.Error(), tt.want) {
					t.Fatalf("NewManager() error = %v, want mention of %s", err, tt.want)
				}
			})
		}
	})
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager(default file) error = %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), mgr.Get()); diff != "" {
		t.Errorf("round-tripped defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_OnChange_Multiple(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "log:\n  level: info\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	// Register multiple callbacks
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "log:\n  level: info\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	// Call Get concurrently to verify no race conditions
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				cfg := mgr.Get()
				_ = cfg.Log.Level
			}
			done <- struct{}{}
		}()
	}

	// Wait for all goroutines
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	configFile := writeConfig(t, "worker:\n  url: http://initial/train\n")

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	// Track callback invocations
	var callbackCount atomic.Int32
	var lastValue atomic.Value

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(cfg.Worker.URL)
	})

	// Start watching
	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(configFile, []byte("worker:\n  url: http://updated/train\n"), 0o644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	// Wait for the watcher to detect the change (fsnotify is async)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if v, _ := lastValue.Load().(string); v == "http://updated/train" {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Fatal("callback was not invoked after config file change")
	}
	if got := mgr.Get().Worker.URL; got != "http://updated/train" {
		t.Errorf("config not updated: got %s", got)
	}
}
