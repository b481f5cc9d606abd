package defra

import (
	"context"
	"testing"
	"time"
)

func TestDockerConfig_Defaults(t *testing.T) {
	var cfg DockerConfig
	cfg.applyDefaults()

	if cfg.ContainerName != DefaultContainerName {
		t.Errorf("ContainerName = %q", cfg.ContainerName)
	}
	if cfg.Image != DefaultImage {
		t.Errorf("Image = %q", cfg.Image)
	}
	if cfg.HostPort != DefaultPort {
		t.Errorf("HostPort = %q", cfg.HostPort)
	}
	if cfg.ReadyTimeout != 30*time.Second {
		t.Errorf("ReadyTimeout = %s", cfg.ReadyTimeout)
	}

	custom := DockerConfig{ContainerName: "c", HostPort: "1", ReadyTimeout: time.Second}
	custom.applyDefaults()
	if custom.ContainerName != "c" || custom.HostPort != "1" || custom.ReadyTimeout != time.Second {
		t.Errorf("applyDefaults overwrote explicit values: %+v", custom)
	}
}

func TestDockerManager_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping docker integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	mgr, err := NewDockerManager(DockerConfig{
		ContainerName: "vectra-defra-test",
		DataPath:      t.TempDir(),
		HostPort:      "19182",
		Labels:        map[string]string{"vectra-test": "true"},
	})
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	defer mgr.Close()
	defer mgr.Remove(context.Background())

	if _, err := mgr.cli.Ping(ctx); err != nil {
		t.Skipf("docker not running: %v", err)
	}

	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	status, err := mgr.Status(ctx)
	if err != nil || status != StatusRunning {
		t.Fatalf("Status() = %s, %v", status, err)
	}
	if err := NewClient(mgr.URL()).HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if err := mgr.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}
