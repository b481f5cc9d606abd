package defra

import (
	"context"
	"fmt"
	"io"
	"maps"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

const (
	DefaultImage         = "sourcenetwork/defradb:latest"
	DefaultContainerName = "vectra-defra"
	DefaultPort          = "9181"
	ContainerPort        = "9181/tcp"
	DataDir              = "/data"
	Label                = "vectra-defra"

	defaultReadyTimeout = 30 * time.Second
)

// ContainerStatus is the state of the DefraDB container.
type ContainerStatus string

const (
	StatusRunning  ContainerStatus = "running"
	StatusStopped  ContainerStatus = "stopped"
	StatusNotFound ContainerStatus = "not_found"
	StatusStarting ContainerStatus = "starting"
)

// dockerStates maps Docker's container states onto ContainerStatus.
var dockerStates = map[string]ContainerStatus{
	"running":    StatusRunning,
	"exited":     StatusStopped,
	"dead":       StatusStopped,
	"created":    StatusStarting,
	"restarting": StatusStarting,
}

// DockerConfig configures a DockerManager. Zero fields take defaults.
type DockerConfig struct {
	ContainerName string
	Image         string
	// DataPath is bind-mounted at /data so documents survive container removal.
	DataPath     string
	HostPort     string
	Labels       map[string]string
	ReadyTimeout time.Duration
}

func (c *DockerConfig) applyDefaults() {
	if c.ContainerName == "" {
		c.ContainerName = DefaultContainerName
	}
	if c.Image == "" {
		c.Image = DefaultImage
	}
	if c.HostPort == "" {
		c.HostPort = DefaultPort
	}
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = defaultReadyTimeout
	}
}

// DockerManager runs a local DefraDB node in Docker.
type DockerManager struct {
	cli    *client.Client
	cfg    DockerConfig
	labels map[string]string
}

// NewDockerManager connects to the Docker daemon from the environment.
func NewDockerManager(cfg DockerConfig) (*DockerManager, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	cfg.applyDefaults()

	labels := map[string]string{Label: "true"}
	maps.Copy(labels, cfg.Labels)

	return &DockerManager{cli: cli, cfg: cfg, labels: labels}, nil
}

// Close releases the Docker client.
func (m *DockerManager) Close() error {
	return m.cli.Close()
}

// URL returns the node's API URL on the host.
func (m *DockerManager) URL() string {
	return "http://localhost:" + m.cfg.HostPort
}

// ContainerName returns the managed container's name.
func (m *DockerManager) ContainerName() string {
	return m.cfg.ContainerName
}

// Start brings the node up, creating the container if needed, and waits
// for it to answer health checks. A running container is left alone.
func (m *DockerManager) Start(ctx context.Context) error {
	if _, err := m.cli.Ping(ctx); err != nil {
		return fmt.Errorf("docker is not running: %w", err)
	}

	status, id, err := m.lookup(ctx)
	if err != nil {
		return err
	}

	switch status {
	case StatusRunning:
		return nil
	case StatusStopped, StatusStarting:
		if err := m.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
			return fmt.Errorf("failed to start existing container: %w", err)
		}
	case StatusNotFound:
		if err := m.create(ctx); err != nil {
			return err
		}
	default:
		return fmt.Errorf("container in unexpected state: %s", status)
	}
	return m.WaitReady(ctx, m.cfg.ReadyTimeout)
}

// Stop stops the container, keeping its data.
func (m *DockerManager) Stop(ctx context.Context) error {
	status, id, err := m.lookup(ctx)
	if err != nil || status == StatusNotFound {
		return err
	}
	grace := 10
	if err := m.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &grace}); err != nil {
		return fmt.Errorf("failed to stop container: %w", err)
	}
	return nil
}

// Remove force-removes the container. Bind-mounted data is kept.
func (m *DockerManager) Remove(ctx context.Context) error {
	status, id, err := m.lookup(ctx)
	if err != nil || status == StatusNotFound {
		return err
	}
	if err := m.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}
	return nil
}

// Status reports the container state.
func (m *DockerManager) Status(ctx context.Context) (ContainerStatus, error) {
	status, _, err := m.lookup(ctx)
	return status, err
}

// Logs returns the last tail lines of container output.
func (m *DockerManager) Logs(ctx context.Context, tail string) (string, error) {
	status, id, err := m.lookup(ctx)
	if err != nil {
		return "", err
	}
	if status == StatusNotFound {
		return "", fmt.Errorf("container %s not found", m.cfg.ContainerName)
	}

	rc, err := m.cli.ContainerLogs(ctx, id, container.LogsOptions{ShowStdout: true, ShowStderr: true, Tail: tail})
	if err != nil {
		return "", fmt.Errorf("failed to get logs: %w", err)
	}
	defer rc.Close()

	out, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("failed to read logs: %w", err)
	}
	return string(out), nil
}

// WaitReady polls the node's health endpoint once a second until it
// answers or timeout passes.
func (m *DockerManager) WaitReady(ctx context.Context, timeout time.Duration) error {
	probe := NewClient(m.URL())
	probe.httpClient.Timeout = 2 * time.Second

	attempts := uint(timeout / time.Second)
	if attempts == 0 {
		attempts = 1
	}
	return retry.Do(
		func() error { return probe.HealthCheck(ctx) },
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(time.Second),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
}

func (m *DockerManager) create(ctx context.Context) error {
	if err := m.pullIfMissing(ctx); err != nil {
		return err
	}

	cfg := &container.Config{
		Image: m.cfg.Image,
		Cmd: []string{
			"start",
			"--no-keyring",
			"--url", "0.0.0.0:9181",
			"--store", "badger",
			"--rootdir", DataDir,
		},
		Labels:       m.labels,
		ExposedPorts: nat.PortSet{ContainerPort: struct{}{}},
	}
	host := &container.HostConfig{
		PortBindings: nat.PortMap{
			ContainerPort: {{HostIP: "127.0.0.1", HostPort: m.cfg.HostPort}},
		},
	}
	if m.cfg.DataPath != "" {
		host.Mounts = []mount.Mount{{Type: mount.TypeBind, Source: m.cfg.DataPath, Target: DataDir}}
	}

	resp, err := m.cli.ContainerCreate(ctx, cfg, host, nil, nil, m.cfg.ContainerName)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	if err := m.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = m.cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return fmt.Errorf("failed to start container: %w", err)
	}
	return nil
}

func (m *DockerManager) lookup(ctx context.Context) (ContainerStatus, string, error) {
	args := filters.NewArgs()
	args.Add("name", m.cfg.ContainerName)

	list, err := m.cli.ContainerList(ctx, container.ListOptions{All: true, Filters: args})
	if err != nil {
		return "", "", fmt.Errorf("failed to list containers: %w", err)
	}
	if len(list) == 0 {
		return StatusNotFound, "", nil
	}
	c := list[0]
	if s, ok := dockerStates[string(c.State)]; ok {
		return s, c.ID, nil
	}
	return ContainerStatus(c.State), c.ID, nil
}

func (m *DockerManager) pullIfMissing(ctx context.Context) error {
	if _, err := m.cli.ImageInspect(ctx, m.cfg.Image); err == nil {
		return nil
	}
	rc, err := m.cli.ImagePull(ctx, m.cfg.Image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", m.cfg.Image, err)
	}
	defer rc.Close()
	_, err = io.Copy(io.Discard, rc)
	return err
}
