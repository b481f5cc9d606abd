package testutil

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

// CleanupLabel marks containers started by tests. Its value is the test name.
const CleanupLabel = "vectra-test"

// TestingT is the part of testing.T the Docker helpers need.
type TestingT interface {
	Name() string
	Cleanup(func())
	Logf(format string, args ...any)
	Skipf(format string, args ...any)
	Helper()
}

// DockerClient returns a client for the local daemon and removes every
// container labeled for t when the test ends. It skips t if no daemon answers.
func DockerClient(t TestingT) *client.Client {
	t.Helper()

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		t.Skipf("docker client unavailable: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		t.Skipf("docker daemon not reachable: %v", err)
	}

	// Registered before any caller cleanup, so it runs after the server
	// under test has stopped its own container.
	t.Cleanup(func() {
		defer cli.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		removed, err := removeLabeled(ctx, cli, CleanupLabel+"="+t.Name())
		for _, name := range removed {
			t.Logf("removed test container %s", name)
		}
		if err != nil {
			t.Logf("test container cleanup: %v", err)
		}
	})

	return cli
}

// UniqueContainerName returns vectra-test-<prefix>-<test>-<hex>.
func UniqueContainerName(t TestingT, prefix string) string {
	t.Helper()
	var b [4]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("%s-%s-%s-%s", CleanupLabel, prefix, containerSafe(t.Name()), hex.EncodeToString(b[:]))
}

// ContainerLabels are the labels DockerClient's cleanup looks for.
func ContainerLabels(t TestingT) map[string]string {
	return map[string]string{CleanupLabel: t.Name()}
}

// removeLabeled force-removes containers matching a label selector and
// returns their names. It keeps going past individual failures.
func removeLabeled(ctx context.Context, cli *client.Client, selector string) ([]string, error) {
	list, err := cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", selector)),
	})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	var (
		removed []string
		errs    []string
	)
	for _, c := range list {
		name := c.ID[:12]
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		// Force removal kills a running container, no separate stop needed.
		if err := cli.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		removed = append(removed, name)
	}
	if len(errs) > 0 {
		return removed, fmt.Errorf("remove containers: %s", strings.Join(errs, "; "))
	}
	return removed, nil
}

// containerSafe lowercases a test name and keeps it within Docker's
// container name alphabet.
func containerSafe(name string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == '/' || r == '_' || r == '-':
			return '-'
		}
		return -1
	}, name)
	if len(s) > 30 {
		s = s[:30]
	}
	return strings.Trim(s, "-")
}
