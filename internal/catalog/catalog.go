package catalog

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

//go:embed defaults/*.yaml
var defaultFiles embed.FS

// Defaults returns the built-in catalog sources.
func Defaults() fs.FS {
	sub, err := fs.Sub(defaultFiles, "defaults")
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded defaults: %v", err))
	}
	return sub
}

// Catalog publishes the current snapshot and swaps in new ones on refresh.
// Readers hold on to the snapshot they fetched; a refresh never mutates it.
type Catalog struct {
	dir     string
	current atomic.Pointer[Snapshot]
	logger  *slog.Logger
}

// New loads the catalog. An empty dir selects the embedded defaults;
// otherwise YAML files are read from dir.
func New(dir string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{dir: dir, logger: logger}
	if _, err := c.Refresh(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewFromSnapshot wraps an already loaded snapshot. Refresh reloads the
// embedded defaults.
func NewFromSnapshot(s *Snapshot) *Catalog {
	c := &Catalog{logger: slog.Default()}
	c.current.Store(s)
	return c
}

// Snapshot returns the current snapshot.
func (c *Catalog) Snapshot() *Snapshot {
	return c.current.Load()
}

// Dir returns the directory the catalog reads from, or "" for defaults.
func (c *Catalog) Dir() string {
	return c.dir
}

// Refresh reloads the sources and publishes the result. On failure the
// previous snapshot stays current.
func (c *Catalog) Refresh() (*Snapshot, error) {
	src := Defaults()
	if c.dir != "" {
		src = os.DirFS(c.dir)
	}
	snap, err := Load(src)
	if err != nil {
		return nil, err
	}

	prev := c.current.Swap(snap)
	if prev == nil || prev.Version != snap.Version {
		c.logger.Info("catalog loaded",
			"version", snap.Version,
			"profiles", len(snap.profileOrder),
			"blueprints", len(snap.blueprintOrder),
			"blocks", len(snap.blockOrder),
			"filters", len(snap.filterOrder))
	}
	return snap, nil
}

// Watch refreshes the catalog when files in its directory change. It
// returns immediately for the embedded catalog and otherwise blocks until
// ctx is done.
func (c *Catalog) Watch(ctx context.Context) error {
	if c.dir == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("catalog: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(c.dir); err != nil {
		return fmt.Errorf("catalog: watch %s: %w", c.dir, err)
	}

	// Editors write files in bursts; collapse them into one reload.
	const settle = 200 * time.Millisecond
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			switch filepath.Ext(ev.Name) {
			case ".yaml", ".yml":
			default:
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				pending = time.After(settle)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("catalog watcher error", "error", err)
		case <-pending:
			pending = nil
			if _, err := c.Refresh(); err != nil {
				c.logger.Error("catalog reload failed, keeping previous snapshot", "error", err)
			}
		}
	}
}
