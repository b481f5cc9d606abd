// Package home locates vectra's per-user directory: the config file, the
// embedded SQLite store and an optional catalog override.
package home

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvVar overrides the default location when no explicit path is given.
const EnvVar = "VECTRA_HOME"

// Layout under the home directory.
const (
	DefaultDirName   = ".vectra"
	DataDirName      = "data"
	CatalogDirName   = "catalog"
	ConfigFileName   = "config.yaml"
	DatabaseFileName = "vectra.db"
)

// Dir is a resolved home directory. It does not need to exist yet.
type Dir struct {
	root string
}

// New resolves path to a home directory. An empty path falls back to
// $VECTRA_HOME, then ~/.vectra. A leading "~/" expands to the user's home.
func New(path string) (*Dir, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" || path == "~" || strings.HasPrefix(path, "~/") {
		user, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve user home: %w", err)
		}
		switch {
		case path == "":
			path = filepath.Join(user, DefaultDirName)
		case path == "~":
			path = user
		default:
			path = filepath.Join(user, path[2:])
		}
	}
	return &Dir{root: filepath.Clean(path)}, nil
}

func (d *Dir) Path() string         { return d.root }
func (d *Dir) DataPath() string     { return d.join(DataDirName) }
func (d *Dir) DatabasePath() string { return d.join(DataDirName, DatabaseFileName) }
func (d *Dir) CatalogPath() string  { return d.join(CatalogDirName) }
func (d *Dir) ConfigPath() string   { return d.join(ConfigFileName) }

func (d *Dir) join(elem ...string) string {
	return filepath.Join(append([]string{d.root}, elem...)...)
}

// EnsureExists creates the home and data directories. The home holds the
// signing secret in config.yaml, so it is private to the user.
func (d *Dir) EnsureExists() error {
	if err := os.MkdirAll(d.root, 0o700); err != nil {
		return fmt.Errorf("create home %s: %w", d.root, err)
	}
	if err := os.MkdirAll(d.DataPath(), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}

func (d *Dir) Exists() bool        { return isDir(d.root) }
func (d *Dir) ConfigExists() bool  { return isFile(d.ConfigPath()) }
func (d *Dir) CatalogExists() bool { return isDir(d.CatalogPath()) }

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
