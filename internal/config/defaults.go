package config

import "strings"

// Entry documents one configuration key and its default.
type Entry struct {
	Key         string `json:"key"`
	Value       any    `json:"value"`
	Description string `json:"description"`
}

var envReplacer = strings.NewReplacer(".", "_")

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return "VECTRA_" + strings.ToUpper(envReplacer.Replace(key))
}

// DefaultEntries returns every configuration key with its default value.
// The values mirror DefaultConfig.
func DefaultEntries() []Entry {
	d := DefaultConfig()
	return []Entry{
		// ===================
		// Server & storage
		// ===================
		{Key: "server.host", Value: d.Server.Host, Description: "HTTP listen host"},
		{Key: "server.port", Value: d.Server.Port, Description: "HTTP listen port"},
		{Key: "storage.backend", Value: d.Storage.Backend, Description: "Document store: memory, sqlite or defra"},
		{Key: "storage.sqlite_path", Value: d.Storage.SQLitePath, Description: "SQLite database file (default ~/.vectra/vectra.db)"},
		{Key: "defra.url", Value: d.Defra.URL, Description: "Existing DefraDB URL; empty manages a Docker container"},
		{Key: "defra.container_name", Value: d.Defra.ContainerName, Description: "DefraDB container name"},
		{Key: "defra.image", Value: d.Defra.Image, Description: "DefraDB container image"},
		{Key: "defra.port", Value: d.Defra.Port, Description: "DefraDB host port"},

		// ===================
		// Training pipeline
		// ===================
		{Key: "signing.secret", Value: d.Signing.Secret, Description: "HMAC secret shared with the training worker"},
		{Key: "signing.window", Value: d.Signing.Window.String(), Description: "Accepted clock skew for signed requests"},
		{Key: "worker.url", Value: d.Worker.URL, Description: "Training worker dispatch URL; empty runs in mock mode"},
		{Key: "worker.timeout", Value: d.Worker.Timeout.String(), Description: "Dispatch request timeout"},
		{Key: "worker.requests_per_minute", Value: d.Worker.RequestsPerMinute, Description: "Dispatch rate limit"},
		{Key: "webhook.base_url", Value: d.Webhook.BaseURL, Description: "Public base URL the worker calls back to"},
		{Key: "objectstore.presign_url", Value: d.ObjectStore.PresignURL, Description: "Presign service endpoint for dataset uploads"},
		{Key: "objectstore.public_base_url", Value: d.ObjectStore.PublicBaseURL, Description: "Static base URL used when no presign service is set"},
		{Key: "objectstore.timeout", Value: d.ObjectStore.Timeout.String(), Description: "Presign request timeout"},
		{Key: "dataset.min_images", Value: d.Dataset.MinImages, Description: "Fewer images fail dataset validation"},
		{Key: "dataset.soft_max_images", Value: d.Dataset.SoftMaxImages, Description: "More images add a validation warning"},
		{Key: "replay.redis_addr", Value: d.Replay.RedisAddr, Description: "Redis address for the webhook replay guard; empty keeps it in memory"},
		{Key: "replay.redis_password", Value: d.Replay.RedisPassword, Description: "Redis password"},
		{Key: "replay.redis_db", Value: d.Replay.RedisDB, Description: "Redis database number"},

		// ===================
		// Catalog & logging
		// ===================
		{Key: "catalog.dir", Value: d.Catalog.Dir, Description: "Catalog YAML directory; empty uses the built-in catalog"},
		{Key: "catalog.watch", Value: d.Catalog.Watch, Description: "Reload the catalog when files in catalog.dir change"},
		{Key: "log.level", Value: d.Log.Level, Description: "debug, info, warn or error"},
		{Key: "log.format", Value: d.Log.Format, Description: "text or json"},
	}
}

// GetDefault returns the default entry for a config key.
// Returns nil if no default exists for the key.
func GetDefault(key string) *Entry {
	for _, entry := range DefaultEntries() {
		if entry.Key == key {
			return &entry
		}
	}
	return nil
}

