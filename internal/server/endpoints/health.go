package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/api"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/defra"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/providers"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/svcctx"
)

// HealthResponse is returned by /health and /ready.
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store,omitempty"`
}

// HealthEndpoint handles GET /health. It answers as soon as the listener is up.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	}
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

func (e *HealthEndpoint) Command(serverURL func() string) *cobra.Command {
	return probeCommand("health", "Check that the server is listening", "/health", serverURL)
}

// ReadyEndpoint handles GET /ready: 200 once services are up and the store
// answers a ping, 503 otherwise.
type ReadyEndpoint struct{}

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresInit() bool { return false }

func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := "ok"
	switch st := svcctx.StoreFrom(r.Context()); {
	case st == nil:
		store = "not_initialized"
	case st.Ping(r.Context()) != nil:
		store = "unhealthy"
	}
	if store != "ok" {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Store: store})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Store: store})
}

func (e *ReadyEndpoint) Command(serverURL func() string) *cobra.Command {
	return probeCommand("ready", "Check that the server can reach its store", "/ready", serverURL)
}

// probeCommand prints a probe response. A 503 comes back as *api.StatusError.
func probeCommand(use, short, path string, serverURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp HealthResponse
			if err := api.NewClient(serverURL()).Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return output(resp)
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server  string        `json:"server"`
	Catalog CatalogStatus `json:"catalog"`
	Worker  WorkerStatus  `json:"worker"`
	Defra   *DefraStatus  `json:"defra,omitempty"`
}

// CatalogStatus describes the published catalog snapshot.
type CatalogStatus struct {
	Version    string `json:"version"`
	Profiles   int    `json:"profiles"`
	Blueprints int    `json:"blueprints"`
	Filters    int    `json:"filters"`
}

// WorkerStatus reports whether jobs are dispatched or recorded in mock mode.
type WorkerStatus struct {
	Mode      string                       `json:"mode"`
	RateLimit *providers.RateLimiterStatus `json:"rate_limit,omitempty"`
}

// DefraStatus shows DefraDB container and health status.
type DefraStatus struct {
	Container string `json:"container"`
	Health    string `json:"health"`
	URL       string `json:"url"`
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct {
	// DefraManager is set by server since it's not in Services
	DefraManager *defra.DockerManager
}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return false }

func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Server: "running", Worker: WorkerStatus{Mode: "not_initialized"}}

	if cat := svcctx.CatalogFrom(r.Context()); cat != nil {
		snap := cat.Snapshot()
		resp.Catalog = CatalogStatus{
			Version:    snap.Version,
			Profiles:   len(snap.Profiles()),
			Blueprints: len(snap.Blueprints()),
			Filters:    len(snap.Filters()),
		}
	}

	if jm := svcctx.JobManagerFrom(r.Context()); jm != nil {
		resp.Worker.Mode = "dispatch"
		if jm.MockMode() {
			resp.Worker.Mode = "mock"
		}
		resp.Worker.RateLimit = jm.DispatchLimit()
	}

	if e.DefraManager != nil {
		resp.Defra = &DefraStatus{URL: e.DefraManager.URL()}
		status, err := e.DefraManager.Status(r.Context())
		if err != nil {
			resp.Defra.Container = "error"
		} else {
			resp.Defra.Container = string(status)
		}
		resp.Defra.Health = "not_initialized"
		if client := svcctx.DefraClientFrom(r.Context()); client != nil {
			resp.Defra.Health = "healthy"
			if err := client.HealthCheck(r.Context()); err != nil {
				resp.Defra.Health = "unhealthy"
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(serverURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show catalog version, worker mode and DefraDB state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp StatusResponse
			if err := api.NewClient(serverURL()).Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			return output(resp)
		},
	}
}
