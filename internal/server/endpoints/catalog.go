package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/api"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/catalog"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/svcctx"
)

// ListProfilesResponse lists catalog profiles.
type ListProfilesResponse struct {
	Version  string             `json:"version"`
	Profiles []*catalog.Profile `json:"profiles"`
}

// ListProfilesEndpoint handles GET /api/catalog/profiles.
type ListProfilesEndpoint struct{}

func (e *ListProfilesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/catalog/profiles", e.handler
}

func (e *ListProfilesEndpoint) RequiresInit() bool { return true }
func (e *ListProfilesEndpoint) Group() string      { return "catalog" }

func (e *ListProfilesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	snap := svcctx.CatalogFrom(r.Context()).Snapshot()
	writeJSON(w, http.StatusOK, ListProfilesResponse{Version: snap.Version, Profiles: snap.Profiles()})
}

func (e *ListProfilesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List output profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp ListProfilesResponse
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), "/api/catalog/profiles", &resp); err != nil {
				return err
			}
			return output(resp)
		},
	}
}

// ListBlueprintsResponse lists system blueprints.
type ListBlueprintsResponse struct {
	Version    string               `json:"version"`
	Blueprints []*catalog.Blueprint `json:"blueprints"`
}

// ListBlueprintsEndpoint handles GET /api/catalog/blueprints.
type ListBlueprintsEndpoint struct{}

func (e *ListBlueprintsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/catalog/blueprints", e.handler
}

func (e *ListBlueprintsEndpoint) RequiresInit() bool { return true }
func (e *ListBlueprintsEndpoint) Group() string      { return "catalog" }

func (e *ListBlueprintsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	snap := svcctx.CatalogFrom(r.Context()).Snapshot()
	writeJSON(w, http.StatusOK, ListBlueprintsResponse{Version: snap.Version, Blueprints: snap.Blueprints()})
}

func (e *ListBlueprintsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "blueprints",
		Short: "List system blueprints",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp ListBlueprintsResponse
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), "/api/catalog/blueprints", &resp); err != nil {
				return err
			}
			return output(resp)
		},
	}
}

// ListFiltersResponse lists filters.
type ListFiltersResponse struct {
	Version string            `json:"version"`
	Filters []*catalog.Filter `json:"filters"`
}

// ListFiltersEndpoint handles GET /api/catalog/filters.
type ListFiltersEndpoint struct{}

func (e *ListFiltersEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/catalog/filters", e.handler
}

func (e *ListFiltersEndpoint) RequiresInit() bool { return true }
func (e *ListFiltersEndpoint) Group() string      { return "catalog" }

func (e *ListFiltersEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	snap := svcctx.CatalogFrom(r.Context()).Snapshot()
	writeJSON(w, http.StatusOK, ListFiltersResponse{Version: snap.Version, Filters: snap.Filters()})
}

func (e *ListFiltersEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "filters",
		Short: "List filters and their values",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp ListFiltersResponse
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), "/api/catalog/filters", &resp); err != nil {
				return err
			}
			return output(resp)
		},
	}
}

// RefreshCatalogResponse reports the snapshot published by a refresh.
type RefreshCatalogResponse struct {
	Version  string `json:"version"`
	Previous string `json:"previous"`
	Changed  bool   `json:"changed"`
}

// RefreshCatalogEndpoint handles POST /api/catalog/refresh.
type RefreshCatalogEndpoint struct{}

func (e *RefreshCatalogEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/catalog/refresh", e.handler
}

func (e *RefreshCatalogEndpoint) RequiresInit() bool { return true }
func (e *RefreshCatalogEndpoint) Group() string      { return "catalog" }

// handler godoc
//
//	@Summary		Refresh the catalog
//	@Description	Reload the catalog files and publish a new snapshot if they changed.
//	@Tags			catalog
//	@Produce		json
//	@Success		200	{object}	RefreshCatalogResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/catalog/refresh [post]
func (e *RefreshCatalogEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	cat := svcctx.CatalogFrom(r.Context())
	prev := cat.Snapshot().Version
	snap, err := cat.Refresh()
	if err != nil {
		// The previous snapshot stays published.
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("catalog refresh failed: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, RefreshCatalogResponse{Version: snap.Version, Previous: prev, Changed: snap.Version != prev})
}

func (e *RefreshCatalogEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Reload the catalog from its sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp RefreshCatalogResponse
			if err := api.NewClient(getServerURL()).Post(cmd.Context(), "/api/catalog/refresh", nil, &resp); err != nil {
				return err
			}
			return output(resp)
		},
	}
}
