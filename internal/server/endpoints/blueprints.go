package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/api"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/prompts"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/svcctx"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/types"
)

func blueprintFlags(cmd *cobra.Command, in *prompts.BlueprintInput) {
	f := cmd.Flags()
	f.StringVar(&in.Name, "name", "", "blueprint name")
	f.StringVar(&in.Category, "category", "", "category")
	f.StringSliceVar(&in.Blocks, "blocks", nil, "catalog block keys, comma separated")
	f.StringSliceVar(&in.Constraints, "constraints", nil, "constraint lines")
	f.StringVar(&in.Note, "note", "", "note stored with this version")
}

// CreateUserBlueprintEndpoint handles POST /api/blueprints.
type CreateUserBlueprintEndpoint struct{}

func (e *CreateUserBlueprintEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/blueprints", e.handler
}

func (e *CreateUserBlueprintEndpoint) RequiresInit() bool { return true }
func (e *CreateUserBlueprintEndpoint) Group() string      { return "blueprints" }

// handler godoc
//
//	@Summary		Create a user blueprint
//	@Description	Create a private blueprint at version 1. Every block must exist in the catalog.
//	@Tags			blueprints
//	@Accept			json
//	@Produce		json
//	@Param			request	body	prompts.BlueprintInput	true	"Blueprint input"
//	@Success		201	{object}	prompts.BlueprintView
//	@Failure		400	{object}	ErrorResponse
//	@Router			/api/blueprints [post]
func (e *CreateUserBlueprintEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	var in prompts.BlueprintInput
	if !decodeBody(w, r, &in) {
		return
	}
	view, err := svcctx.PromptsFrom(r.Context()).CreateUserBlueprint(r.Context(), user, in)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (e *CreateUserBlueprintEndpoint) Command(getServerURL func() string) *cobra.Command {
	var in prompts.BlueprintInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user blueprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			var view prompts.BlueprintView
			if err := api.NewClient(getServerURL()).Post(cmd.Context(), "/api/blueprints", in, &view); err != nil {
				return err
			}
			return output(view)
		},
	}
	blueprintFlags(cmd, &in)
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("blocks")
	return cmd
}

// ListUserBlueprintsResponse lists the caller's blueprints.
type ListUserBlueprintsResponse struct {
	Blueprints []*types.UserBlueprint `json:"blueprints"`
}

// ListUserBlueprintsEndpoint handles GET /api/blueprints.
type ListUserBlueprintsEndpoint struct{}

func (e *ListUserBlueprintsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/blueprints", e.handler
}

func (e *ListUserBlueprintsEndpoint) RequiresInit() bool { return true }
func (e *ListUserBlueprintsEndpoint) Group() string      { return "blueprints" }

func (e *ListUserBlueprintsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	bps, err := svcctx.PromptsFrom(r.Context()).ListUserBlueprints(r.Context(), user)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListUserBlueprintsResponse{Blueprints: bps})
}

func (e *ListUserBlueprintsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your blueprints",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp ListUserBlueprintsResponse
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), "/api/blueprints", &resp); err != nil {
				return err
			}
			return output(resp)
		},
	}
}

// GetUserBlueprintEndpoint handles GET /api/blueprints/{id}.
type GetUserBlueprintEndpoint struct{}

func (e *GetUserBlueprintEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/blueprints/{id}", e.handler
}

func (e *GetUserBlueprintEndpoint) RequiresInit() bool { return true }
func (e *GetUserBlueprintEndpoint) Group() string      { return "blueprints" }

func (e *GetUserBlueprintEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	view, err := svcctx.PromptsFrom(r.Context()).GetUserBlueprint(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (e *GetUserBlueprintEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a blueprint with its latest version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var view prompts.BlueprintView
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), "/api/blueprints/"+args[0], &view); err != nil {
				return err
			}
			return output(view)
		},
	}
}

// UpdateUserBlueprintEndpoint handles PUT /api/blueprints/{id}.
type UpdateUserBlueprintEndpoint struct{}

func (e *UpdateUserBlueprintEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/blueprints/{id}", e.handler
}

func (e *UpdateUserBlueprintEndpoint) RequiresInit() bool { return true }
func (e *UpdateUserBlueprintEndpoint) Group() string      { return "blueprints" }

func (e *UpdateUserBlueprintEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	var in prompts.BlueprintInput
	if !decodeBody(w, r, &in) {
		return
	}
	view, err := svcctx.PromptsFrom(r.Context()).UpdateUserBlueprint(r.Context(), user, r.PathValue("id"), in)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (e *UpdateUserBlueprintEndpoint) Command(getServerURL func() string) *cobra.Command {
	var in prompts.BlueprintInput
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Append a new version to a blueprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var view prompts.BlueprintView
			if err := api.NewClient(getServerURL()).Put(cmd.Context(), "/api/blueprints/"+args[0], in, &view); err != nil {
				return err
			}
			return output(view)
		},
	}
	blueprintFlags(cmd, &in)
	cmd.MarkFlagRequired("blocks")
	return cmd
}

// ListBlueprintVersionsResponse is a blueprint's version history.
type ListBlueprintVersionsResponse struct {
	Versions []*types.BlueprintVersion `json:"versions"`
}

// ListBlueprintVersionsEndpoint handles GET /api/blueprints/{id}/versions.
type ListBlueprintVersionsEndpoint struct{}

func (e *ListBlueprintVersionsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/blueprints/{id}/versions", e.handler
}

func (e *ListBlueprintVersionsEndpoint) RequiresInit() bool { return true }
func (e *ListBlueprintVersionsEndpoint) Group() string      { return "blueprints" }

func (e *ListBlueprintVersionsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	vs, err := svcctx.PromptsFrom(r.Context()).ListBlueprintVersions(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListBlueprintVersionsResponse{Versions: vs})
}

func (e *ListBlueprintVersionsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "versions <id>",
		Short: "List every version of a blueprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp ListBlueprintVersionsResponse
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), "/api/blueprints/"+args[0]+"/versions", &resp); err != nil {
				return err
			}
			return output(resp)
		},
	}
}
