package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/api"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/jobs"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/svcctx"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/types"
)

// CreateModelEndpoint handles POST /api/models.
type CreateModelEndpoint struct{}

func (e *CreateModelEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/models", e.handler
}

func (e *CreateModelEndpoint) RequiresInit() bool { return true }
func (e *CreateModelEndpoint) Group() string      { return "models" }

// handler godoc
//
//	@Summary		Create a LoRA model
//	@Description	Create a named model with an optional trigger word.
//	@Tags			models
//	@Accept			json
//	@Produce		json
//	@Param			request	body	jobs.ModelInput	true	"Model input"
//	@Success		201	{object}	types.Model
//	@Failure		400	{object}	ErrorResponse
//	@Router			/api/models [post]
func (e *CreateModelEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	var in jobs.ModelInput
	if !decodeBody(w, r, &in) {
		return
	}
	m, err := svcctx.JobManagerFrom(r.Context()).CreateModel(r.Context(), user, in)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (e *CreateModelEndpoint) Command(getServerURL func() string) *cobra.Command {
	var in jobs.ModelInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a LoRA model",
		RunE: func(cmd *cobra.Command, args []string) error {
			var m types.Model
			if err := api.NewClient(getServerURL()).Post(cmd.Context(), "/api/models", in, &m); err != nil {
				return err
			}
			return output(m)
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "model name")
	cmd.Flags().StringVar(&in.TriggerWord, "trigger", "", "trigger word")
	cmd.Flags().StringVar(&in.Description, "description", "", "description")
	cmd.MarkFlagRequired("name")
	return cmd
}

// ListModelsResponse lists the caller's models.
type ListModelsResponse struct {
	Models []*types.Model `json:"models"`
}

// ListModelsEndpoint handles GET /api/models.
type ListModelsEndpoint struct{}

func (e *ListModelsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/models", e.handler
}

func (e *ListModelsEndpoint) RequiresInit() bool { return true }
func (e *ListModelsEndpoint) Group() string      { return "models" }

func (e *ListModelsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	ms, err := svcctx.JobManagerFrom(r.Context()).ListModels(r.Context(), user)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListModelsResponse{Models: ms})
}

func (e *ListModelsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your models",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp ListModelsResponse
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), "/api/models", &resp); err != nil {
				return err
			}
			return output(resp)
		},
	}
}

// GetModelEndpoint handles GET /api/models/{id}.
type GetModelEndpoint struct{}

func (e *GetModelEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/models/{id}", e.handler
}

func (e *GetModelEndpoint) RequiresInit() bool { return true }
func (e *GetModelEndpoint) Group() string      { return "models" }

func (e *GetModelEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	m, err := svcctx.JobManagerFrom(r.Context()).GetModel(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (e *GetModelEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var m types.Model
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), "/api/models/"+args[0], &m); err != nil {
				return err
			}
			return output(m)
		},
	}
}

// ListVersionsResponse lists a model's trained versions.
type ListVersionsResponse struct {
	Versions []*types.Version `json:"versions"`
}

// ListModelVersionsEndpoint handles GET /api/models/{id}/versions.
type ListModelVersionsEndpoint struct{}

func (e *ListModelVersionsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/models/{id}/versions", e.handler
}

func (e *ListModelVersionsEndpoint) RequiresInit() bool { return true }
func (e *ListModelVersionsEndpoint) Group() string      { return "models" }

func (e *ListModelVersionsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	vs, err := svcctx.JobManagerFrom(r.Context()).ListVersions(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListVersionsResponse{Versions: vs})
}

func (e *ListModelVersionsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "versions <model-id>",
		Short: "List a model's versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp ListVersionsResponse
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), "/api/models/"+args[0]+"/versions", &resp); err != nil {
				return err
			}
			return output(resp)
		},
	}
}

// GetVersionEndpoint handles GET /api/versions/{id}.
type GetVersionEndpoint struct{}

func (e *GetVersionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/versions/{id}", e.handler
}

func (e *GetVersionEndpoint) RequiresInit() bool { return true }
func (e *GetVersionEndpoint) Group() string      { return "models" }

func (e *GetVersionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	v, err := svcctx.JobManagerFrom(r.Context()).GetVersion(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (e *GetVersionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "version <version-id>",
		Short: "Get a trained version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var v types.Version
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), "/api/versions/"+args[0], &v); err != nil {
				return err
			}
			return output(v)
		},
	}
}
