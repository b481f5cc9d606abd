package endpoints

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/api"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/prompts"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/svcctx"
)

// CompileEndpoint handles POST /api/compile.
type CompileEndpoint struct{}

func (e *CompileEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/compile", e.handler
}

func (e *CompileEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Compile a prompt
//	@Description	Compile a profile and blueprint into a positive and negative prompt. The result is saved to the caller's history.
//	@Tags			generations
//	@Accept			json
//	@Produce		json
//	@Param			request	body	prompts.CompileInput	true	"Compile input"
//	@Success		200	{object}	prompts.Generation
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/compile [post]
func (e *CompileEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	var in prompts.CompileInput
	if !decodeBody(w, r, &in) {
		return
	}
	gen, err := svcctx.PromptsFrom(r.Context()).Compile(r.Context(), user, in)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gen)
}

func (e *CompileEndpoint) Command(getServerURL func() string) *cobra.Command {
	var in prompts.CompileInput
	var filters map[string]string
	var weight float64
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a prompt",
		Example: `  vectra api compile -p sdxl -b product_hero --subject "a red sneaker" \
    --filter realism=dslr --seed launch-1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Filters = filters
			if cmd.Flags().Changed("weight") {
				in.AdapterWeight = &weight
			}
			var gen prompts.Generation
			if err := api.NewClient(getServerURL()).Post(cmd.Context(), "/api/compile", in, &gen); err != nil {
				return err
			}
			return output(gen)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&in.ProfileID, "profile", "p", "", "output profile id")
	f.StringVarP(&in.BlueprintID, "blueprint", "b", "", "system or user blueprint id")
	f.StringVar(&in.Subject, "subject", "", "subject")
	f.StringVar(&in.Context, "context", "", "context")
	f.StringVar(&in.Items, "items", "", "items")
	f.StringVar(&in.Environment, "environment", "", "environment")
	f.StringVar(&in.Restrictions, "restrictions", "", "restrictions")
	f.StringToStringVar(&filters, "filter", nil, "filter selection key=value (repeatable)")
	f.StringVar(&in.Seed, "seed", "", "seed; omit to derive one")
	f.StringVar(&in.ActivationVersionID, "version", "", "trained version to blend instead of the active binding")
	f.Float64Var(&weight, "weight", 0, "adapter weight override (0-1)")
	f.BoolVar(&in.SkipActivation, "no-adapter", false, "compile without any adapter")
	cmd.MarkFlagRequired("profile")
	cmd.MarkFlagRequired("blueprint")
	return cmd
}

// ListGenerationsResponse is the caller's compile history.
type ListGenerationsResponse struct {
	Generations []*prompts.Generation `json:"generations"`
}

// ListGenerationsEndpoint handles GET /api/generations.
type ListGenerationsEndpoint struct{}

func (e *ListGenerationsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/generations", e.handler
}

func (e *ListGenerationsEndpoint) RequiresInit() bool { return true }
func (e *ListGenerationsEndpoint) Group() string      { return "generations" }

func (e *ListGenerationsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}
	gens, err := svcctx.PromptsFrom(r.Context()).History(r.Context(), user, limit)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListGenerationsResponse{Generations: gens})
}

func (e *ListGenerationsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List compile history, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/generations"
			if limit > 0 {
				path += "?limit=" + strconv.Itoa(limit)
			}
			var resp ListGenerationsResponse
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return output(resp)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of generations")
	return cmd
}

// GetGenerationEndpoint handles GET /api/generations/{id}.
type GetGenerationEndpoint struct{}

func (e *GetGenerationEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/generations/{id}", e.handler
}

func (e *GetGenerationEndpoint) RequiresInit() bool { return true }
func (e *GetGenerationEndpoint) Group() string      { return "generations" }

func (e *GetGenerationEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	gen, err := svcctx.PromptsFrom(r.Context()).GetGeneration(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gen)
}

func (e *GetGenerationEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var gen prompts.Generation
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), "/api/generations/"+args[0], &gen); err != nil {
				return err
			}
			return output(gen)
		},
	}
}

// SaveVersionRequest labels a prompt snapshot.
type SaveVersionRequest struct {
	Label string `json:"label"`
}

// SaveVersionEndpoint handles POST /api/generations/{id}/versions.
type SaveVersionEndpoint struct{}

func (e *SaveVersionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/generations/{id}/versions", e.handler
}

func (e *SaveVersionEndpoint) RequiresInit() bool { return true }
func (e *SaveVersionEndpoint) Group() string      { return "generations" }

func (e *SaveVersionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	var req SaveVersionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	v, err := svcctx.PromptsFrom(r.Context()).SaveVersion(r.Context(), user, r.PathValue("id"), req.Label)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (e *SaveVersionEndpoint) Command(getServerURL func() string) *cobra.Command {
	var req SaveVersionRequest
	cmd := &cobra.Command{
		Use:   "save <id>",
		Short: "Save a generation's prompt as a labelled version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var v prompts.PromptVersion
			if err := api.NewClient(getServerURL()).Post(cmd.Context(), "/api/generations/"+args[0]+"/versions", req, &v); err != nil {
				return err
			}
			return output(v)
		},
	}
	cmd.Flags().StringVar(&req.Label, "label", "", "version label")
	return cmd
}

// ListPromptVersionsResponse lists saved versions of a generation.
type ListPromptVersionsResponse struct {
	Versions []*prompts.PromptVersion `json:"versions"`
}

// ListPromptVersionsEndpoint handles GET /api/generations/{id}/versions.
type ListPromptVersionsEndpoint struct{}

func (e *ListPromptVersionsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/generations/{id}/versions", e.handler
}

func (e *ListPromptVersionsEndpoint) RequiresInit() bool { return true }
func (e *ListPromptVersionsEndpoint) Group() string      { return "generations" }

func (e *ListPromptVersionsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	vs, err := svcctx.PromptsFrom(r.Context()).ListVersions(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListPromptVersionsResponse{Versions: vs})
}

func (e *ListPromptVersionsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "versions <id>",
		Short: "List saved versions of a generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp ListPromptVersionsResponse
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), "/api/generations/"+args[0]+"/versions", &resp); err != nil {
				return err
			}
			return output(resp)
		},
	}
}
