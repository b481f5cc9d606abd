package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/api"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/svcctx"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/types"
)

// ActivateRequest binds a trained version to the caller.
type ActivateRequest struct {
	VersionID string   `json:"version_id"`
	Weight    *float64 `json:"weight,omitempty"`
}

// ActivateEndpoint handles PUT /api/activation.
type ActivateEndpoint struct{}

func (e *ActivateEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/activation", e.handler
}

func (e *ActivateEndpoint) RequiresInit() bool { return true }
func (e *ActivateEndpoint) Group() string      { return "activation" }

// handler godoc
//
//	@Summary		Activate a LoRA version
//	@Description	Bind a completed version to the caller. Later compiles apply it.
//	@Tags			activation
//	@Accept			json
//	@Produce		json
//	@Param			request	body	ActivateRequest	true	"Version and optional weight"
//	@Success		200	{object}	types.ActivationBinding
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		412	{object}	ErrorResponse
//	@Router			/api/activation [put]
func (e *ActivateEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	var req ActivateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	b, err := svcctx.ActivationFrom(r.Context()).Activate(r.Context(), user, req.VersionID, req.Weight)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (e *ActivateEndpoint) Command(getServerURL func() string) *cobra.Command {
	var weight float64
	cmd := &cobra.Command{
		Use:   "set <version-id>",
		Short: "Use a trained version for your compiles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := ActivateRequest{VersionID: args[0]}
			if cmd.Flags().Changed("weight") {
				req.Weight = &weight
			}
			var b types.ActivationBinding
			if err := api.NewClient(getServerURL()).Put(cmd.Context(), "/api/activation", req, &b); err != nil {
				return err
			}
			return output(b)
		},
	}
	cmd.Flags().Float64Var(&weight, "weight", 0.8, "adapter weight (0-1)")
	return cmd
}

// GetActivationEndpoint handles GET /api/activation.
type GetActivationEndpoint struct{}

func (e *GetActivationEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/activation", e.handler
}

func (e *GetActivationEndpoint) RequiresInit() bool { return true }
func (e *GetActivationEndpoint) Group() string      { return "activation" }

func (e *GetActivationEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	b, err := svcctx.ActivationFrom(r.Context()).Get(r.Context(), user)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (e *GetActivationEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show your active version",
		RunE: func(cmd *cobra.Command, args []string) error {
			var b types.ActivationBinding
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), "/api/activation", &b); err != nil {
				return err
			}
			return output(b)
		},
	}
}

// ClearActivationEndpoint handles DELETE /api/activation.
type ClearActivationEndpoint struct{}

func (e *ClearActivationEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/activation", e.handler
}

func (e *ClearActivationEndpoint) RequiresInit() bool { return true }
func (e *ClearActivationEndpoint) Group() string      { return "activation" }

// handler godoc
//
//	@Summary		Clear the active LoRA
//	@Description	Remove the caller's binding. Clearing twice is not an error.
//	@Tags			activation
//	@Success		204
//	@Router			/api/activation [delete]
func (e *ClearActivationEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	if err := svcctx.ActivationFrom(r.Context()).Clear(r.Context(), user); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *ClearActivationEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Stop blending a trained version into compiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := api.NewClient(getServerURL()).Delete(cmd.Context(), "/api/activation"); err != nil {
				return err
			}
			fmt.Println("Activation cleared")
			return nil
		},
	}
}
