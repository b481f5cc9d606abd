package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/api"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/apperr"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/svcctx"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/types"
)

// InitDatasetRequest creates a dataset for a model.
type InitDatasetRequest struct {
	ModelID    string `json:"model_id"`
	ImageCount int    `json:"image_count"`
}

// InitDatasetEndpoint handles POST /api/datasets.
type InitDatasetEndpoint struct{}

func (e *InitDatasetEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/datasets", e.handler
}

func (e *InitDatasetEndpoint) RequiresInit() bool { return true }
func (e *InitDatasetEndpoint) Group() string      { return "datasets" }

func (e *InitDatasetEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	var req InitDatasetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ds, err := svcctx.JobManagerFrom(r.Context()).InitDataset(r.Context(), user, req.ModelID, req.ImageCount)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ds)
}

func (e *InitDatasetEndpoint) Command(getServerURL func() string) *cobra.Command {
	var req InitDatasetRequest
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a dataset and get its upload URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			var ds types.Dataset
			if err := api.NewClient(getServerURL()).Post(cmd.Context(), "/api/datasets", req, &ds); err != nil {
				return err
			}
			return output(ds)
		},
	}
	cmd.Flags().StringVar(&req.ModelID, "model", "", "model id")
	cmd.Flags().IntVar(&req.ImageCount, "images", 0, "number of images in the archive")
	cmd.MarkFlagRequired("model")
	return cmd
}

// ValidateDatasetRequest optionally corrects the image count.
type ValidateDatasetRequest struct {
	ImageCount int `json:"image_count,omitempty"`
}

// DatasetErrorResponse carries the dataset alongside a failed validation.
type DatasetErrorResponse struct {
	Error   string         `json:"error"`
	Dataset *types.Dataset `json:"dataset"`
}

// ValidateDatasetEndpoint handles POST /api/datasets/{id}/validate.
type ValidateDatasetEndpoint struct{}

func (e *ValidateDatasetEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/datasets/{id}/validate", e.handler
}

func (e *ValidateDatasetEndpoint) RequiresInit() bool { return true }
func (e *ValidateDatasetEndpoint) Group() string      { return "datasets" }

// handler godoc
//
//	@Summary		Validate a dataset
//	@Description	Check the image count against the training limits. A failed validation still returns the dataset.
//	@Tags			datasets
//	@Accept			json
//	@Produce		json
//	@Param			id	path	string	true	"Dataset ID"
//	@Param			request	body	ValidateDatasetRequest	false	"Corrected image count"
//	@Success		200	{object}	types.Dataset
//	@Failure		400	{object}	ErrorResponse
//	@Failure		412	{object}	DatasetErrorResponse
//	@Failure		422	{object}	DatasetErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/datasets/{id}/validate [post]
func (e *ValidateDatasetEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	var req ValidateDatasetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ds, err := svcctx.JobManagerFrom(r.Context()).ValidateDataset(r.Context(), user, r.PathValue("id"), req.ImageCount)
	if err != nil {
		// An invalid dataset is still returned so the report is visible.
		if ds != nil {
			writeJSON(w, apperr.HTTPStatus(err), DatasetErrorResponse{Error: err.Error(), Dataset: ds})
			return
		}
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (e *ValidateDatasetEndpoint) Command(getServerURL func() string) *cobra.Command {
	var req ValidateDatasetRequest
	cmd := &cobra.Command{
		Use:   "validate <id>",
		Short: "Run quality checks on an uploaded dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ds types.Dataset
			if err := api.NewClient(getServerURL()).Post(cmd.Context(), "/api/datasets/"+args[0]+"/validate", req, &ds); err != nil {
				return err
			}
			return output(ds)
		},
	}
	cmd.Flags().IntVar(&req.ImageCount, "images", 0, "corrected image count")
	return cmd
}

// ListDatasetsResponse lists the caller's datasets.
type ListDatasetsResponse struct {
	Datasets []*types.Dataset `json:"datasets"`
}

// ListDatasetsEndpoint handles GET /api/datasets.
type ListDatasetsEndpoint struct{}

func (e *ListDatasetsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/datasets", e.handler
}

func (e *ListDatasetsEndpoint) RequiresInit() bool { return true }
func (e *ListDatasetsEndpoint) Group() string      { return "datasets" }

func (e *ListDatasetsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	dss, err := svcctx.JobManagerFrom(r.Context()).ListDatasets(r.Context(), user)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListDatasetsResponse{Datasets: dss})
}

func (e *ListDatasetsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp ListDatasetsResponse
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), "/api/datasets", &resp); err != nil {
				return err
			}
			return output(resp)
		},
	}
}

// GetDatasetEndpoint handles GET /api/datasets/{id}.
type GetDatasetEndpoint struct{}

func (e *GetDatasetEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/datasets/{id}", e.handler
}

func (e *GetDatasetEndpoint) RequiresInit() bool { return true }
func (e *GetDatasetEndpoint) Group() string      { return "datasets" }

func (e *GetDatasetEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	ds, err := svcctx.JobManagerFrom(r.Context()).GetDataset(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (e *GetDatasetEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ds types.Dataset
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), "/api/datasets/"+args[0], &ds); err != nil {
				return err
			}
			return output(ds)
		},
	}
}
