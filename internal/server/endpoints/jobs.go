package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/api"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/apperr"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/jobs"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/svcctx"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/types"
)

// JobErrorResponse carries the recorded job alongside a dispatch failure.
type JobErrorResponse struct {
	Error string     `json:"error"`
	Job   *types.Job `json:"job"`
}

// writeJobResult writes job, or the dispatch error together with the job
// when the job was recorded but not accepted by the worker.
func writeJobResult(w http.ResponseWriter, r *http.Request, okStatus int, job *types.Job, err error) {
	switch {
	case err == nil:
		writeJSON(w, okStatus, job)
	case job != nil:
		writeJSON(w, apperr.HTTPStatus(err), JobErrorResponse{Error: err.Error(), Job: job})
	default:
		writeErr(w, r, err)
	}
}

// CreateJobEndpoint handles POST /api/jobs.
type CreateJobEndpoint struct{}

func (e *CreateJobEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/jobs", e.handler
}

func (e *CreateJobEndpoint) RequiresInit() bool { return true }
func (e *CreateJobEndpoint) Group() string      { return "jobs" }

// handler godoc
//
//	@Summary		Start a training job
//	@Description	Dispatch a validated dataset to the worker. In mock mode the job stays pending.
//	@Tags			jobs
//	@Accept			json
//	@Produce		json
//	@Param			request	body	jobs.JobInput	true	"Job input"
//	@Success		201	{object}	types.Job
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		412	{object}	ErrorResponse
//	@Failure		502	{object}	JobErrorResponse
//	@Failure		503	{object}	JobErrorResponse
//	@Router			/api/jobs [post]
func (e *CreateJobEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	var in jobs.JobInput
	if !decodeBody(w, r, &in) {
		return
	}
	job, err := svcctx.JobManagerFrom(r.Context()).CreateJob(r.Context(), user, in)
	writeJobResult(w, r, http.StatusCreated, job, err)
}

func (e *CreateJobEndpoint) Command(getServerURL func() string) *cobra.Command {
	var in jobs.JobInput
	var params map[string]string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Start training on a validated dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(params) > 0 {
				in.Params = make(map[string]any, len(params))
				for k, v := range params {
					in.Params[k] = v
				}
			}
			var job types.Job
			if err := api.NewClient(getServerURL()).Post(cmd.Context(), "/api/jobs", in, &job); err != nil {
				return err
			}
			return output(job)
		},
	}
	cmd.Flags().StringVar(&in.DatasetID, "dataset", "", "validated dataset id")
	cmd.Flags().StringToStringVar(&params, "param", nil, "training parameter key=value (repeatable)")
	cmd.MarkFlagRequired("dataset")
	return cmd
}

// RetryJobEndpoint handles POST /api/jobs/{id}/retry.
type RetryJobEndpoint struct{}

func (e *RetryJobEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/jobs/{id}/retry", e.handler
}

func (e *RetryJobEndpoint) RequiresInit() bool { return true }
func (e *RetryJobEndpoint) Group() string      { return "jobs" }

// handler godoc
//
//	@Summary		Retry a pending job
//	@Description	Re-dispatch a pending job left by an unavailable worker or mock mode.
//	@Tags			jobs
//	@Produce		json
//	@Param			id	path	string	true	"Job ID"
//	@Success		200	{object}	types.Job
//	@Failure		404	{object}	ErrorResponse
//	@Failure		412	{object}	ErrorResponse
//	@Failure		502	{object}	JobErrorResponse
//	@Router			/api/jobs/{id}/retry [post]
func (e *RetryJobEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	job, err := svcctx.JobManagerFrom(r.Context()).RetryJob(r.Context(), user, r.PathValue("id"))
	writeJobResult(w, r, http.StatusOK, job, err)
}

func (e *RetryJobEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Redispatch a pending job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var job types.Job
			if err := api.NewClient(getServerURL()).Post(cmd.Context(), "/api/jobs/"+args[0]+"/retry", nil, &job); err != nil {
				return err
			}
			return output(job)
		},
	}
}

// ListJobsResponse lists the caller's jobs.
type ListJobsResponse struct {
	Jobs []*types.Job `json:"jobs"`
}

// ListJobsEndpoint handles GET /api/jobs.
type ListJobsEndpoint struct{}

func (e *ListJobsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/jobs", e.handler
}

func (e *ListJobsEndpoint) RequiresInit() bool { return true }
func (e *ListJobsEndpoint) Group() string      { return "jobs" }

func (e *ListJobsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	js, err := svcctx.JobManagerFrom(r.Context()).ListJobs(r.Context(), user)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filtered := js[:0]
		for _, j := range js {
			if string(j.Status) == status {
				filtered = append(filtered, j)
			}
		}
		js = filtered
	}
	writeJSON(w, http.StatusOK, ListJobsResponse{Jobs: js})
}

func (e *ListJobsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your training jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/jobs"
			if status != "" {
				path += "?status=" + status
			}
			var resp ListJobsResponse
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return output(resp)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status (pending, processing, completed, failed)")
	return cmd
}

// GetJobEndpoint handles GET /api/jobs/{id}.
type GetJobEndpoint struct{}

func (e *GetJobEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/jobs/{id}", e.handler
}

func (e *GetJobEndpoint) RequiresInit() bool { return true }
func (e *GetJobEndpoint) Group() string      { return "jobs" }

func (e *GetJobEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	job, err := svcctx.JobManagerFrom(r.Context()).GetJob(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (e *GetJobEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a training job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var job types.Job
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), "/api/jobs/"+args[0], &job); err != nil {
				return err
			}
			return output(job)
		},
	}
}
