package endpoints

import (
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/config"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/svcctx"
)

// TrainingWebhookEndpoint handles POST /webhooks/training.
// The worker authenticates with signature headers, not X-User-ID.
type TrainingWebhookEndpoint struct{}

func (e *TrainingWebhookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", config.WebhookPath, e.handler
}

func (e *TrainingWebhookEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Training callback
//	@Description	Signed status callback from the worker. Replayed deliveries return the original outcome.
//	@Tags			webhooks
//	@Accept			json
//	@Produce		json
//	@Param			X-Signature	header	string	true	"Hex HMAC of the signed payload"
//	@Param			X-Timestamp	header	string	true	"Epoch milliseconds"
//	@Success		200	{object}	jobs.CallbackResult
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Router			/webhooks/training [post]
func (e *TrainingWebhookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	// The raw bytes are what was signed.
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "callback body too large")
		return
	}
	res, err := svcctx.JobManagerFrom(r.Context()).HandleWebhook(r.Context(), r.Header, body)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Command is nil: only the worker calls this endpoint.
func (e *TrainingWebhookEndpoint) Command(func() string) *cobra.Command { return nil }
