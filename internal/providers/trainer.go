package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/apperr"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/signing"
)

const (
	HTTPTrainerName = "http"

	// DefaultDispatchTimeout bounds one dispatch, rate-limit wait included.
	DefaultDispatchTimeout = 5 * time.Second

	maxErrorBody = 4 << 10
)

// HTTPTrainerConfig configures an HTTPTrainer.
type HTTPTrainerConfig struct {
	URL     string
	Timeout time.Duration
	Signer  *signing.Signer
	// RequestsPerMinute throttles dispatches; 0 disables throttling.
	RequestsPerMinute int
	Logger            *slog.Logger
}

// HTTPTrainer dispatches jobs to a worker over signed HTTP POSTs.
type HTTPTrainer struct {
	url     string
	timeout time.Duration
	signer  *signing.Signer
	limiter *RateLimiter
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPTrainer creates an HTTPTrainer. URL and Signer are required.
func NewHTTPTrainer(cfg HTTPTrainerConfig) (*HTTPTrainer, error) {
	if cfg.URL == "" {
		return nil, errors.New("worker URL is required")
	}
	if cfg.Signer == nil {
		return nil, errors.New("worker dispatch requires a signer")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultDispatchTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	t := &HTTPTrainer{
		url:     cfg.URL,
		timeout: cfg.Timeout,
		signer:  cfg.Signer,
		client:  &http.Client{},
		logger:  cfg.Logger,
	}
	if cfg.RequestsPerMinute > 0 {
		t.limiter = NewRateLimiter(cfg.RequestsPerMinute)
	}
	return t, nil
}

// RateLimit reports the dispatch limiter. ok is false when dispatch is
// unlimited.
func (t *HTTPTrainer) RateLimit() (status RateLimiterStatus, ok bool) {
	if t.limiter == nil {
		return RateLimiterStatus{}, false
	}
	return t.limiter.Status(), true
}

// Name returns the trainer identifier.
func (t *HTTPTrainer) Name() string {
	return HTTPTrainerName
}

// Dispatch signs req and POSTs it to the worker. Network failures, timeouts,
// 429 and 503 are transient (ErrWorkerUnavailable); any other non-2xx
// answer is a rejection (ErrWorkerRejected) carrying the worker's message.
func (t *HTTPTrainer) Dispatch(ctx context.Context, req *DispatchRequest) (*DispatchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: dispatch throttled: %v", apperr.ErrWorkerUnavailable, err)
		}
	}

	env, err := t.signer.Sign(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(env.Payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	env.Apply(httpReq.Header)

	start := time.Now()
	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrWorkerUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", apperr.ErrWorkerUnavailable, err)
	}

	t.logger.Debug("worker dispatch",
		"job_id", req.JobID,
		"status", resp.StatusCode,
		"latency", time.Since(start))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		if t.limiter != nil {
			t.limiter.Drain()
		}
		return nil, fmt.Errorf("%w: worker busy (status 429): %s", apperr.ErrWorkerUnavailable, workerMessage(body))
	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, fmt.Errorf("%w: status 503: %s", apperr.ErrWorkerUnavailable, workerMessage(body))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: status %d: %s", apperr.ErrWorkerRejected, resp.StatusCode, workerMessage(body))
	}

	var out DispatchResult
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			// The job was accepted; only the optional id is lost.
			t.logger.Warn("unparseable worker response", "job_id", req.JobID, "error", err)
		}
	}
	return &out, nil
}

// workerMessage extracts a human readable message from an error body.
func workerMessage(body []byte) string {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "no message"
	}
	return msg
}
