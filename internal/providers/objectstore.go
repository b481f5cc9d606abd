package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DatasetKey is the object key a dataset archive is uploaded under.
func DatasetKey(ownerID, datasetID string) string {
	return fmt.Sprintf("datasets/%s/%s.zip", url.PathEscape(ownerID), url.PathEscape(datasetID))
}

// HTTPPresigner asks an external presign service for upload targets.
// The service receives {"key", "contentType"} and answers with an Upload.
type HTTPPresigner struct {
	url    string
	client *http.Client
}

// NewHTTPPresigner creates a presigner for the service at endpoint.
func NewHTTPPresigner(endpoint string, timeout time.Duration) (*HTTPPresigner, error) {
	if endpoint == "" {
		return nil, errors.New("presign URL is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPPresigner{url: endpoint, client: &http.Client{Timeout: timeout}}, nil
}

// PresignUpload implements Presigner.
func (p *HTTPPresigner) PresignUpload(ctx context.Context, key string) (*Upload, error) {
	body, err := json.Marshal(map[string]string{"key": key, "contentType": "application/zip"})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("presign request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read presign response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("presign error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var up Upload
	if err := json.Unmarshal(raw, &up); err != nil {
		return nil, fmt.Errorf("failed to unmarshal presign response: %w", err)
	}
	if up.UploadURL == "" || up.PublicURL == "" {
		return nil, fmt.Errorf("presign response missing urls: %s", string(raw))
	}
	return &up, nil
}

// StaticPresigner derives both URLs from a base URL. It suits local
// development against a plain file server or a public bucket.
type StaticPresigner struct {
	BaseURL string
}

// PresignUpload implements Presigner.
func (p StaticPresigner) PresignUpload(_ context.Context, key string) (*Upload, error) {
	if p.BaseURL == "" {
		return nil, errors.New("static presigner has no base URL")
	}
	u := strings.TrimSuffix(p.BaseURL, "/") + "/" + strings.TrimPrefix(key, "/")
	return &Upload{UploadURL: u, PublicURL: u}, nil
}
