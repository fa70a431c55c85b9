// Package classifier provides the external-classifier boundary: an HTTP
// client for the model server that separates biological scatter from
// precipitation, and a rule-based threshold strategy usable when no
// model server is deployed. Both implement radar.Classifier and can be
// swapped without touching the pipeline.
package classifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/radar-ppi-etl/internal/radar"
)

// Client implements radar.Classifier against the model inference server.
// The server accepts a polar-volume interchange document and answers
// with a volume document carrying the classification parameters.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a model-server client. The timeout bounds the whole
// inference call; per-request contexts may shorten it further.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Classify posts the volume to the model server and decodes the
// classified volume it returns. The input volume is never modified.
// Transport failures are returned as-is so callers can distinguish an
// unreachable server from a malformed response, which is reported as a
// radar.ClassificationError.
func (c *Client) Classify(ctx context.Context, vol *radar.PolarVolume) (*radar.PolarVolume, error) {
	var body bytes.Buffer
	if err := radar.EncodeVolume(&body, vol); err != nil {
		return nil, fmt.Errorf("encode volume: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/classify", &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &radar.ClassificationError{
			Reason: fmt.Sprintf("model server status %d: %s", resp.StatusCode, msg),
		}
	}

	out, err := radar.LoadVolume(resp.Body)
	if err != nil {
		return nil, &radar.ClassificationError{Reason: "decode model response", Err: err}
	}
	return out, nil
}
