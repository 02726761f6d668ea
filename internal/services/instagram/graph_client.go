package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"igmirror/internal/logging"
	"igmirror/internal/metrics"
	"igmirror/internal/services"
)

const (
	// DefaultOAuthBaseURL hosts the authorize and code exchange endpoints.
	DefaultOAuthBaseURL = "https://api.instagram.com"
	// DefaultGraphBaseURL hosts the token upgrade, refresh and media endpoints.
	DefaultGraphBaseURL = "https://graph.instagram.com"

	defaultTimeout   = 30 * time.Second
	maxResponseBytes = 4 << 20
)

// GraphClient issues JSON GETs and binary downloads against the Graph host.
type GraphClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewGraphClient builds a client rooted at baseURL.
func NewGraphClient(baseURL string, client *http.Client, logger *slog.Logger, m *metrics.Metrics) *GraphClient {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &GraphClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
		metrics: m,
	}
}

// GetJSON requests <base>/<endpoint>?<params> and decodes the body into out.
// Non-2xx responses return *APIError.
func (c *GraphClient) GetJSON(ctx context.Context, endpoint string, params url.Values, out any) (err error) {
	endpoint = strings.Trim(endpoint, "/")
	target := c.baseURL + "/" + endpoint
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	start := time.Now()
	defer func() {
		c.metrics.ObserveAPIRequest(endpoint, time.Since(start), err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.DebugContext(ctx, "instagram request",
		logging.String(logging.FieldEndpoint, endpoint),
		logging.String("url", logging.RedactURL(target)),
		requestIDAttr(ctx),
		operationAttr(ctx),
	)

	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "instagram", endpoint, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return services.Wrap(services.ErrTransient, "instagram", endpoint, "read response", err)
	}

	c.logger.DebugContext(ctx, "instagram response",
		logging.String(logging.FieldEndpoint, endpoint),
		logging.Int("status", resp.StatusCode),
		logging.Int("bytes", len(body)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyAPIError(decodeAPIError(endpoint, resp.StatusCode, body))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

// Download streams the body of rawURL into w verbatim.
func (c *GraphClient) Download(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	if strings.TrimSpace(rawURL) == "" {
		return 0, errors.New("download: media url is empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("build download request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "instagram", "download", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return 0, fmt.Errorf("download %s: unexpected status %d", logging.RedactURL(rawURL), resp.StatusCode)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("download %s: %w", logging.RedactURL(rawURL), err)
	}
	return n, nil
}

// classifyAPIError tags token rejections so callers can suggest re-linking.
func classifyAPIError(apiErr *APIError) error {
	if IsTokenError(apiErr) {
		return fmt.Errorf("%w: %w", services.ErrUnauthorized, apiErr)
	}
	return apiErr
}

func requestIDAttr(ctx context.Context) logging.Attr {
	id, _ := services.RequestIDFromContext(ctx)
	return logging.String("request_id", id)
}

func operationAttr(ctx context.Context) logging.Attr {
	op, _ := services.OperationFromContext(ctx)
	return logging.String("operation", op)
}
