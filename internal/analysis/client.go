package analysis

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/JonMunkholm/exotransit/internal/core"
)

// maxResponseSize bounds the body read from the analysis service.
const maxResponseSize = 10 << 20

// ClientConfig configures a remote analysis client.
type ClientConfig struct {
	// Endpoint is the batch URL, e.g. https://host/api/analyze.
	// Health is checked at Endpoint + "/health".
	Endpoint string
	Timeout  time.Duration

	// CacheTTL keeps identical batches out of the network. Zero disables
	// caching.
	CacheTTL time.Duration
}

// Client calls a remote analysis service. Requests are not retried.
type Client struct {
	endpoint   string
	httpClient *http.Client
	cache      *cache.Cache
	metrics    *core.Metrics
	logger     *slog.Logger
}

// NewClient creates a client for cfg.Endpoint.
func NewClient(cfg ClientConfig, metrics *core.Metrics, logger *slog.Logger) (*Client, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		return nil, fmt.Errorf("analysis service endpoint is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		metrics: metrics,
		logger:  logger.With("component", "analysis_client"),
	}
	if cfg.CacheTTL > 0 {
		c.cache = cache.New(cfg.CacheTTL, cfg.CacheTTL*2)
	}
	return c, nil
}

// Endpoint returns the batch URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Analyze posts req to the service. A successful response for the same
// request body is served from cache until it expires.
func (c *Client) Analyze(ctx context.Context, req Request) (Response, error) {
	if req.AnalysisType == "" {
		req.AnalysisType = DefaultAnalysisType
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("encode analysis request: %w", err)
	}

	key := cacheKey(body)
	if c.cache != nil {
		if cached, found := c.cache.Get(key); found {
			if resp, ok := cached.(Response); ok {
				c.logger.Debug("analysis served from cache", "records", len(req.Data))
				return resp, nil
			}
		}
	}

	resp, err := c.post(ctx, body)
	c.metrics.RecordAnalysis("remote", err)
	if err != nil {
		c.logger.Warn("analysis request failed", "endpoint", c.endpoint, "error", err)
		return Response{}, err
	}

	if c.cache != nil {
		c.cache.Set(key, resp, cache.DefaultExpiration)
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, body []byte) (Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("create analysis request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return Response{}, fmt.Errorf("%w: read response: %w", ErrUnavailable, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("%w: status %d: %s", ErrUnavailable, httpResp.StatusCode, errorDetail(data))
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Response{}, fmt.Errorf("%w: decode response: %w", ErrUnavailable, err)
	}
	if !resp.Success {
		return Response{}, fmt.Errorf("%w: service reported failure", ErrUnavailable)
	}
	return resp, nil
}

// Health checks GET {endpoint}/health.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// FlushCache drops all cached responses.
func (c *Client) FlushCache() {
	if c.cache != nil {
		c.cache.Flush()
	}
}

func cacheKey(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// errorDetail extracts "error" or "detail" from a JSON error body.
func errorDetail(body []byte) string {
	var e struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Error != "" {
			return e.Error
		}
		if e.Detail != "" {
			return e.Detail
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
