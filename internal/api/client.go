// Package api is the HTTP client for the appendix generator service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/rescale/appendix-client/internal/config"
	"github.com/rescale/appendix-client/internal/constants"
	inthttp "github.com/rescale/appendix-client/internal/http"
	"github.com/rescale/appendix-client/internal/logging"
	"github.com/rescale/appendix-client/internal/progress"
	"github.com/rescale/appendix-client/internal/submit"
	"github.com/rescale/appendix-client/internal/version"
)

// retryLogger implements the retryablehttp.LeveledLogger interface
type retryLogger struct {
	logger *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}

// Options tunes a Client beyond what the config file carries.
type Options struct {
	// HTTPClient replaces the proxy-aware client built from config.
	HTTPClient *nethttp.Client
	Logger     *logging.Logger
	// Progress receives the number of request body bytes sent.
	Progress progress.Reporter
}

// Client talks to the generator. The upload is sent exactly once; only the
// health probe is retried.
type Client struct {
	uploadClient *retryablehttp.Client
	healthClient *retryablehttp.Client
	uploadURL    string
	healthURL    string
	logger       *logging.Logger
	progress     progress.Reporter
}

// NewClient creates a client for cfg.ServerURL.
func NewClient(cfg *config.Config, opts Options) (*Client, error) {
	if strings.TrimSpace(cfg.ServerURL) == "" {
		return nil, errors.New("server URL is empty - set [server] url in config.ini or APPENDIX_SERVER_URL")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		var err error
		httpClient, err = inthttp.CreateOptimizedClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	uploadClient := retryablehttp.NewClient()
	uploadClient.HTTPClient = httpClient
	uploadClient.RetryMax = 0
	uploadClient.CheckRetry = func(ctx context.Context, resp *nethttp.Response, err error) (bool, error) {
		return false, nil
	}
	uploadClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	uploadClient.Logger = &retryLogger{logger: logger}

	healthClient := retryablehttp.NewClient()
	healthClient.HTTPClient = httpClient
	healthClient.RetryMax = 2
	healthClient.RetryWaitMin = 200 * time.Millisecond
	healthClient.RetryWaitMax = 2 * time.Second
	healthClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	healthClient.Logger = &retryLogger{logger: logger}

	reporter := opts.Progress
	if reporter == nil {
		reporter = progress.NewNoOpProgress()
	}

	return &Client{
		uploadClient: uploadClient,
		healthClient: healthClient,
		uploadURL:    cfg.UploadURL(),
		healthURL:    cfg.HealthURL(),
		logger:       logger,
		progress:     reporter,
	}, nil
}

// UploadURL returns the endpoint Upload posts to.
func (c *Client) UploadURL() string {
	return c.uploadURL
}

// Upload posts the multipart request and returns the raw response for the
// caller to interpret. Non-2xx statuses are not errors here.
func (c *Client) Upload(ctx context.Context, r *submit.Request) (*nethttp.Response, error) {
	total := int64(len(r.Body))
	body := retryablehttp.ReaderFunc(func() (io.Reader, error) {
		return progress.NewProgressReader(bytes.NewReader(r.Body), total, c.progress), nil
	})

	req, err := retryablehttp.NewRequestWithContext(ctx, nethttp.MethodPost, c.uploadURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.ContentLength = total
	req.Header.Set("Content-Type", r.ContentType)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("User-Agent", version.UserAgent())
	if r.ID != "" {
		req.Header.Set("X-Request-ID", r.ID)
	}

	start := time.Now()
	c.logger.Debug().
		Str("url", c.uploadURL).
		Int("files", r.FileCount).
		Int64("bytes", total).
		Msg("Uploading")

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Dur("elapsed", time.Since(start)).Msg("Upload failed")
		return nil, fmt.Errorf("request to %s failed: %w", c.uploadURL, err)
	}

	c.logger.Debug().
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Upload response received")
	return resp, nil
}

// HealthStatus is the decoded /health response.
type HealthStatus struct {
	Status  string        `json:"status"`
	Version string        `json:"version,omitempty"`
	Latency time.Duration `json:"-"`
}

// Health probes GET /health. A 2xx answer is healthy; the JSON body is
// optional.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.HealthCheckTimeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, nethttp.MethodGet, c.healthURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	start := time.Now()
	resp, err := c.healthClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("health check failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	status := &HealthStatus{Status: "ok"}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err == nil && len(body) > 0 {
		_ = json.Unmarshal(body, status)
	}
	status.Latency = time.Since(start)
	return status, nil
}
