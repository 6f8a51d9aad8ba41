package tone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/fefejiro/peacepad/pkg/tracing"
)

const (
	// DefaultTimeout is the default request timeout
	DefaultTimeout = 10 * time.Second

	// MaxResponseSize is the maximum response body size (1MB)
	MaxResponseSize = 1 * 1024 * 1024
)

// Config holds tone service client configuration
type Config struct {
	BaseURL         string
	Timeout         time.Duration
	MaxIdleConns    int
	IdleConnTimeout time.Duration
}

// DefaultConfig returns default tone client configuration
func DefaultConfig() Config {
	return Config{
		Timeout:         DefaultTimeout,
		MaxIdleConns:    100,
		IdleConnTimeout: 90 * time.Second,
	}
}

// Client calls the external tone-analysis service
type Client struct {
	client  *http.Client
	logger  ectologger.Logger
	baseURL string
}

// NewClient creates a new tone service client
func NewClient(cfg Config, logger ectologger.Logger) *Client {
	transport := &http.Transport{
		MaxIdleConns:    cfg.MaxIdleConns,
		IdleConnTimeout: cfg.IdleConnTimeout,
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		logger:  logger,
		baseURL: cfg.BaseURL,
	}
}

// Result is the tone service's verdict on a piece of text
type Result struct {
	Tone       string  `json:"tone"`
	Confidence float64 `json:"confidence"`
}

type analyzeRequest struct {
	Content string `json:"content"`
}

// Analyze sends message content to the tone service and returns its verdict
func (c *Client) Analyze(ctx context.Context, content string) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "tone.Client.Analyze")
	defer span.End()

	payload, err := json.Marshal(analyzeRequest{Content: content})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize request: %w", err)
	}

	url := c.baseURL + "/analyze"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Errorf("Tone request failed: POST %s", url)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tone service returned %d", resp.StatusCode)
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse tone response: %w", err)
	}

	c.logger.WithContext(ctx).Debugf("Tone analysis -> %s (%.2f) in %s",
		result.Tone, result.Confidence, time.Since(start))

	return &result, nil
}
