package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config configures one HTTP-backed provider.
type Config struct {
	// ID is the provider identifier, e.g. "phobert" or "labse".
	ID string

	// Endpoint is the model server base URL.
	Endpoint string

	// Model is the expected model name. Empty accepts whatever the server serves.
	Model string

	// MaxLength caps tokens per text (sub-word encoders only).
	MaxLength int

	// BatchSize is the number of texts per request.
	BatchSize int

	// Timeout bounds a single request.
	Timeout time.Duration

	// Device is the requested compute device.
	Device Device

	Retry RetryConfig
}

func (c *Config) applyDefaults() {
	c.Endpoint = strings.TrimRight(c.Endpoint, "/")
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BatchSize > MaxBatchSize {
		c.BatchSize = MaxBatchSize
	}
	if c.MaxLength <= 0 {
		c.MaxLength = DefaultMaxLength
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultRequestTimeout
	}
	if c.Device == "" {
		c.Device = DeviceAuto
	}
	if c.Retry == (RetryConfig{}) {
		c.Retry = DefaultRetryConfig()
	}
}

// httpClient is the JSON transport shared by both model server providers.
type httpClient struct {
	client    *http.Client
	transport *http.Transport
	base      string
	timeout   time.Duration
}

func newHTTPClient(base string, timeout time.Duration) *httpClient {
	// No http.Client.Timeout: per-request contexts carry the deadline.
	transport := &http.Transport{
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     30 * time.Second,
	}
	return &httpClient{
		client:    &http.Client{Transport: transport},
		transport: transport,
		base:      base,
		timeout:   timeout,
	}
}

func (c *httpClient) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *httpClient) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *httpClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *httpClient) close() {
	c.transport.CloseIdleConnections()
}

// batches splits n items into [start, end) ranges of at most size.
func batches(n, size int) [][2]int {
	var out [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}
