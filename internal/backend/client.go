// Package backend talks to the detection backend's HTTP API.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nixlim/ids-top/internal/alerts"
	"github.com/nixlim/ids-top/internal/sampler"
)

// ErrBackend is wrapped by errors the backend reports in its envelope.
var ErrBackend = errors.New("backend error")

const maxResponseBytes = 1 << 20

// SessionStatus is the backend's /api/status payload.
type SessionStatus struct {
	Running       bool   `json:"running"`
	UptimeSeconds uint64 `json:"uptime_seconds"`
	Version       string `json:"version"`
}

// Uptime returns UptimeSeconds as a duration.
func (s SessionStatus) Uptime() time.Duration {
	return time.Duration(s.UptimeSeconds) * time.Second
}

// Client is an HTTP client for the backend API. It implements
// sampler.StatsSource.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ sampler.StatsSource = (*Client)(nil)

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Stats fetches the cumulative counters from /api/stats.
func (c *Client) Stats(ctx context.Context) (sampler.StatsSnapshot, error) {
	var snap sampler.StatsSnapshot
	if err := c.do(ctx, http.MethodGet, "/api/stats", &snap); err != nil {
		return sampler.StatsSnapshot{}, err
	}
	return snap, nil
}

// Status fetches the monitored session's state from /api/status.
func (c *Client) Status(ctx context.Context) (SessionStatus, error) {
	var st SessionStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", &st); err != nil {
		return SessionStatus{}, err
	}
	return st, nil
}

// Start asks the backend to begin monitoring and returns its message.
func (c *Client) Start(ctx context.Context) (string, error) {
	var msg string
	err := c.do(ctx, http.MethodPost, "/api/start", &msg)
	return msg, err
}

// Stop asks the backend to stop monitoring and returns its message.
func (c *Client) Stop(ctx context.Context) (string, error) {
	var msg string
	err := c.do(ctx, http.MethodPost, "/api/stop", &msg)
	return msg, err
}

// do issues the request and decodes the envelope's data into out. The
// backend answers failures with success=false and an error message, often
// alongside a 4xx status.
func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("reading %s response: %w", path, err)
	}

	var env alerts.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode >= 300 {
			return fmt.Errorf("%s %s: HTTP %d", method, path, resp.StatusCode)
		}
		return fmt.Errorf("decoding %s envelope: %w", path, err)
	}
	if !env.Success {
		msg := "unknown error"
		if env.Error != nil && *env.Error != "" {
			msg = *env.Error
		}
		return fmt.Errorf("%w: %s", ErrBackend, msg)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: HTTP %d", method, path, resp.StatusCode)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decoding %s data: %w", path, err)
	}
	return nil
}
