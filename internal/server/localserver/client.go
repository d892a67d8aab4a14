package localserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Client talks to a Server over its socket.
type Client struct {
	hc *http.Client
}

// NewClient creates a client for the socket at path.
func NewClient(path string, timeout time.Duration) *Client {
	dialer := &net.Dialer{Timeout: timeout}
	return &Client{
		hc: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					return dialer.DialContext(ctx, "unix", path)
				},
			},
		},
	}
}

// State fetches the server state.
func (c *Client) State(ctx context.Context) (*StateResponse, error) {
	var resp StateResponse
	if err := c.do(ctx, http.MethodGet, "/state", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown requests a graceful shutdown. Zero grace uses the server's
// configured period.
func (c *Client) Shutdown(ctx context.Context, grace time.Duration) (*ShutdownResponse, error) {
	q := url.Values{}
	if grace > 0 {
		q.Set("grace", grace.String())
	}
	var resp ShutdownResponse
	if err := c.do(ctx, http.MethodPost, "/shutdown", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetLogLevel changes the server's log level.
func (c *Client) SetLogLevel(ctx context.Context, level string) error {
	return c.do(ctx, http.MethodPut, "/log-level", url.Values{"level": {level}}, nil)
}

// CloseIdleConnections releases pooled socket connections.
func (c *Client) CloseIdleConnections() {
	c.hc.CloseIdleConnections()
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, out any) error {
	u := url.URL{Scheme: "http", Host: "localserver", Path: path, RawQuery: q.Encode()}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusConflict {
		var e errorResponse
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, e.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
