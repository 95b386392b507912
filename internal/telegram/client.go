// Package telegram talks to a locally hosted Telegram Bot API server. Only
// the handful of endpoints the pipeline needs are wrapped; downloads go
// through getFile URLs handed to the fetch launcher, not through this
// client.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client issues requests against the local Bot API server.
type Client struct {
	token    string
	baseURL  string // http://host:port
	statsURL string // http://host:statistics_port
	http     *http.Client
}

// New returns a Client for the given bot token and server endpoints.
func New(token, host string, port, statisticsPort int) *Client {
	return &Client{
		token:    token,
		baseURL:  fmt.Sprintf("http://%s:%d", host, port),
		statsURL: fmt.Sprintf("http://%s:%d", host, statisticsPort),
		http:     &http.Client{Timeout: 50 * time.Second},
	}
}

// EndpointURL builds a Bot API method URL with the given query parameters.
func (c *Client) EndpointURL(method string, query url.Values) string {
	u := c.baseURL + "/bot" + c.token + "/" + method
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// FileInfoURL returns the getFile URL for a file id. Fetching it yields the
// JSON envelope the reconciler consumes.
func (c *Client) FileInfoURL(fileID string) string {
	return c.EndpointURL("getFile", url.Values{"file_id": []string{fileID}})
}

// apiResponse is the generic Bot API envelope.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

// BotInfo is the subset of getMe output the pipeline cares about.
type BotInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// GetMe fetches the bot identity, primarily as a connectivity check.
func (c *Client) GetMe(ctx context.Context) (*BotInfo, error) {
	var info BotInfo
	if err := c.call(ctx, "getMe", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SetWebhook points the Bot API server at the ingest endpoint.
func (c *Client) SetWebhook(ctx context.Context, webhookURL string) error {
	return c.call(ctx, "setWebhook", url.Values{"url": []string{webhookURL}}, nil)
}

// DeleteWebhook removes the configured webhook.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", nil, nil)
}

// Healthy probes the Bot API statistics port. A served response of any
// shape means the upstream process is alive; dispatching while it is down
// only produces empty artifacts.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.statsURL, nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

func (c *Client) call(ctx context.Context, method string, query url.Values, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.EndpointURL(method, query), nil)
	if err != nil {
		return fmt.Errorf("telegram: build %s request: %w", method, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("telegram: read %s response: %w", method, err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("telegram: decode %s response: %w", method, err)
	}
	if !envelope.OK {
		return fmt.Errorf("telegram: %s failed: %s", method, envelope.Description)
	}
	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("telegram: decode %s result: %w", method, err)
		}
	}
	return nil
}
