package walker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrStatus is returned when the server answers with an unexpected status.
var ErrStatus = errors.New("unexpected status")

// Client talks JSON to the speedhud HTTP API.
type Client struct {
	client  *http.Client
	baseURL string
}

// NewClient creates a client with a request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// do sends body as JSON and decodes the response into out when out is not nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any, want ...int) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	ok := false
	for _, code := range want {
		if resp.StatusCode == code {
			ok = true
			break
		}
	}
	if !ok {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %s: %d %s", ErrStatus, method, path, resp.StatusCode, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// Health checks /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, http.StatusOK)
}

// Register reports w online at pos with the permissions a walker needs.
func (c *Client) Register(ctx context.Context, w Walker, pos Position) error {
	body := map[string]any{
		"name":        w.Name,
		"position":    pos,
		"permissions": []string{permStartRecord, permTopSpeed},
	}
	return c.do(ctx, http.MethodPut, "/v1/entities/"+w.ID.String(), body, nil, http.StatusOK, http.StatusCreated)
}

// Move sends w's new position.
func (c *Client) Move(ctx context.Context, w Walker, pos Position) error {
	return c.do(ctx, http.MethodPost, "/v1/entities/"+w.ID.String()+"/position", pos, nil, http.StatusNoContent)
}

// Remove reports w offline.
func (c *Client) Remove(ctx context.Context, w Walker) error {
	return c.do(ctx, http.MethodDelete, "/v1/entities/"+w.ID.String(), nil, nil, http.StatusNoContent, http.StatusNotFound)
}

// Command runs line as w and returns the reply lines.
func (c *Client) Command(ctx context.Context, w Walker, line string) ([]string, error) {
	var out struct {
		Lines []string `json:"lines"`
	}
	body := map[string]string{"sender": w.ID.String(), "line": line}
	if err := c.do(ctx, http.MethodPost, "/v1/commands", body, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Lines, nil
}

// Leaderboard fetches the ranked leaderboard in the default unit.
func (c *Client) Leaderboard(ctx context.Context) (Leaderboard, error) {
	var lb Leaderboard
	err := c.do(ctx, http.MethodGet, "/v1/leaderboard", nil, &lb, http.StatusOK)
	return lb, err
}
