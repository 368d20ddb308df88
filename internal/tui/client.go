package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brandtiboy/prototype-test/internal/session"
)

// Client talks to a running prototest server.
type Client struct {
	addr   string
	client *http.Client
}

// NewClient creates an API client for the given base address.
func NewClient(addr string) *Client {
	return &Client{
		addr:   addr,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Snapshot fetches the live session state.
func (c *Client) Snapshot() (*session.Snapshot, error) {
	resp, err := c.client.Get(c.addr + "/api/session")
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	var snap session.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return &snap, nil
}

// Reset starts a fresh session for the next tester.
func (c *Client) Reset() (*session.Snapshot, error) {
	resp, err := c.client.Post(c.addr+"/api/session/reset", "application/json", bytes.NewReader([]byte(`{}`)))
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	var snap session.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return &snap, nil
}
