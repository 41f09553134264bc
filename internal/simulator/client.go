package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/courtside/internal/domain/model"
)

// Outcome of posting a single update.
type outcome int

const (
	outcomeAccepted outcome = iota
	outcomeDebounced
	outcomeFailed
)

// ackResponse mirrors the webhook acknowledgement.
type ackResponse struct {
	Status string `json:"status"`
	GameID string `json:"gameId"`
}

type signalsResponse struct {
	Signals []json.RawMessage `json:"signals"`
	Count   int               `json:"count"`
}

// client talks to the service over HTTP.
type client struct {
	http    *http.Client
	baseURL string
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{http: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

func (c *client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.http.Do(req)
}

// health checks that the service answers on /healthz.
func (c *client) health(ctx context.Context) error {
	resp, err := c.get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// post submits one update and classifies the answer.
func (c *client) post(ctx context.Context, u *model.GameUpdate) outcome {
	body, err := json.Marshal(u)
	if err != nil {
		return outcomeFailed
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/games/updates", bytes.NewReader(body))
	if err != nil {
		return outcomeFailed
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return outcomeFailed
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		_, _ = io.Copy(io.Discard, resp.Body)
		return outcomeFailed
	}
	var ack ackResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return outcomeFailed
	}
	if ack.Status == "debounced" {
		return outcomeDebounced
	}
	return outcomeAccepted
}

// signals returns the number of signals the service reports as not final.
func (c *client) signals(ctx context.Context) (int, error) {
	resp, err := c.get(ctx, "/v1/signals")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("signals request failed with status: %d", resp.StatusCode)
	}
	var out signalsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("failed to decode signals: %w", err)
	}
	return out.Count, nil
}
