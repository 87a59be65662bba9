// Package jam talks to an RMX jam server: it lists and creates rooms and
// streams a toy's notes and captions into a room in time.
package jam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

type (
	Jam struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		PlayerCount int    `json:"playerCount"`
	}

	jamsResp struct {
		Rooms []Jam `json:"rooms"`
	}

	jamCreated struct {
		ID string `json:"id"`
	}

	Client struct {
		// REST API base endpoint
		apiURL string
		wsURL  string
		http   *http.Client
		logger *zap.Logger
	}
)

// NewClient derives the REST and websocket endpoints from the server URL.
func NewClient(serverHostURL string, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(serverHostURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("server url: %w", err)
	}
	ws := *u
	switch u.Scheme {
	case "http":
		ws.Scheme = "ws"
	case "https":
		ws.Scheme = "wss"
	default:
		return nil, fmt.Errorf("server url %q: scheme must be http or https", serverHostURL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiURL: u.String() + "/api/v1",
		wsURL:  ws.String() + "/ws",
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}, nil
}

func (c *Client) APIURL() string { return c.apiURL }

// List returns the open jam rooms.
func (c *Client) List(ctx context.Context) ([]Jam, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/jam", nil)
	if err != nil {
		return nil, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list jams: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("could not get sessions: %d", res.StatusCode)
	}
	var resp jamsResp
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	c.logger.Debug("listed jams", zap.Int("count", len(resp.Rooms)))
	return resp.Rooms, nil
}

// Create opens a new jam room and returns its ID.
func (c *Client) Create(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/jam", strings.NewReader("{}"))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("create jam: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return "", fmt.Errorf("could not create session: %d", res.StatusCode)
	}
	var body jamCreated
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	c.logger.Info("created jam", zap.String("id", body.ID))
	return body.ID, nil
}
