package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/video-db/videodb-capture-quickstart/internal/models"
	"github.com/video-db/videodb-capture-quickstart/internal/ports"
)

const DefaultBaseURL = "https://api.videodb.io/v1"

// Connection is an authenticated client for the VideoDB platform API.
// It implements ports.Platform, ports.SocketDialer and ports.VideoIndexer.
type Connection struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewConnection(apiKey, baseURL string) *Connection {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Connection{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Verify checks the API key by fetching the default collection.
func (c *Connection) Verify(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/collections/default", nil, nil)
}

func (c *Connection) CreateCaptureSession(ctx context.Context, p ports.CreateSessionParams) (*models.CaptureSession, error) {
	body := map[string]any{
		"end_user_id":   p.EndUserID,
		"collection_id": p.CollectionID,
		"callback_url":  p.CallbackURL,
	}
	if p.Metadata != nil {
		body["metadata"] = p.Metadata
	}

	var session models.CaptureSession
	if err := c.do(ctx, http.MethodPost, "/capture-sessions", body, &session); err != nil {
		return nil, fmt.Errorf("create capture session: %w", err)
	}
	return &session, nil
}

func (c *Connection) GetCaptureSession(ctx context.Context, id string) (*models.CaptureSession, error) {
	var session models.CaptureSession
	if err := c.do(ctx, http.MethodGet, "/capture-sessions/"+id, nil, &session); err != nil {
		return nil, fmt.Errorf("get capture session %s: %w", id, err)
	}
	return &session, nil
}

func (c *Connection) GenerateClientToken(ctx context.Context, expiresIn int64) (*models.ClientToken, error) {
	if expiresIn <= 0 {
		expiresIn = 86400
	}

	var out struct {
		Token string `json:"session_token"`
	}
	body := map[string]any{"expires_in": expiresIn}
	if err := c.do(ctx, http.MethodPost, "/access-tokens", body, &out); err != nil {
		return nil, fmt.Errorf("generate client token: %w", err)
	}
	if out.Token == "" {
		return nil, fmt.Errorf("generate client token: platform returned empty token")
	}

	return &models.ClientToken{
		Token:     out.Token,
		ExpiresIn: expiresIn,
		ExpiresAt: time.Now().Unix() + expiresIn,
	}, nil
}

func (c *Connection) ListRTStreams(ctx context.Context, sessionID, kind string) ([]models.RTStream, error) {
	var out struct {
		Streams []models.RTStream `json:"rtstreams"`
	}
	path := fmt.Sprintf("/capture-sessions/%s/rtstreams?type=%s", sessionID, kind)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("list %s rtstreams: %w", kind, err)
	}
	return out.Streams, nil
}

func (c *Connection) StartTranscript(ctx context.Context, streamID, wsConnectionID string) error {
	body := map[string]any{"ws_connection_id": wsConnectionID}
	if err := c.do(ctx, http.MethodPost, "/rtstreams/"+streamID+"/transcript", body, nil); err != nil {
		return fmt.Errorf("start transcript on %s: %w", streamID, err)
	}
	return nil
}

func (c *Connection) IndexAudio(ctx context.Context, streamID string, p ports.IndexAudioParams) error {
	body := map[string]any{
		"prompt":           p.Prompt,
		"ws_connection_id": p.WSConnectionID,
	}
	if p.Batch != nil {
		body["batch_config"] = p.Batch
	}
	if err := c.do(ctx, http.MethodPost, "/rtstreams/"+streamID+"/index/audio", body, nil); err != nil {
		return fmt.Errorf("index audio on %s: %w", streamID, err)
	}
	return nil
}

func (c *Connection) IndexVisuals(ctx context.Context, streamID string, p ports.IndexVisualsParams) (string, error) {
	body := map[string]any{
		"prompt":           p.Prompt,
		"ws_connection_id": p.WSConnectionID,
	}
	if p.Batch != nil {
		body["batch_config"] = p.Batch
	}

	var out struct {
		IndexID string `json:"index_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/rtstreams/"+streamID+"/index/visuals", body, &out); err != nil {
		return "", fmt.Errorf("index visuals on %s: %w", streamID, err)
	}
	return out.IndexID, nil
}

func (c *Connection) ListEvents(ctx context.Context) ([]models.AlertEvent, error) {
	var out struct {
		Events []models.AlertEvent `json:"events"`
	}
	if err := c.do(ctx, http.MethodGet, "/events", nil, &out); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out.Events, nil
}

func (c *Connection) CreateEvent(ctx context.Context, prompt, label string) (string, error) {
	var out struct {
		EventID string `json:"event_id"`
	}
	body := map[string]any{"event_prompt": prompt, "label": label}
	if err := c.do(ctx, http.MethodPost, "/events", body, &out); err != nil {
		return "", fmt.Errorf("create event %s: %w", label, err)
	}
	return out.EventID, nil
}

func (c *Connection) CreateAlert(ctx context.Context, visualIndexID string, p ports.AlertParams) (string, error) {
	var out struct {
		AlertID string `json:"alert_id"`
	}
	body := map[string]any{
		"event_id":         p.EventID,
		"callback_url":     p.CallbackURL,
		"ws_connection_id": p.WSConnectionID,
	}
	if err := c.do(ctx, http.MethodPost, "/indexes/"+visualIndexID+"/alerts", body, &out); err != nil {
		return "", fmt.Errorf("create alert: %w", err)
	}
	return out.AlertID, nil
}

// do runs one JSON request against the platform. A non-2xx status is
// returned as an error carrying the response body.
func (c *Connection) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("x-access-token", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("platform request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("platform %s %s: http %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(raw))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode platform response: %w", err)
		}
	}
	return nil
}
