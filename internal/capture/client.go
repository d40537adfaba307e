// Package capture drives the local capture helper process: permission
// prompts, channel discovery and streaming live under a capture session.
// The helper owns the OS capture APIs; we talk to it over a localhost
// control endpoint and manage its lifetime.
package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/video-db/videodb-capture-quickstart/internal/models"
)

const (
	defaultHelperBinary = "videodb-capture-helper"
	defaultControlPort  = 43117

	defaultStopTimeout     = 5 * time.Second
	defaultShutdownTimeout = 3 * time.Second
	defaultGracePeriod     = 3 * time.Second
)

type Options struct {
	HelperBinary string
	// ControlURL points at an already-running helper; when set, Start
	// spawns nothing. Used by tests and when the desktop shell owns the
	// helper.
	ControlURL string

	StopTimeout     time.Duration
	ShutdownTimeout time.Duration
	GracePeriod     time.Duration
}

type Client struct {
	token      string
	controlURL string
	binary     string
	external   bool // helper not spawned by us
	httpc      *http.Client
	cmd        *exec.Cmd
	log        *zap.SugaredLogger

	stopTimeout     time.Duration
	shutdownTimeout time.Duration
	grace           time.Duration

	done chan struct{}
}

func New(token string, opts Options, log *zap.SugaredLogger) *Client {
	c := &Client{
		token:           token,
		controlURL:      opts.ControlURL,
		binary:          opts.HelperBinary,
		external:        opts.ControlURL != "",
		httpc:           &http.Client{},
		log:             log,
		stopTimeout:     opts.StopTimeout,
		shutdownTimeout: opts.ShutdownTimeout,
		grace:           opts.GracePeriod,
		done:            make(chan struct{}),
	}
	if c.binary == "" {
		c.binary = defaultHelperBinary
	}
	if c.controlURL == "" {
		c.controlURL = fmt.Sprintf("http://127.0.0.1:%d", defaultControlPort)
	}
	if c.stopTimeout <= 0 {
		c.stopTimeout = defaultStopTimeout
	}
	if c.shutdownTimeout <= 0 {
		c.shutdownTimeout = defaultShutdownTimeout
	}
	if c.grace <= 0 {
		c.grace = defaultGracePeriod
	}
	return c
}

// Start launches the helper (unless externally managed) and waits for its
// control endpoint to come up.
func (c *Client) Start(ctx context.Context) error {
	if !c.external {
		cmd := exec.Command(c.binary,
			"--control-port", fmt.Sprint(defaultControlPort),
			"--client-token", c.token,
		)
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("start capture helper: %w", err)
		}
		c.cmd = cmd
		c.log.Debugf("[capture] helper started, pid=%d", cmd.Process.Pid)
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		reqCtx, cancel := context.WithTimeout(ctx, time.Second)
		err := c.control(reqCtx, http.MethodGet, "/health", nil, nil)
		cancel()
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("capture helper not responding: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}

// RequestPermission asks the OS for a capture permission ("microphone",
// "screen_capture"). Blocks until the user answers the prompt.
func (c *Client) RequestPermission(ctx context.Context, kind string) error {
	body := map[string]string{"type": kind}
	if err := c.control(ctx, http.MethodPost, "/permissions", body, nil); err != nil {
		return fmt.Errorf("request %s permission: %w", kind, err)
	}
	return nil
}

func (c *Client) ListChannels(ctx context.Context) (*models.ChannelList, error) {
	var out struct {
		Channels []models.Channel `json:"channels"`
	}
	if err := c.control(ctx, http.MethodGet, "/channels", nil, &out); err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}

	list := &models.ChannelList{}
	for _, ch := range out.Channels {
		switch ch.Kind {
		case models.StreamMic:
			list.Mics = append(list.Mics, ch)
		case models.StreamScreen:
			list.Displays = append(list.Displays, ch)
		case models.StreamSystemAudio:
			list.SystemAudio = append(list.SystemAudio, ch)
		}
	}
	return list, nil
}

type StartSessionParams struct {
	SessionID             string           `json:"capture_session_id"`
	Channels              []models.Channel `json:"channels"`
	PrimaryVideoChannelID string           `json:"primary_video_channel_id,omitempty"`
}

// StartSession begins streaming the selected channels under a session id.
func (c *Client) StartSession(ctx context.Context, p StartSessionParams) error {
	if err := c.control(ctx, http.MethodPost, "/session/start", p, nil); err != nil {
		return fmt.Errorf("start capture session: %w", err)
	}
	return nil
}

// StopCapture asks the helper to stop streaming. The caller-supplied
// context is bounded by the stop timeout: the helper may already be dead
// from a SIGINT it received alongside us.
func (c *Client) StopCapture(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.stopTimeout)
	defer cancel()
	return c.control(ctx, http.MethodPost, "/session/stop", nil, nil)
}

// Shutdown releases helper resources and ends the process.
func (c *Client) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.shutdownTimeout)
	defer cancel()
	return c.control(ctx, http.MethodPost, "/shutdown", nil, nil)
}

// Done is closed once the cleanup sequence has finished, whatever path
// it took.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) control(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.controlURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("helper %s %s: http %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(raw))
	}
	if out != nil {
		return json.Unmarshal(raw, out)
	}
	return nil
}
