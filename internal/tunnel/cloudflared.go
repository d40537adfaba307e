// Package tunnel manages a Cloudflare quick tunnel so the platform can
// reach the local webhook endpoint. Quick tunnels need no account: the
// cloudflared binary prints a trycloudflare.com URL on startup and we
// scrape it from its output.
package tunnel

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"
)

var tunnelURLPattern = regexp.MustCompile(`https://[a-z0-9-]+\.trycloudflare\.com`)

const startTimeout = 30 * time.Second

type Config struct {
	Port             int
	WebhookPath      string // e.g. "/webhook" or "/api/webhook"
	PresetWebhookURL string // skips the tunnel entirely when set
	Binary           string // defaults to "cloudflared" on PATH
	RuntimeFile      string // discovery file for the desktop shell, "" disables
}

type Cloudflared struct {
	cfg Config
	log *zap.SugaredLogger

	mu         sync.Mutex
	cmd        *exec.Cmd
	publicURL  string
	webhookURL string
}

func NewCloudflared(cfg Config, log *zap.SugaredLogger) *Cloudflared {
	if cfg.Binary == "" {
		cfg.Binary = "cloudflared"
	}
	if cfg.WebhookPath == "" {
		cfg.WebhookPath = "/webhook"
	}
	return &Cloudflared{cfg: cfg, log: log}
}

// Start brings the tunnel up and returns the public webhook URL. When a
// webhook URL is preconfigured (production behind a real domain) no
// process is spawned.
func (t *Cloudflared) Start(ctx context.Context) (string, error) {
	if t.cfg.PresetWebhookURL != "" {
		t.mu.Lock()
		t.webhookURL = t.cfg.PresetWebhookURL
		t.mu.Unlock()
		t.log.Infof("[tunnel] webhook url configured via env: %s", t.cfg.PresetWebhookURL)
		t.writeRuntimeFile()
		return t.cfg.PresetWebhookURL, nil
	}

	t.log.Infof("[tunnel] starting cloudflare tunnel for port %d", t.cfg.Port)

	cmd := exec.CommandContext(ctx, t.cfg.Binary,
		"tunnel", "--url", fmt.Sprintf("http://localhost:%d", t.cfg.Port), "--no-autoupdate",
	)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("tunnel stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start cloudflared: %w", err)
	}

	found := make(chan string, 1)
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			if url := tunnelURLPattern.FindString(scanner.Text()); url != "" {
				select {
				case found <- url:
				default:
				}
			}
		}
	}()

	select {
	case url := <-found:
		t.mu.Lock()
		t.cmd = cmd
		t.publicURL = url
		t.webhookURL = url + t.cfg.WebhookPath
		t.mu.Unlock()
		t.log.Infof("[tunnel] cloudflare tunnel started: %s -> localhost:%d", url, t.cfg.Port)
		t.writeRuntimeFile()
		return t.webhookURL, nil

	case <-time.After(startTimeout):
		_ = cmd.Process.Kill()
		t.writeRuntimeFile()
		return "", fmt.Errorf("cloudflared produced no tunnel URL within %s", startTimeout)

	case <-ctx.Done():
		_ = cmd.Process.Kill()
		return "", ctx.Err()
	}
}

func (t *Cloudflared) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cmd != nil && t.cmd.Process != nil {
		if err := t.cmd.Process.Kill(); err != nil {
			t.log.Debugf("[tunnel] stop: %v", err)
		}
		t.cmd = nil
	}
	t.publicURL = ""
}

func (t *Cloudflared) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.webhookURL != "" && (t.cmd != nil || t.cfg.PresetWebhookURL != "")
}

func (t *Cloudflared) PublicURL() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.publicURL
}

func (t *Cloudflared) WebhookURL() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.webhookURL
}

// runtimeConfig is the discovery file a co-located desktop shell reads to
// find the local API and the current webhook URL.
type runtimeConfig struct {
	APIURL         string `json:"api_url"`
	WebhookURL     string `json:"webhook_url"`
	TunnelProvider string `json:"tunnel_provider"`
	UpdatedAt      int64  `json:"updated_at"`
}

func (t *Cloudflared) writeRuntimeFile() {
	if t.cfg.RuntimeFile == "" {
		return
	}

	t.mu.Lock()
	webhookURL := t.webhookURL
	t.mu.Unlock()

	data, err := json.MarshalIndent(runtimeConfig{
		APIURL:         fmt.Sprintf("http://localhost:%d", t.cfg.Port),
		WebhookURL:     webhookURL,
		TunnelProvider: "cloudflare",
		UpdatedAt:      time.Now().UnixMilli(),
	}, "", "  ")
	if err != nil {
		t.log.Errorf("[tunnel] encode runtime config: %v", err)
		return
	}

	if err := os.WriteFile(t.cfg.RuntimeFile, data, 0644); err != nil {
		t.log.Errorf("[tunnel] write runtime config: %v", err)
		return
	}
	t.log.Infof("[tunnel] runtime config written: %s", t.cfg.RuntimeFile)
}
