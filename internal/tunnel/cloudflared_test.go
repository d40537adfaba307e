package tunnel

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func testLogger() *zap.SugaredLogger {
	core, _ := observer.New(zap.InfoLevel)
	return zap.New(core).Sugar()
}

func TestPresetWebhookURLSkipsTunnel(t *testing.T) {
	tun := NewCloudflared(Config{
		Port:             8000,
		WebhookPath:      "/api/webhook",
		PresetWebhookURL: "https://hooks.example.com/api/webhook",
	}, testLogger())

	url, err := tun.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://hooks.example.com/api/webhook" {
		t.Errorf("expected preset url, got %s", url)
	}
	if !tun.Running() {
		t.Error("tunnel should report running with a preset url")
	}
	if tun.PublicURL() != "" {
		t.Error("no public tunnel url exists when preset is used")
	}
}

func TestRuntimeFileWritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runtime.json")

	tun := NewCloudflared(Config{
		Port:             8000,
		WebhookPath:      "/api/webhook",
		PresetWebhookURL: "https://hooks.example.com/api/webhook",
		RuntimeFile:      path,
	}, testLogger())

	if _, err := tun.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var rt struct {
		APIURL         string `json:"api_url"`
		WebhookURL     string `json:"webhook_url"`
		TunnelProvider string `json:"tunnel_provider"`
		UpdatedAt      int64  `json:"updated_at"`
	}
	if err := json.Unmarshal(data, &rt); err != nil {
		t.Fatal(err)
	}

	if rt.APIURL != "http://localhost:8000" {
		t.Errorf("wrong api_url: %s", rt.APIURL)
	}
	if rt.WebhookURL != "https://hooks.example.com/api/webhook" {
		t.Errorf("wrong webhook_url: %s", rt.WebhookURL)
	}
	if rt.TunnelProvider != "cloudflare" {
		t.Errorf("wrong provider: %s", rt.TunnelProvider)
	}
	if rt.UpdatedAt == 0 {
		t.Error("updated_at not set")
	}
}

func TestTunnelURLPattern(t *testing.T) {
	line := `2026-01-02T03:04:05Z INF +  https://eager-otter-rides-again.trycloudflare.com  +`
	got := tunnelURLPattern.FindString(line)
	if got != "https://eager-otter-rides-again.trycloudflare.com" {
		t.Errorf("pattern missed the url, got %q", got)
	}

	if tunnelURLPattern.FindString("no url here") != "" {
		t.Error("pattern matched garbage")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	tun := NewCloudflared(Config{Port: 5002}, testLogger())
	tun.Stop()
	tun.Stop()
	if tun.Running() {
		t.Error("stopped tunnel must not report running")
	}
}
