package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// AlertRule describes one visual alert to attach when a screen stream
// starts indexing. Loaded from the JSON file named by ALERTS_FILE.
type AlertRule struct {
	Label  string `json:"label"`
	Prompt string `json:"prompt"`
}

type Settings struct {
	APIKey      string // VIDEO_DB_API_KEY, required
	BaseURL     string // VIDEODB_API_URL, empty means the SDK default
	Port        int    // PORT
	WebhookURL  string // WEBHOOK_URL, skips the tunnel when set
	DatabaseURL string // DATABASE_URL, recorder variant only
	ClientID    string // CLIENT_ID
	Alerts      []AlertRule
}

// Load reads settings from the environment, with .env as a fallback.
// defaultPort differs per binary (5002 quickstart, 8000 recorder).
func Load(defaultPort int) (*Settings, error) {
	_ = godotenv.Load()

	s := &Settings{
		APIKey:      os.Getenv("VIDEO_DB_API_KEY"),
		BaseURL:     os.Getenv("VIDEODB_API_URL"),
		Port:        defaultPort,
		WebhookURL:  os.Getenv("WEBHOOK_URL"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		ClientID:    os.Getenv("CLIENT_ID"),
	}

	if s.APIKey == "" {
		return nil, errors.New("VIDEO_DB_API_KEY environment variable not set")
	}

	if p := os.Getenv("PORT"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", p, err)
		}
		s.Port = port
	}

	if s.ClientID == "" {
		s.ClientID = "quickstart-client"
	}

	if path := os.Getenv("ALERTS_FILE"); path != "" {
		alerts, err := loadAlerts(path)
		if err != nil {
			return nil, err
		}
		s.Alerts = alerts
	}

	return s, nil
}

func loadAlerts(path string) ([]AlertRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alerts file: %w", err)
	}

	var alerts []AlertRule
	if err := json.Unmarshal(data, &alerts); err != nil {
		return nil, fmt.Errorf("parse alerts file: %w", err)
	}

	for _, a := range alerts {
		if a.Label == "" || a.Prompt == "" {
			return nil, fmt.Errorf("alerts file %s: every rule needs a label and a prompt", path)
		}
	}

	return alerts, nil
}
