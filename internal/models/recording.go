package models

import "time"

// Insights pipeline states for a recording.
const (
	InsightsPending    = "pending"
	InsightsProcessing = "processing"
	InsightsReady      = "ready"
	InsightsFailed     = "failed"
)

// Recording mirrors one exported video in the local database
// (async-recorder variant).
type Recording struct {
	ID             int       `db:"id" json:"id"`
	VideoID        string    `db:"video_id" json:"video_id"`
	StreamURL      string    `db:"stream_url" json:"stream_url"`
	PlayerURL      string    `db:"player_url" json:"player_url"`
	SessionID      string    `db:"session_id" json:"session_id"`
	UserID         *int      `db:"user_id" json:"-"`
	Duration       *int      `db:"duration" json:"duration"`
	Insights       *string   `db:"insights" json:"insights"` // JSON string
	InsightsStatus string    `db:"insights_status" json:"insights_status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// User maps an opaque access token to a stored platform API key.
type User struct {
	ID          int    `db:"id"`
	Name        string `db:"name"`
	APIKey      string `db:"api_key"`
	AccessToken string `db:"access_token"`
}
