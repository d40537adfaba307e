package models

// WebhookEvent is the payload the platform posts to our callback URL.
type WebhookEvent struct {
	Event            string     `json:"event"`
	CaptureSessionID string     `json:"capture_session_id"`
	Data             ExportData `json:"data"`
}

// ExportData carries the final artifact URLs on capture_session.exported.
type ExportData struct {
	ExportedVideoID string `json:"exported_video_id"`
	StreamURL       string `json:"stream_url"`
	PlayerURL       string `json:"player_url"`
}

// Session lifecycle events the dispatcher recognizes.
const (
	EventSessionActive   = "capture_session.active"
	EventSessionStopping = "capture_session.stopping"
	EventSessionStopped  = "capture_session.stopped"
	EventSessionExported = "capture_session.exported"
)
