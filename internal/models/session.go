package models

// CaptureSession mirrors a remote platform session. Created through the
// platform API, mutated only by the platform; referenced locally, never owned.
type CaptureSession struct {
	ID           string         `json:"session_id"`
	EndUserID    string         `json:"end_user_id"`
	CollectionID string         `json:"collection_id"`
	CallbackURL  string         `json:"callback_url"`
	Status       string         `json:"status"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// RTStream is one real-time audio or video channel of a capture session.
type RTStream struct {
	ID     string `json:"rtstream_id"`
	Kind   string `json:"type"` // "mic", "screen" or "system_audio"
	Status string `json:"status"`
}

// Stream kinds as the platform reports them.
const (
	StreamMic         = "mic"
	StreamScreen      = "screen"
	StreamSystemAudio = "system_audio"
)

// ClientToken is a short-lived token a capture client streams under.
type ClientToken struct {
	Token     string `json:"session_token"`
	ExpiresIn int64  `json:"expires_in"`
	ExpiresAt int64  `json:"expires_at"`
}

// AlertEvent is a reusable platform-side event definition that alerts
// reference by id.
type AlertEvent struct {
	EventID string `json:"event_id"`
	Label   string `json:"label"`
	Prompt  string `json:"event_prompt"`
}
