package models

// SocketMessage is one inbound frame on a real-time results socket.
type SocketMessage struct {
	Channel string      `json:"channel"`
	Data    MessageData `json:"data"`
}

type MessageData struct {
	ConnectionID string  `json:"connection_id,omitempty"`
	Text         string  `json:"text,omitempty"`
	IsFinal      bool    `json:"is_final,omitempty"`
	Label        string  `json:"label,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`
}

// Channel tags on socket messages.
const (
	ChannelConnection  = "connection"
	ChannelSession     = "capture_session"
	ChannelTranscript  = "transcript"
	ChannelAudioIndex  = "audio_index"
	ChannelSceneIndex  = "scene_index"
	ChannelVisualIndex = "visual_index"
	ChannelAlert       = "alert"
)
