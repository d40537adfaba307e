package ports

import (
	"context"

	"github.com/video-db/videodb-capture-quickstart/internal/models"
)

type CreateSessionParams struct {
	EndUserID    string
	CollectionID string
	CallbackURL  string
	Metadata     map[string]any
}

type BatchConfig struct {
	Type  string `json:"type"` // "time"
	Value int    `json:"value"`
}

type IndexAudioParams struct {
	Prompt         string
	WSConnectionID string
	Batch          *BatchConfig
}

type IndexVisualsParams struct {
	Prompt         string
	WSConnectionID string
	Batch          *BatchConfig
}

type AlertParams struct {
	EventID        string
	CallbackURL    string
	WSConnectionID string
}

// Platform is the remote capture/indexing API surface the backends use.
// Every call is an opaque remote operation; no retries here.
type Platform interface {
	CreateCaptureSession(ctx context.Context, p CreateSessionParams) (*models.CaptureSession, error)
	GetCaptureSession(ctx context.Context, id string) (*models.CaptureSession, error)
	GenerateClientToken(ctx context.Context, expiresIn int64) (*models.ClientToken, error)

	ListRTStreams(ctx context.Context, sessionID, kind string) ([]models.RTStream, error)
	StartTranscript(ctx context.Context, streamID, wsConnectionID string) error
	IndexAudio(ctx context.Context, streamID string, p IndexAudioParams) error
	// IndexVisuals returns the visual index id alerts attach to.
	IndexVisuals(ctx context.Context, streamID string, p IndexVisualsParams) (string, error)

	ListEvents(ctx context.Context) ([]models.AlertEvent, error)
	CreateEvent(ctx context.Context, prompt, label string) (string, error)
	CreateAlert(ctx context.Context, visualIndexID string, p AlertParams) (string, error)
}

// VideoIndexer covers the post-export video operations the insights
// service needs (async-recorder variant).
type VideoIndexer interface {
	IndexSpokenWords(ctx context.Context, videoID string) error
	TranscriptText(ctx context.Context, videoID string) (string, error)
	AddSubtitle(ctx context.Context, videoID string, style models.SubtitleStyle) (string, error)
}
