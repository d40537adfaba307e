package ports

import (
	"context"

	"github.com/video-db/videodb-capture-quickstart/internal/models"
)

type ExportedRecording struct {
	SessionID string
	VideoID   string
	StreamURL string
	PlayerURL string
}

type RecordingRepository interface {
	// CreatePending records which user owns a capture session, ahead of the
	// exported webhook. The video id is filled in later.
	CreatePending(ctx context.Context, sessionID string, userID int) (*models.Recording, error)

	// UpsertExported applies an exported event atomically: updates the row
	// matching the session id if one exists, otherwise inserts keyed on the
	// video id. Redelivered events land on the same row.
	UpsertExported(ctx context.Context, rec ExportedRecording) (*models.Recording, error)

	SetInsightsStatus(ctx context.Context, recordingID int, status string) error
	CompleteInsights(ctx context.Context, recordingID int, insights, streamURL, playerURL string) error

	List(ctx context.Context, limit int) ([]models.Recording, error)
	GetByID(ctx context.Context, id int) (*models.Recording, error)
}

type UserRepository interface {
	Create(ctx context.Context, name, apiKey, accessToken string) (*models.User, error)
	GetByAccessToken(ctx context.Context, token string) (*models.User, error)
	GetByID(ctx context.Context, id int) (*models.User, error)
}
