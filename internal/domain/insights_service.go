package domain

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/video-db/videodb-capture-quickstart/internal/models"
	"github.com/video-db/videodb-capture-quickstart/internal/platform"
	"github.com/video-db/videodb-capture-quickstart/internal/ports"
)

var playerURLParam = regexp.MustCompile(`url=[^&]+`)

// InsightsService runs post-export indexing for a recording: spoken-word
// indexing, transcript fetch and subtitle generation, with the recording's
// insights_status tracking pending -> processing -> ready|failed.
type InsightsService struct {
	recordings ports.RecordingRepository
	users      ports.UserRepository
	baseURL    string
	log        *zap.SugaredLogger

	// connect builds a per-user platform client; swapped out in tests.
	connect func(apiKey, baseURL string) ports.VideoIndexer
}

func NewInsightsService(
	recordings ports.RecordingRepository,
	users ports.UserRepository,
	baseURL string,
	log *zap.SugaredLogger,
) *InsightsService {
	return &InsightsService{
		recordings: recordings,
		users:      users,
		baseURL:    baseURL,
		log:        log,
		connect: func(apiKey, baseURL string) ports.VideoIndexer {
			return platform.NewConnection(apiKey, baseURL)
		},
	}
}

// IndexExported indexes one exported recording in the background. The
// owning user is resolved from the association recorded at session
// creation; without one the step is skipped rather than guessed.
func (s *InsightsService) IndexExported(ctx context.Context, rec *models.Recording) {
	if rec.VideoID == "" {
		s.log.Warnf("[index] recording %d has no video id, skipping", rec.ID)
		return
	}
	if rec.UserID == nil {
		s.log.Warnf("[index] recording %d has no owning user, skipping indexing", rec.ID)
		return
	}

	user, err := s.users.GetByID(ctx, *rec.UserID)
	if err != nil || user == nil {
		s.log.Warnf("[index] recording %d: owner lookup failed: %v", rec.ID, err)
		return
	}

	if err := s.recordings.SetInsightsStatus(ctx, rec.ID, models.InsightsProcessing); err != nil {
		s.log.Errorf("[index] recording %d: mark processing: %v", rec.ID, err)
		return
	}
	s.log.Infof("[index] starting indexing for recording %d (video %s)", rec.ID, rec.VideoID)

	indexer := s.connect(user.APIKey, s.baseURL)

	if err := indexer.IndexSpokenWords(ctx, rec.VideoID); err != nil {
		s.log.Errorf("[index] index spoken words for %s: %v", rec.VideoID, err)
		s.fail(ctx, rec.ID)
		return
	}

	transcript, err := indexer.TranscriptText(ctx, rec.VideoID)
	if err != nil {
		s.log.Warnf("[index] transcript fetch for %s: %v", rec.VideoID, err)
		transcript = ""
	}

	streamURL := rec.StreamURL
	playerURL := rec.PlayerURL

	subtitleURL, err := indexer.AddSubtitle(ctx, rec.VideoID, LoomSubtitleStyle)
	if err != nil {
		s.log.Warnf("[index] subtitle generation for %s: %v", rec.VideoID, err)
	} else if subtitleURL != "" {
		streamURL = subtitleURL
		playerURL = RewritePlayerURL(playerURL, subtitleURL)
		s.log.Infof("[index] generated subtitles: %s", subtitleURL)
	}

	insights := ""
	if transcript != "" {
		encoded, err := json.Marshal(map[string]string{"transcript": transcript})
		if err == nil {
			insights = string(encoded)
		}
	}

	if err := s.recordings.CompleteInsights(ctx, rec.ID, insights, streamURL, playerURL); err != nil {
		s.log.Errorf("[index] recording %d: complete: %v", rec.ID, err)
		s.fail(ctx, rec.ID)
		return
	}
	s.log.Infof("[index] indexed video %s for recording %d", rec.VideoID, rec.ID)
}

func (s *InsightsService) fail(ctx context.Context, recordingID int) {
	if err := s.recordings.SetInsightsStatus(ctx, recordingID, models.InsightsFailed); err != nil {
		s.log.Errorf("[index] recording %d: mark failed: %v", recordingID, err)
	}
}

// RewritePlayerURL swaps the url= query parameter of a player URL for the
// subtitled stream. Player URLs that don't follow the expected pattern
// fall back to the subtitled stream itself.
func RewritePlayerURL(playerURL, subtitleURL string) string {
	if playerURL != "" && strings.Contains(playerURL, "url=") {
		return playerURLParam.ReplaceAllString(playerURL, "url="+subtitleURL)
	}
	return subtitleURL
}
