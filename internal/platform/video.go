package platform

import (
	"context"
	"fmt"
	"net/http"

	"github.com/video-db/videodb-capture-quickstart/internal/models"
)

// Video operations used by the insights pipeline after a session exports.

func (c *Connection) IndexSpokenWords(ctx context.Context, videoID string) error {
	if err := c.do(ctx, http.MethodPost, "/videos/"+videoID+"/index/spoken-words", map[string]any{}, nil); err != nil {
		return fmt.Errorf("index spoken words for %s: %w", videoID, err)
	}
	return nil
}

func (c *Connection) TranscriptText(ctx context.Context, videoID string) (string, error) {
	var out struct {
		Text string `json:"text"`
	}
	if err := c.do(ctx, http.MethodGet, "/videos/"+videoID+"/transcript?text=true", nil, &out); err != nil {
		return "", fmt.Errorf("get transcript for %s: %w", videoID, err)
	}
	return out.Text, nil
}

// AddSubtitle burns styled subtitles into the video and returns the new
// stream URL.
func (c *Connection) AddSubtitle(ctx context.Context, videoID string, style models.SubtitleStyle) (string, error) {
	var out struct {
		StreamURL string `json:"stream_url"`
	}
	body := map[string]any{"subtitle_style": style}
	if err := c.do(ctx, http.MethodPost, "/videos/"+videoID+"/subtitles", body, &out); err != nil {
		return "", fmt.Errorf("add subtitle to %s: %w", videoID, err)
	}
	return out.StreamURL, nil
}
