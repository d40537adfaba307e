package domain

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/video-db/videodb-capture-quickstart/internal/models"
	"github.com/video-db/videodb-capture-quickstart/internal/ports"
)

type fakeIndexer struct {
	spokenErr     error
	transcript    string
	transcriptErr error
	subtitleURL   string
	subtitleErr   error

	spokenCalls int
}

func (f *fakeIndexer) IndexSpokenWords(ctx context.Context, videoID string) error {
	f.spokenCalls++
	return f.spokenErr
}

func (f *fakeIndexer) TranscriptText(ctx context.Context, videoID string) (string, error) {
	return f.transcript, f.transcriptErr
}

func (f *fakeIndexer) AddSubtitle(ctx context.Context, videoID string, style models.SubtitleStyle) (string, error) {
	return f.subtitleURL, f.subtitleErr
}

type recordingState struct {
	status    string
	insights  string
	streamURL string
	playerURL string
}

type fakeRecordings struct {
	states map[int]*recordingState
}

func newFakeRecordings() *fakeRecordings {
	return &fakeRecordings{states: map[int]*recordingState{}}
}

func (f *fakeRecordings) state(id int) *recordingState {
	st, ok := f.states[id]
	if !ok {
		st = &recordingState{status: models.InsightsPending}
		f.states[id] = st
	}
	return st
}

func (f *fakeRecordings) CreatePending(ctx context.Context, sessionID string, userID int) (*models.Recording, error) {
	return nil, errors.New("not used")
}

func (f *fakeRecordings) UpsertExported(ctx context.Context, in ports.ExportedRecording) (*models.Recording, error) {
	return nil, errors.New("not used")
}

func (f *fakeRecordings) SetInsightsStatus(ctx context.Context, recordingID int, status string) error {
	f.state(recordingID).status = status
	return nil
}

func (f *fakeRecordings) CompleteInsights(ctx context.Context, recordingID int, insights, streamURL, playerURL string) error {
	st := f.state(recordingID)
	st.status = models.InsightsReady
	st.insights = insights
	st.streamURL = streamURL
	st.playerURL = playerURL
	return nil
}

func (f *fakeRecordings) List(ctx context.Context, limit int) ([]models.Recording, error) {
	return nil, nil
}

func (f *fakeRecordings) GetByID(ctx context.Context, id int) (*models.Recording, error) {
	return nil, nil
}

type fakeUsers struct {
	user *models.User
}

func (f *fakeUsers) Create(ctx context.Context, name, apiKey, accessToken string) (*models.User, error) {
	return nil, errors.New("not used")
}

func (f *fakeUsers) GetByAccessToken(ctx context.Context, token string) (*models.User, error) {
	return nil, nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id int) (*models.User, error) {
	if f.user != nil && f.user.ID == id {
		return f.user, nil
	}
	return nil, nil
}

func newTestService(recordings *fakeRecordings, users *fakeUsers, indexer *fakeIndexer) *InsightsService {
	core, _ := observer.New(zap.InfoLevel)
	svc := NewInsightsService(recordings, users, "https://api.test", zap.New(core).Sugar())
	svc.connect = func(apiKey, baseURL string) ports.VideoIndexer { return indexer }
	return svc
}

func owned(id int) *models.Recording {
	userID := 1
	return &models.Recording{
		ID:        id,
		VideoID:   "m-1",
		UserID:    &userID,
		StreamURL: "https://s/m-1.m3u8",
		PlayerURL: "https://player?url=https://s/m-1.m3u8&autoplay=1",
	}
}

func TestIndexExportedCompletesWithSubtitledURLs(t *testing.T) {
	recordings := newFakeRecordings()
	users := &fakeUsers{user: &models.User{ID: 1, APIKey: "sk-u1"}}
	indexer := &fakeIndexer{transcript: "hello world", subtitleURL: "https://s/m-1-sub.m3u8"}

	svc := newTestService(recordings, users, indexer)
	svc.IndexExported(context.Background(), owned(7))

	st := recordings.state(7)
	if st.status != models.InsightsReady {
		t.Fatalf("expected ready, got %s", st.status)
	}
	if st.streamURL != "https://s/m-1-sub.m3u8" {
		t.Errorf("stream url not swapped for subtitled stream: %s", st.streamURL)
	}
	if st.playerURL != "https://player?url=https://s/m-1-sub.m3u8&autoplay=1" {
		t.Errorf("player url param not rewritten: %s", st.playerURL)
	}
	if !strings.Contains(st.insights, "hello world") {
		t.Errorf("transcript missing from insights: %s", st.insights)
	}
}

func TestIndexExportedFailsWhenSpokenWordIndexingFails(t *testing.T) {
	recordings := newFakeRecordings()
	users := &fakeUsers{user: &models.User{ID: 1, APIKey: "sk-u1"}}
	indexer := &fakeIndexer{spokenErr: errors.New("index backend down")}

	svc := newTestService(recordings, users, indexer)
	svc.IndexExported(context.Background(), owned(7))

	if st := recordings.state(7); st.status != models.InsightsFailed {
		t.Errorf("expected failed, got %s", st.status)
	}
}

func TestIndexExportedToleratesTranscriptAndSubtitleErrors(t *testing.T) {
	recordings := newFakeRecordings()
	users := &fakeUsers{user: &models.User{ID: 1, APIKey: "sk-u1"}}
	indexer := &fakeIndexer{
		transcriptErr: errors.New("transcript unavailable"),
		subtitleErr:   errors.New("subtitle job failed"),
	}

	svc := newTestService(recordings, users, indexer)
	svc.IndexExported(context.Background(), owned(7))

	st := recordings.state(7)
	if st.status != models.InsightsReady {
		t.Fatalf("transcript and subtitle failures are non-fatal, got %s", st.status)
	}
	if st.streamURL != "https://s/m-1.m3u8" {
		t.Errorf("stream url must stay original without subtitles: %s", st.streamURL)
	}
	if st.insights != "" {
		t.Errorf("expected empty insights without transcript, got %s", st.insights)
	}
}

func TestIndexExportedSkipsWithoutOwner(t *testing.T) {
	recordings := newFakeRecordings()
	indexer := &fakeIndexer{}
	svc := newTestService(recordings, &fakeUsers{}, indexer)

	rec := owned(7)
	rec.UserID = nil
	svc.IndexExported(context.Background(), rec)

	if indexer.spokenCalls != 0 {
		t.Error("ownerless recording must not be indexed")
	}
	if st := recordings.state(7); st.status != models.InsightsPending {
		t.Errorf("status must stay pending when skipped, got %s", st.status)
	}
}

func TestIndexExportedSkipsWhenOwnerMissing(t *testing.T) {
	recordings := newFakeRecordings()
	indexer := &fakeIndexer{}
	// owner id 1 does not exist in the user store
	svc := newTestService(recordings, &fakeUsers{}, indexer)

	svc.IndexExported(context.Background(), owned(7))

	if indexer.spokenCalls != 0 {
		t.Error("indexing must be skipped when the owner row is gone")
	}
}

func TestRewritePlayerURL(t *testing.T) {
	cases := []struct {
		name      string
		playerURL string
		want      string
	}{
		{
			name:      "swaps url param",
			playerURL: "https://player?url=https://s/old.m3u8&x=1",
			want:      "https://player?url=https://s/new.m3u8&x=1",
		},
		{
			name:      "param at end",
			playerURL: "https://player?url=https://s/old.m3u8",
			want:      "https://player?url=https://s/new.m3u8",
		},
		{
			name:      "no url param falls back to stream",
			playerURL: "https://player/abc",
			want:      "https://s/new.m3u8",
		},
		{
			name:      "empty player url falls back to stream",
			playerURL: "",
			want:      "https://s/new.m3u8",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := RewritePlayerURL(tc.playerURL, "https://s/new.m3u8")
			if got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}
