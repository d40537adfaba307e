package listener

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/video-db/videodb-capture-quickstart/internal/models"
	"github.com/video-db/videodb-capture-quickstart/internal/ports"
)

// fakeSocket replays a scripted sequence of messages, then fails like a
// closed connection.
type fakeSocket struct {
	id   string
	msgs []models.SocketMessage
	pos  int
}

func (s *fakeSocket) ConnectionID() string { return s.id }

func (s *fakeSocket) Receive() (*models.SocketMessage, error) {
	if s.pos >= len(s.msgs) {
		return nil, io.EOF
	}
	msg := s.msgs[s.pos]
	s.pos++
	return &msg, nil
}

func (s *fakeSocket) Close() error { return nil }

type fakeDialer struct {
	sock  ports.Socket
	delay time.Duration
	err   error
}

func (d *fakeDialer) ConnectWebSocket(ctx context.Context) (ports.Socket, error) {
	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.sock, nil
}

func newTestSpawner(dialer ports.SocketDialer) (*Spawner, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	return NewSpawner(dialer, zap.New(core).Sugar()), logs
}

func TestHandoffDeliversConnectionID(t *testing.T) {
	sock := &fakeSocket{id: "conn-42"}
	s, _ := newTestSpawner(&fakeDialer{sock: sock})

	h := s.Start(context.Background(), "TestWatcher")

	id, err := h.ConnectionID(time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if id != "conn-42" {
		t.Errorf("expected conn-42, got %s", id)
	}

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("listener did not exit after socket closed")
	}
}

func TestHandoffTimesOutWhenSocketNeverConnects(t *testing.T) {
	s, _ := newTestSpawner(&fakeDialer{sock: &fakeSocket{id: "late"}, delay: 500 * time.Millisecond})

	h := s.Start(context.Background(), "SlowWatcher")

	if _, err := h.ConnectionID(20 * time.Millisecond); err == nil {
		t.Fatal("expected timeout error, got nil")
	}
}

func TestOnlyFinalTranscriptsSurfaced(t *testing.T) {
	sock := &fakeSocket{
		id: "conn-1",
		msgs: []models.SocketMessage{
			{Channel: models.ChannelTranscript, Data: models.MessageData{Text: "partial words", IsFinal: false}},
			{Channel: models.ChannelTranscript, Data: models.MessageData{Text: "the final sentence", IsFinal: true}},
			{Channel: models.ChannelTranscript, Data: models.MessageData{Text: "   ", IsFinal: true}},
		},
	}
	s, logs := newTestSpawner(&fakeDialer{sock: sock})

	h := s.Start(context.Background(), "MicWatcher")
	<-h.Done()

	var finals, partials int
	for _, entry := range logs.All() {
		if strings.Contains(entry.Message, "the final sentence") {
			finals++
		}
		if strings.Contains(entry.Message, "partial words") {
			partials++
		}
	}
	if finals != 1 {
		t.Errorf("expected exactly one final transcript line, got %d", finals)
	}
	if partials != 0 {
		t.Errorf("non-final transcript must not be surfaced, got %d lines", partials)
	}
}

func TestChannelClassification(t *testing.T) {
	sock := &fakeSocket{
		id: "conn-1",
		msgs: []models.SocketMessage{
			{Channel: models.ChannelSession, Data: models.MessageData{Text: "ignored lifecycle echo"}},
			{Channel: models.ChannelAudioIndex, Data: models.MessageData{Text: "audio summary here"}},
			{Channel: models.ChannelVisualIndex, Data: models.MessageData{Text: "a terminal is on screen"}},
			{Channel: models.ChannelAlert, Data: models.MessageData{Label: "agent-error", Confidence: 0.91}},
			{Channel: "something_new", Data: models.MessageData{Text: "unknown channel payload"}},
		},
	}
	s, logs := newTestSpawner(&fakeDialer{sock: sock})

	h := s.Start(context.Background(), "VisualWatcher")
	<-h.Done()

	joined := ""
	for _, entry := range logs.All() {
		joined += entry.Message + "\n"
	}

	for _, want := range []string{"audio summary here", "a terminal is on screen", "agent-error"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
	for _, not := range []string{"ignored lifecycle echo", "unknown channel payload"} {
		if strings.Contains(joined, not) {
			t.Errorf("output must not contain %q", not)
		}
	}
}

func TestRegistryClosesSessionListeners(t *testing.T) {
	core, _ := observer.New(zap.InfoLevel)
	reg := NewRegistry(zap.New(core).Sugar())

	h1 := &Handle{ready: make(chan string, 1), done: make(chan struct{})}
	h2 := &Handle{ready: make(chan string, 1), done: make(chan struct{})}
	reg.Register("cap-1", h1)
	reg.Register("cap-1", h2)

	if got := reg.Count("cap-1"); got != 2 {
		t.Fatalf("expected 2 listeners, got %d", got)
	}

	reg.CloseSession("cap-1")
	if got := reg.Count("cap-1"); got != 0 {
		t.Errorf("expected 0 listeners after close, got %d", got)
	}

	// closing an unknown session is a no-op
	reg.CloseSession("cap-unknown")
}
