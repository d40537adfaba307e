package listener

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/video-db/videodb-capture-quickstart/internal/models"
	"github.com/video-db/videodb-capture-quickstart/internal/ports"
)

// HandoffTimeout bounds how long a caller waits for a freshly spawned
// listener to report its connection id.
const HandoffTimeout = 10 * time.Second

var banner = strings.Repeat("*", 50)
var alarm = strings.Repeat("!", 50)

// Spawner starts one goroutine per real-time stream, each owning a single
// socket subscription for its lifetime. No reconnect: a receive error ends
// the listener and indexing for that stream silently stops.
type Spawner struct {
	dialer ports.SocketDialer
	log    *zap.SugaredLogger
}

func NewSpawner(dialer ports.SocketDialer, log *zap.SugaredLogger) *Spawner {
	return &Spawner{dialer: dialer, log: log}
}

// Handle tracks one running listener.
type Handle struct {
	name  string
	ready chan string
	done  chan struct{}

	mu   sync.Mutex
	sock ports.Socket
}

// Start spawns a listener named for log output and returns immediately.
// The connection id is published through ConnectionID exactly once.
func (s *Spawner) Start(ctx context.Context, name string) *Handle {
	h := &Handle{
		name:  name,
		ready: make(chan string, 1),
		done:  make(chan struct{}),
	}
	go s.run(ctx, h)
	return h
}

// ConnectionID blocks until the listener's socket is connected, or fails
// after timeout. Callers must not start a pipeline before this returns.
func (h *Handle) ConnectionID(timeout time.Duration) (string, error) {
	select {
	case id := <-h.ready:
		return id, nil
	case <-time.After(timeout):
		return "", fmt.Errorf("listener %s: socket not ready within %s", h.name, timeout)
	}
}

// Done is closed when the listener's receive loop exits.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Close tears down the socket, which unblocks the receive loop.
func (h *Handle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sock != nil {
		_ = h.sock.Close()
	}
}

func (s *Spawner) run(ctx context.Context, h *Handle) {
	defer close(h.done)

	s.log.Infof("[%s] connecting to websocket", h.name)
	sock, err := s.dialer.ConnectWebSocket(ctx)
	if err != nil {
		s.log.Errorf("[%s] connect failed: %v", h.name, err)
		return
	}

	h.mu.Lock()
	h.sock = sock
	h.mu.Unlock()

	s.log.Infof("[%s] connected, id=%s", h.name, sock.ConnectionID())
	h.ready <- sock.ConnectionID()

	for {
		msg, err := sock.Receive()
		if err != nil {
			s.log.Infof("[%s] receive loop ended: %v", h.name, err)
			return
		}
		s.dispatch(h.name, msg)
	}
}

func (s *Spawner) dispatch(name string, msg *models.SocketMessage) {
	data := msg.Data

	switch msg.Channel {
	case models.ChannelSession:
		// lifecycle echoes, the webhook handles these

	case models.ChannelTranscript:
		// only final segments reach the console
		if !data.IsFinal {
			return
		}
		if text := strings.TrimSpace(data.Text); text != "" {
			s.log.Infof("[%s] Transcript: %s", name, text)
		}

	case models.ChannelAudioIndex:
		if text := strings.TrimSpace(data.Text); text != "" {
			s.log.Infof("\n%s\n[%s] Audio Index: %s\n%s", banner, name, text, banner)
		}

	case models.ChannelSceneIndex, models.ChannelVisualIndex:
		if text := strings.TrimSpace(data.Text); text != "" {
			s.log.Infof("\n%s\n[%s] Visual Index: %s\n%s", banner, name, text, banner)
		}

	case models.ChannelAlert:
		s.log.Infof("\n%s\n[%s] ALERT [%s] confidence=%.2f\n%s", alarm, name, data.Label, data.Confidence, alarm)
		if text := strings.TrimSpace(data.Text); text != "" {
			s.log.Infof("[%s]   %s", name, text)
		}
	}
}
