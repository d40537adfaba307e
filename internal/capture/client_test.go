package capture

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/video-db/videodb-capture-quickstart/internal/models"
)

type controlServer struct {
	srv *httptest.Server

	stopDelay      time.Duration
	stopCalled     atomic.Int32
	shutdownCalled atomic.Int32
	startCalled    atomic.Int32
}

func newControlServer(t *testing.T) *controlServer {
	t.Helper()
	cs := &controlServer{}

	mux := http.NewServeMux()
	// Go 1.21's ServeMux has no "METHOD /path" patterns; guard the method
	// explicitly to keep the same matching behavior.
	handle := func(method, pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != method {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			h(w, r)
		})
	}
	handle(http.MethodGet, "/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handle(http.MethodPost, "/permissions", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handle(http.MethodGet, "/channels", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"channels":[
			{"id":"mic-0","type":"mic","name":"Built-in Microphone"},
			{"id":"disp-0","type":"screen","name":"Main Display"},
			{"id":"disp-1","type":"screen","name":"External Display"},
			{"id":"sys-0","type":"system_audio","name":"System Audio"}
		]}`))
	})
	handle(http.MethodPost, "/session/start", func(w http.ResponseWriter, r *http.Request) {
		cs.startCalled.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	handle(http.MethodPost, "/session/stop", func(w http.ResponseWriter, r *http.Request) {
		cs.stopCalled.Add(1)
		if cs.stopDelay > 0 {
			time.Sleep(cs.stopDelay)
		}
		w.WriteHeader(http.StatusOK)
	})
	handle(http.MethodPost, "/shutdown", func(w http.ResponseWriter, r *http.Request) {
		cs.shutdownCalled.Add(1)
		w.WriteHeader(http.StatusOK)
	})

	cs.srv = httptest.NewServer(mux)
	t.Cleanup(cs.srv.Close)
	return cs
}

func newTestClient(t *testing.T, cs *controlServer) *Client {
	t.Helper()
	core, _ := observer.New(zap.InfoLevel)
	return New("st-test", Options{
		ControlURL:      cs.srv.URL,
		StopTimeout:     50 * time.Millisecond,
		ShutdownTimeout: 50 * time.Millisecond,
		GracePeriod:     time.Millisecond,
	}, zap.New(core).Sugar())
}

func TestStartAgainstExternalHelper(t *testing.T) {
	cs := newControlServer(t)
	c := newTestClient(t, cs)

	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if c.cmd != nil {
		t.Error("external helper must not be spawned")
	}
}

func TestListChannelsGroupsByKind(t *testing.T) {
	cs := newControlServer(t)
	c := newTestClient(t, cs)

	channels, err := c.ListChannels(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(channels.Mics) != 1 || len(channels.Displays) != 2 || len(channels.SystemAudio) != 1 {
		t.Fatalf("wrong grouping: %+v", channels)
	}
	if d := models.Default(channels.Displays); d == nil || d.ID != "disp-0" {
		t.Errorf("expected disp-0 as default display, got %+v", d)
	}
	if models.Default(nil) != nil {
		t.Error("default of empty group must be nil")
	}
}

func TestCleanupShutsDownAfterCleanStop(t *testing.T) {
	cs := newControlServer(t)
	c := newTestClient(t, cs)

	c.Cleanup(context.Background())

	if cs.stopCalled.Load() != 1 {
		t.Errorf("expected one stop call, got %d", cs.stopCalled.Load())
	}
	if cs.shutdownCalled.Load() != 1 {
		t.Errorf("expected shutdown after clean stop, got %d calls", cs.shutdownCalled.Load())
	}

	select {
	case <-c.Done():
	default:
		t.Error("cleanup must signal done")
	}
}

func TestCleanupSkipsShutdownWhenStopTimesOut(t *testing.T) {
	cs := newControlServer(t)
	cs.stopDelay = 300 * time.Millisecond // well past the 50ms stop timeout
	c := newTestClient(t, cs)

	c.Cleanup(context.Background())

	if cs.shutdownCalled.Load() != 0 {
		t.Error("shutdown must be skipped when stop times out (helper likely dead)")
	}
	if cs.startCalled.Load() != 0 {
		t.Error("cleanup must never restart the helper")
	}

	select {
	case <-c.Done():
	default:
		t.Error("cleanup must signal done even on the timeout path")
	}
}

func TestStartSessionPostsSelectedChannels(t *testing.T) {
	cs := newControlServer(t)
	c := newTestClient(t, cs)

	err := c.StartSession(context.Background(), StartSessionParams{
		SessionID: "cap-1",
		Channels: []models.Channel{
			{ID: "disp-0", Kind: models.StreamScreen, Store: true},
		},
		PrimaryVideoChannelID: "disp-0",
	})
	if err != nil {
		t.Fatal(err)
	}
	if cs.startCalled.Load() != 1 {
		t.Errorf("expected one start call, got %d", cs.startCalled.Load())
	}
}
