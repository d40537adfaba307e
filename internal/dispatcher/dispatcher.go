package dispatcher

import (
	"context"

	"go.uber.org/zap"

	"github.com/video-db/videodb-capture-quickstart/internal/config"
	"github.com/video-db/videodb-capture-quickstart/internal/listener"
	"github.com/video-db/videodb-capture-quickstart/internal/models"
	"github.com/video-db/videodb-capture-quickstart/internal/ports"
)

const (
	audioPrompt  = "Summarize what is being discussed"
	visualPrompt = "In one sentence, describe what is on screen"

	// audio summaries arrive in 30 second batches
	audioBatchSeconds = 30
)

// ExportHandler is invoked on capture_session.exported. The recorder
// variant persists the recording here; the quickstart just prints.
type ExportHandler func(ctx context.Context, ev models.WebhookEvent)

// Dispatcher turns session lifecycle webhooks into indexing pipelines,
// one listener per live stream. Events are handled statelessly from the
// payload alone; the platform owns the session state machine.
type Dispatcher struct {
	platform   ports.Platform
	spawner    *listener.Spawner
	registry   *listener.Registry
	webhookURL string
	alerts     []config.AlertRule
	onExported ExportHandler
	log        *zap.SugaredLogger
}

type Params struct {
	Platform   ports.Platform
	Spawner    *listener.Spawner
	Registry   *listener.Registry
	WebhookURL string
	Alerts     []config.AlertRule
	OnExported ExportHandler // nil means log-only
}

func New(p Params, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		platform:   p.Platform,
		spawner:    p.Spawner,
		registry:   p.Registry,
		webhookURL: p.WebhookURL,
		alerts:     p.Alerts,
		onExported: p.OnExported,
		log:        log,
	}
}

// Handle processes one webhook delivery. Unrecognized events are ignored.
func (d *Dispatcher) Handle(ctx context.Context, ev models.WebhookEvent) {
	switch ev.Event {
	case models.EventSessionActive:
		d.log.Infof("[webhook] session %s active, starting AI pipelines", ev.CaptureSessionID)
		d.handleActive(ctx, ev.CaptureSessionID)

	case models.EventSessionStopping:
		d.log.Infof("[webhook] session %s stopping", ev.CaptureSessionID)

	case models.EventSessionStopped:
		d.log.Infof("[webhook] session %s stopped, all streams finalized", ev.CaptureSessionID)
		d.registry.CloseSession(ev.CaptureSessionID)

	case models.EventSessionExported:
		d.handleExported(ctx, ev)
	}
}

// handleActive attaches indexing to each non-empty stream category.
// A failure in one category is logged and the rest still proceed;
// already-started pipelines are never rolled back.
func (d *Dispatcher) handleActive(ctx context.Context, sessionID string) {
	session, err := d.platform.GetCaptureSession(ctx, sessionID)
	if err != nil {
		d.log.Errorf("[webhook] get session %s: %v", sessionID, err)
		return
	}
	d.log.Infof("[webhook] retrieved session %s (status=%s)", session.ID, session.Status)

	audioKinds := []struct{ kind, name string }{
		{models.StreamSystemAudio, "SystemAudioWatcher"},
		{models.StreamMic, "MicWatcher"},
	}
	for _, a := range audioKinds {
		kind, name := a.kind, a.name
		stream := d.firstStream(ctx, sessionID, kind)
		if stream == nil {
			continue
		}
		if err := d.startAudioPipelines(ctx, sessionID, stream.ID, name); err != nil {
			d.log.Errorf("[webhook] %s pipelines for %s: %v", kind, stream.ID, err)
		}
	}

	if stream := d.firstStream(ctx, sessionID, models.StreamScreen); stream != nil {
		if err := d.startVisualPipeline(ctx, sessionID, stream.ID); err != nil {
			d.log.Errorf("[webhook] screen pipeline for %s: %v", stream.ID, err)
		}
	}
}

func (d *Dispatcher) firstStream(ctx context.Context, sessionID, kind string) *models.RTStream {
	streams, err := d.platform.ListRTStreams(ctx, sessionID, kind)
	if err != nil {
		d.log.Errorf("[webhook] list %s streams: %v", kind, err)
		return nil
	}
	d.log.Infof("[webhook] %s streams: %d", kind, len(streams))
	if len(streams) == 0 {
		return nil
	}
	return &streams[0]
}

// startAudioPipelines spawns a listener, waits for its socket, then starts
// live transcription and windowed audio summaries on it. Waiting before
// the index calls is what guarantees the pipeline attaches to a ready
// socket.
func (d *Dispatcher) startAudioPipelines(ctx context.Context, sessionID, streamID, name string) error {
	h := d.spawner.Start(ctx, name)
	wsID, err := h.ConnectionID(listener.HandoffTimeout)
	if err != nil {
		return err
	}
	d.registry.Register(sessionID, h)

	if err := d.platform.StartTranscript(ctx, streamID, wsID); err != nil {
		return err
	}
	if err := d.platform.IndexAudio(ctx, streamID, ports.IndexAudioParams{
		Prompt:         audioPrompt,
		WSConnectionID: wsID,
		Batch:          &ports.BatchConfig{Type: "time", Value: audioBatchSeconds},
	}); err != nil {
		return err
	}

	d.log.Infof("[webhook] audio indexing started on %s (socket: %s)", streamID, wsID)
	return nil
}

func (d *Dispatcher) startVisualPipeline(ctx context.Context, sessionID, streamID string) error {
	h := d.spawner.Start(ctx, "VisualWatcher")
	wsID, err := h.ConnectionID(listener.HandoffTimeout)
	if err != nil {
		return err
	}
	d.registry.Register(sessionID, h)

	indexID, err := d.platform.IndexVisuals(ctx, streamID, ports.IndexVisualsParams{
		Prompt:         visualPrompt,
		WSConnectionID: wsID,
	})
	if err != nil {
		return err
	}
	d.log.Infof("[webhook] visual indexing started on %s (socket: %s)", streamID, wsID)

	if len(d.alerts) > 0 {
		d.setupAlerts(ctx, indexID, wsID)
	}
	return nil
}

// setupAlerts attaches the configured alert rules to a visual index,
// reusing platform events that already carry the same label.
func (d *Dispatcher) setupAlerts(ctx context.Context, visualIndexID, wsID string) {
	existing, err := d.platform.ListEvents(ctx)
	if err != nil {
		d.log.Errorf("[webhook] list alert events: %v", err)
		existing = nil
	}

	byLabel := make(map[string]string, len(existing))
	for _, ev := range existing {
		byLabel[ev.Label] = ev.EventID
	}

	for _, rule := range d.alerts {
		eventID, ok := byLabel[rule.Label]
		if ok {
			d.log.Infof("[webhook] reusing event %s (id=%s)", rule.Label, eventID)
		} else {
			eventID, err = d.platform.CreateEvent(ctx, rule.Prompt, rule.Label)
			if err != nil {
				d.log.Errorf("[webhook] create event %s: %v", rule.Label, err)
				continue
			}
			d.log.Infof("[webhook] created event %s (id=%s)", rule.Label, eventID)
		}

		alertID, err := d.platform.CreateAlert(ctx, visualIndexID, ports.AlertParams{
			EventID:        eventID,
			CallbackURL:    d.webhookURL,
			WSConnectionID: wsID,
		})
		if err != nil {
			d.log.Errorf("[webhook] attach alert %s: %v", rule.Label, err)
			continue
		}
		d.log.Infof("[webhook] alert attached: %s (alert_id=%s)", rule.Label, alertID)
	}
}

func (d *Dispatcher) handleExported(ctx context.Context, ev models.WebhookEvent) {
	d.log.Infof("[webhook] recording exported, video_id=%s", ev.Data.ExportedVideoID)
	if ev.Data.StreamURL != "" {
		d.log.Infof("[webhook]   stream url: %s", ev.Data.StreamURL)
	}
	if ev.Data.PlayerURL != "" {
		d.log.Infof("[webhook]   player url: %s", ev.Data.PlayerURL)
	}

	if d.onExported != nil {
		d.onExported(ctx, ev)
	}
}
