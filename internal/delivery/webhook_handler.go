package delivery

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/video-db/videodb-capture-quickstart/internal/dispatcher"
	"github.com/video-db/videodb-capture-quickstart/internal/models"
)

type WebhookHandler struct {
	dispatcher *dispatcher.Dispatcher
	log        *zap.SugaredLogger
}

func NewWebhookHandler(d *dispatcher.Dispatcher, log *zap.SugaredLogger) *WebhookHandler {
	return &WebhookHandler{dispatcher: d, log: log}
}

// POST /webhook receives lifecycle events from the platform. Malformed or
// typeless payloads are acknowledged and ignored; the platform retries
// deliveries it considers failed, and there is nothing to retry here.
func (h *WebhookHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var ev models.WebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		h.log.Infof("[webhook] unreadable payload: %v", err)
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	if ev.Event == "" {
		h.log.Info("[webhook] received event with no type")
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	h.log.Infof("[webhook] event: %s", ev.Event)
	h.dispatcher.Handle(r.Context(), ev)

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
