package delivery

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/video-db/videodb-capture-quickstart/internal/ports"
)

// SessionHandler serves the quickstart surface: health and on-demand
// session creation for capture clients.
type SessionHandler struct {
	platform   ports.Platform
	tunnel     ports.Tunnel
	webhookURL string
	appName    string
	log        *zap.SugaredLogger
}

func NewSessionHandler(platform ports.Platform, tun ports.Tunnel, webhookURL, appName string, log *zap.SugaredLogger) *SessionHandler {
	return &SessionHandler{
		platform:   platform,
		tunnel:     tun,
		webhookURL: webhookURL,
		appName:    appName,
		log:        log,
	}
}

// GET /health
func (h *SessionHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"tunnel": h.tunnel.PublicURL(),
	})
}

// POST /init-session creates a capture session bound to our webhook URL
// and mints a client token for the capture client.
func (h *SessionHandler) InitSession(w http.ResponseWriter, r *http.Request) {
	h.log.Infof("[session] creating session with webhook: %s", h.webhookURL)

	session, err := h.platform.CreateCaptureSession(r.Context(), ports.CreateSessionParams{
		EndUserID:    "quickstart-user",
		CollectionID: "default",
		CallbackURL:  h.webhookURL,
		Metadata:     map[string]any{"app": h.appName},
	})
	if err != nil {
		h.log.Errorf("[session] create failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	token, err := h.platform.GenerateClientToken(r.Context(), 0)
	if err != nil {
		h.log.Errorf("[session] token failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"session_id":  session.ID,
		"token":       token.Token,
		"webhook_url": h.webhookURL,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
