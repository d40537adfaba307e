package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/video-db/videodb-capture-quickstart/internal/models"
	"github.com/video-db/videodb-capture-quickstart/internal/ports"
)

// PlatformFactory builds a platform client for a user's own API key.
type PlatformFactory func(apiKey string) ports.Platform

// KeyVerifier checks an API key against the platform before we store it.
type KeyVerifier func(ctx context.Context, apiKey string) error

// APIHandler serves the async-recorder REST surface: registration,
// per-user tokens and sessions, and the recordings library.
type APIHandler struct {
	connect    PlatformFactory
	verifyKey  KeyVerifier
	users      ports.UserRepository
	recordings ports.RecordingRepository
	tunnel     ports.Tunnel
	webhookURL string
	baseURL    string
	port       int
	log        *zap.SugaredLogger
}

type APIHandlerParams struct {
	Connect    PlatformFactory
	VerifyKey  KeyVerifier
	Users      ports.UserRepository
	Recordings ports.RecordingRepository
	Tunnel     ports.Tunnel
	WebhookURL string
	BaseURL    string // platform base URL override, "" means SDK default
	Port       int
}

func NewAPIHandler(p APIHandlerParams, log *zap.SugaredLogger) *APIHandler {
	return &APIHandler{
		connect:    p.Connect,
		verifyKey:  p.VerifyKey,
		users:      p.Users,
		recordings: p.Recordings,
		tunnel:     p.Tunnel,
		webhookURL: p.WebhookURL,
		baseURL:    p.BaseURL,
		port:       p.Port,
		log:        log,
	}
}

// POST /api/register validates the submitted platform API key and mints
// an opaque access token for the desktop shell to hold.
func (h *APIHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string `json:"name"`
		APIKey string `json:"api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.APIKey == "" {
		http.Error(w, "name and api_key are required", http.StatusBadRequest)
		return
	}

	if err := h.verifyKey(r.Context(), req.APIKey); err != nil {
		h.log.Warnf("[api] api key verification failed: %v", err)
		http.Error(w, "invalid VideoDB API key", http.StatusBadRequest)
		return
	}

	user, err := h.users.Create(r.Context(), req.Name, req.APIKey, uuid.NewString())
	if err != nil {
		http.Error(w, "failed to register: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.log.Infof("[api] registered user %d (%s)", user.ID, user.Name)

	resp := map[string]string{
		"access_token": user.AccessToken,
		"name":         user.Name,
	}
	if h.baseURL != "" {
		resp["backend_base_url"] = h.baseURL
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/config
func (h *APIHandler) Config(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"webhook_url": h.webhookURL,
		"api_port":    h.port,
	}
	if h.baseURL != "" {
		resp["backend_base_url"] = h.baseURL
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /api/token mints a capture client token under the caller's own
// API key.
func (h *APIHandler) Token(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())

	var req struct {
		UserID string `json:"user_id"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	conn := h.connect(user.APIKey)
	token, err := conn.GenerateClientToken(r.Context(), 0)
	if err != nil {
		h.log.Errorf("[api] token generation failed: %v", err)
		http.Error(w, "failed to generate session token: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, token)
}

// POST /api/capture-session creates a session under the caller's API key
// and records the session-to-user association, so the exported webhook
// can resolve the owner without guessing.
func (h *APIHandler) CreateCaptureSession(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())

	var req struct {
		CallbackURL string         `json:"callback_url"`
		Metadata    map[string]any `json:"metadata"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	callbackURL := req.CallbackURL
	if callbackURL == "" {
		callbackURL = h.webhookURL
	}
	endUserID := fmt.Sprintf("user-%d", user.ID)

	h.log.Infof("[api] creating capture session for %s with callback: %s", endUserID, callbackURL)

	conn := h.connect(user.APIKey)
	session, err := conn.CreateCaptureSession(r.Context(), ports.CreateSessionParams{
		EndUserID:    endUserID,
		CollectionID: "default",
		CallbackURL:  callbackURL,
		Metadata:     req.Metadata,
	})
	if err != nil {
		h.log.Errorf("[api] create capture session: %v", err)
		http.Error(w, "failed to create capture session: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if _, err := h.recordings.CreatePending(r.Context(), session.ID, user.ID); err != nil {
		// the session exists remotely; losing the owner mapping only
		// degrades background indexing later
		h.log.Errorf("[api] record session owner: %v", err)
	}

	h.log.Infof("[api] created capture session: %s", session.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":    session.ID,
		"collection_id": session.CollectionID,
		"end_user_id":   session.EndUserID,
		"status":        session.Status,
		"callback_url":  callbackURL,
	})
}

// GET /api/recordings
func (h *APIHandler) Recordings(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}

	recordings, err := h.recordings.List(r.Context(), limit)
	if err != nil {
		http.Error(w, "failed to list recordings: "+err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]map[string]any, 0, len(recordings))
	for _, rec := range recordings {
		out = append(out, map[string]any{
			"id":              rec.ID,
			"session_id":      rec.SessionID,
			"stream_url":      rec.StreamURL,
			"player_url":      rec.PlayerURL,
			"created_at":      rec.CreatedAt,
			"duration":        rec.Duration,
			"insights_status": rec.InsightsStatus,
			"insights":        rec.Insights,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /api/recordings/{id}
func (h *APIHandler) RecordingByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	rec, err := h.recordings.GetByID(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to get recording: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if rec == nil {
		http.Error(w, "recording not found", http.StatusNotFound)
		return
	}

	var insights any
	if rec.Insights != nil && *rec.Insights != "" {
		insights = json.RawMessage(*rec.Insights)
	}

	status := rec.InsightsStatus
	if status == "" {
		status = models.InsightsPending
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":              rec.ID,
		"video_id":        rec.VideoID,
		"stream_url":      rec.StreamURL,
		"player_url":      rec.PlayerURL,
		"session_id":      rec.SessionID,
		"duration":        rec.Duration,
		"insights":        insights,
		"insights_status": status,
	})
}

// GET /api/tunnel/status
func (h *APIHandler) TunnelStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"active":      h.tunnel.Running(),
		"webhook_url": h.webhookURL,
		"provider":    "cloudflare",
	})
}
