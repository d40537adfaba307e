package delivery

import (
	"github.com/go-chi/chi/v5"

	"github.com/video-db/videodb-capture-quickstart/internal/ports"
)

// RegisterQuickstartRoutes wires the minimal backend surface.
func RegisterQuickstartRoutes(r chi.Router, hSession *SessionHandler, hWebhook *WebhookHandler) {
	r.Get("/health", hSession.Health)
	r.Post("/init-session", hSession.InitSession)
	r.Post("/webhook", hWebhook.Webhook)
}

// RegisterRecorderRoutes wires the async-recorder API. The webhook and
// registration endpoints stay public; everything user-scoped sits behind
// the access-token middleware.
func RegisterRecorderRoutes(r chi.Router, hAPI *APIHandler, hWebhook *WebhookHandler, users ports.UserRepository) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/register", hAPI.Register)
		r.Post("/webhook", hWebhook.Webhook)
		r.Get("/recordings", hAPI.Recordings)
		r.Get("/tunnel/status", hAPI.TunnelStatus)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(users))
			r.Get("/config", hAPI.Config)
			r.Post("/token", hAPI.Token)
			r.Post("/capture-session", hAPI.CreateCaptureSession)
			r.Get("/recordings/{id}", hAPI.RecordingByID)
		})
	})
}
