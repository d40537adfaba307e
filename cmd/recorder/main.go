package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/video-db/videodb-capture-quickstart/internal/config"
	"github.com/video-db/videodb-capture-quickstart/internal/delivery"
	"github.com/video-db/videodb-capture-quickstart/internal/dispatcher"
	"github.com/video-db/videodb-capture-quickstart/internal/domain"
	"github.com/video-db/videodb-capture-quickstart/internal/infra"
	"github.com/video-db/videodb-capture-quickstart/internal/listener"
	"github.com/video-db/videodb-capture-quickstart/internal/models"
	"github.com/video-db/videodb-capture-quickstart/internal/platform"
	"github.com/video-db/videodb-capture-quickstart/internal/ports"
	"github.com/video-db/videodb-capture-quickstart/internal/tunnel"
)

func main() {

	// LOGGER
	zcore, _ := zap.NewProduction()
	defer zcore.Sync()
	log := zcore.Sugar()

	// ENV
	cfg, err := config.Load(8000)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	// POSTGRES
	ctx := context.Background()

	pool, err := infra.NewPgxPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("cannot connect pgxpool: %v", err)
	}
	defer pool.Close()

	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		log.Fatalf("postgres ping failed: %v", err)
	}

	if err := infra.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// REPOS
	users := infra.NewPostgresUserRepo(pool)
	recordings := infra.NewPostgresRecordingRepo(pool)

	// PLATFORM (server key; user-scoped calls build their own client)
	conn := platform.NewConnection(cfg.APIKey, cfg.BaseURL)

	// TUNNEL
	tun := tunnel.NewCloudflared(tunnel.Config{
		Port:             cfg.Port,
		WebhookPath:      "/api/webhook",
		PresetWebhookURL: cfg.WebhookURL,
		RuntimeFile:      "runtime.json",
	}, log)

	webhookURL, err := tun.Start(ctx)
	if err != nil {
		// the API still works without a tunnel; webhooks just won't arrive
		log.Warnf("tunnel failed to start, webhooks may not work: %v", err)
	}
	defer tun.Stop()

	// SERVICES
	insights := domain.NewInsightsService(recordings, users, cfg.BaseURL, log)

	spawner := listener.NewSpawner(conn, log)
	registry := listener.NewRegistry(log)

	disp := dispatcher.New(dispatcher.Params{
		Platform:   conn,
		Spawner:    spawner,
		Registry:   registry,
		WebhookURL: webhookURL,
		Alerts:     cfg.Alerts,
		OnExported: func(ctx context.Context, ev models.WebhookEvent) {
			if ev.Data.ExportedVideoID == "" {
				log.Warn("[webhook] no video_id in exported event")
				return
			}
			rec, err := recordings.UpsertExported(ctx, ports.ExportedRecording{
				SessionID: ev.CaptureSessionID,
				VideoID:   ev.Data.ExportedVideoID,
				StreamURL: ev.Data.StreamURL,
				PlayerURL: ev.Data.PlayerURL,
			})
			if err != nil {
				log.Errorf("[webhook] upsert recording: %v", err)
				return
			}
			log.Infof("[webhook] recording %d stored for video %s", rec.ID, rec.VideoID)

			// detach from the request context; indexing outlives it
			go insights.IndexExported(context.Background(), rec)
		},
	}, log)

	// HANDLERS
	hAPI := delivery.NewAPIHandler(delivery.APIHandlerParams{
		Connect: func(apiKey string) ports.Platform {
			return platform.NewConnection(apiKey, cfg.BaseURL)
		},
		VerifyKey: func(ctx context.Context, apiKey string) error {
			return platform.NewConnection(apiKey, cfg.BaseURL).Verify(ctx)
		},
		Users:      users,
		Recordings: recordings,
		Tunnel:     tun,
		WebhookURL: webhookURL,
		BaseURL:    cfg.BaseURL,
		Port:       cfg.Port,
	}, log)
	hWebhook := delivery.NewWebhookHandler(disp, log)

	// ROUTER
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-Access-Token"},
		AllowCredentials: true,
	}))

	delivery.RegisterRecorderRoutes(r, hAPI, hWebhook, users)

	log.Infow("recorder server started", "port", cfg.Port, "webhook_url", webhookURL)

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server crashed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")
	tun.Stop()
	_ = srv.Shutdown(ctx)
}
