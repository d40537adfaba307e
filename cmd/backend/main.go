package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/video-db/videodb-capture-quickstart/internal/config"
	"github.com/video-db/videodb-capture-quickstart/internal/delivery"
	"github.com/video-db/videodb-capture-quickstart/internal/dispatcher"
	"github.com/video-db/videodb-capture-quickstart/internal/listener"
	"github.com/video-db/videodb-capture-quickstart/internal/platform"
	"github.com/video-db/videodb-capture-quickstart/internal/tunnel"
)

func main() {

	// LOGGER
	zcore, _ := zap.NewProduction()
	defer zcore.Sync()
	log := zcore.Sugar()

	// ENV
	cfg, err := config.Load(5002)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// PLATFORM
	log.Info("connecting to VideoDB")
	conn := platform.NewConnection(cfg.APIKey, cfg.BaseURL)

	// TUNNEL
	ctx := context.Background()
	tun := tunnel.NewCloudflared(tunnel.Config{
		Port:             cfg.Port,
		WebhookPath:      "/webhook",
		PresetWebhookURL: cfg.WebhookURL,
	}, log)

	webhookURL, err := tun.Start(ctx)
	if err != nil {
		log.Fatalf("tunnel: %v", err)
	}
	defer tun.Stop()

	// LISTENERS + DISPATCHER
	spawner := listener.NewSpawner(conn, log)
	registry := listener.NewRegistry(log)

	disp := dispatcher.New(dispatcher.Params{
		Platform:   conn,
		Spawner:    spawner,
		Registry:   registry,
		WebhookURL: webhookURL,
		Alerts:     cfg.Alerts,
	}, log)

	// HANDLERS
	hSession := delivery.NewSessionHandler(conn, tun, webhookURL, "go-quickstart", log)
	hWebhook := delivery.NewWebhookHandler(disp, log)

	// ROUTER
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}))

	delivery.RegisterQuickstartRoutes(r, hSession, hWebhook)

	log.Infow("backend started", "port", cfg.Port, "webhook_url", webhookURL)

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
