package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/video-db/videodb-capture-quickstart/internal/capture"
	"github.com/video-db/videodb-capture-quickstart/internal/models"
)

type sessionInfo struct {
	SessionID  string `json:"session_id"`
	Token      string `json:"token"`
	WebhookURL string `json:"webhook_url"`
}

func runCapture(cmd *cobra.Command, args []string) error {
	zcore, _ := zap.NewProduction()
	defer zcore.Sync()
	log := zcore.Sugar()

	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("VideoDB Capture Client - Go Quickstart")
	fmt.Println(strings.Repeat("=", 60))

	// 1. Create a session via the backend
	session, err := initSession(flagBackend)
	if err != nil {
		return err
	}
	fmt.Println("Session created successfully")
	fmt.Printf("  Token: %.10s...\n", session.Token)
	fmt.Printf("  Session ID: %s\n\n", session.SessionID)

	// 2. Stream until a stop condition
	return stream(log, session)
}

func initSession(backendURL string) (*sessionInfo, error) {
	fmt.Printf("Connecting to backend at %s...\n", backendURL)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(backendURL+"/init-session", "application/json", strings.NewReader("{}"))
	if err != nil {
		return nil, fmt.Errorf("cannot connect to backend at %s (is it running?): %w", backendURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("init-session failed: http %d", resp.StatusCode)
	}

	var session sessionInfo
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("decode init-session response: %w", err)
	}
	return &session, nil
}

func stream(log *zap.SugaredLogger, session *sessionInfo) error {
	fmt.Println("--- Starting Capture Client ---")

	client := capture.New(session.Token, capture.Options{
		HelperBinary: flagHelper,
		ControlURL:   flagControlURL,
	}, log)

	// stop on Ctrl+C / SIGTERM; cleanup runs on a fresh context below
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := client.Start(ctx); err != nil {
		return err
	}

	// cleanup always runs, whatever happens past this point
	defer func() {
		client.Cleanup(context.Background())
		<-client.Done()
		fmt.Println("\nCleanup complete. Session should be stopped on server.")
	}()

	fmt.Println("Requesting permissions...")
	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range []string{"microphone", "screen_capture"} {
		kind := kind
		g.Go(func() error { return client.RequestPermission(gctx, kind) })
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Println("\nDiscovering channels...")
	channels, err := client.ListChannels(ctx)
	if err != nil {
		return err
	}
	for _, ch := range channels.All() {
		fmt.Printf("  - %s (%s): %s\n", ch.ID, ch.Kind, ch.Name)
	}

	mic := models.Default(channels.Mics)
	display := models.Default(channels.Displays)
	systemAudio := models.Default(channels.SystemAudio)

	var selected []models.Channel
	for _, ch := range []*models.Channel{mic, display, systemAudio} {
		if ch == nil {
			continue
		}
		// store persists the recording to VideoDB after capture stops;
		// without it streams are indexed in real time but not kept
		ch.Store = flagStore
		selected = append(selected, *ch)
	}
	if len(selected) == 0 {
		return fmt.Errorf("no capturable channels found")
	}

	fmt.Printf("\nStarting recording with %d channel(s):\n", len(selected))
	for _, ch := range selected {
		fmt.Printf("  - %s: %s\n", ch.Kind, ch.ID)
	}

	params := capture.StartSessionParams{
		SessionID: session.SessionID,
		Channels:  selected,
	}
	if display != nil {
		params.PrimaryVideoChannelID = display.ID
	}
	if err := client.StartSession(ctx, params); err != nil {
		return err
	}

	if flagTimeout > 0 {
		fmt.Printf("Recording for %s... (Ctrl+C to stop early)\n", flagTimeout)
		select {
		case <-ctx.Done():
		case <-time.After(flagTimeout):
		}
	} else {
		fmt.Println("Recording... Press Ctrl+C to stop.")
		<-ctx.Done()
	}

	fmt.Println("\nStopping capture...")
	return nil
}
