package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	flagBackend    string
	flagStore      bool
	flagTimeout    time.Duration
	flagHelper     string
	flagControlURL string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "capture",
		Short: "Stream your screen and audio to VideoDB under a backend-managed session",
		RunE:  runCapture,
	}

	rootCmd.Flags().StringVar(&flagBackend, "backend", "http://localhost:5002", "backend base URL")
	rootCmd.Flags().BoolVar(&flagStore, "store", false, "persist the recording after capture stops")
	rootCmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "stop automatically after this duration (0 = run until interrupted)")
	rootCmd.Flags().StringVar(&flagHelper, "helper", "", "capture helper binary (default: videodb-capture-helper on PATH)")
	rootCmd.Flags().StringVar(&flagControlURL, "control-url", "", "control URL of an already-running helper")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
