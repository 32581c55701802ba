// Command trackboard lists and edits projects through the trackboard API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rpggio/trackboard/internal/cli"
	"github.com/rpggio/trackboard/internal/config"
)

func main() {
	var apiURL string
	var verbose bool

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	flag.StringVar(&apiURL, "api", cfg.Client.BaseURL, "API base URL (default: TRACKBOARD_API_URL or http://localhost:8080)")
	flag.BoolVar(&verbose, "v", false, "log requests and retries to stderr")
	flag.Parse()

	cfg.Client.BaseURL = apiURL
	clientCfg := cli.ConfigFrom(cfg)
	if verbose {
		clientCfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.New(clientCfg, os.Stdout).Run(ctx, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", cli.Describe(err))
		stop()
		os.Exit(1)
	}
}
