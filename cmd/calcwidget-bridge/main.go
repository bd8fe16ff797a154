package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/calcwidget/calcwidget/internal/bridge"
	"github.com/calcwidget/calcwidget/internal/config"
	"github.com/calcwidget/calcwidget/internal/logging"
	"github.com/calcwidget/calcwidget/internal/worker"
)

func main() {
	configPath := flag.String("config", filepath.Join(config.DefaultDir(), "config.yaml"), "Path to config file")
	port := flag.Int("port", 0, "Override bridge port")
	token := flag.String("token", "", "Override bridge auth token")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Bridge.Port = *port
	}
	if *token != "" {
		cfg.Bridge.Token = *token
	}

	// The bridge has no UI, so logs go to stderr unless a file is configured
	// explicitly.
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if cfg.Logging.File != "" {
		l, closer, err := logging.New(logging.Options{
			File:       filepath.Join(filepath.Dir(cfg.Logging.File), "calcwidget-bridge.log"),
			Level:      cfg.Logging.Level,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
		})
		if err != nil {
			slog.Error("failed to open log", "error", err)
			os.Exit(1)
		}
		defer closer.Close()
		logger = l
	}
	slog.SetDefault(logger)

	if cfg.Bridge.Token == "" {
		slog.Warn("bridge token is empty; any local client can drive the worker")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	proc, err := worker.Start(ctx, worker.Command{
		Path: cfg.Worker.Command,
		Args: cfg.Worker.Args,
		Dir:  cfg.Worker.Dir,
	})
	if err != nil {
		slog.Error("failed to start worker", "error", err)
		os.Exit(1)
	}
	defer proc.Close()

	server := bridge.NewServer(proc, cfg.Bridge.AllowedOrigins, cfg.Bridge.Token, logger)

	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			slog.Info("shutting down")
		case <-server.Done():
			slog.Info("worker exited, shutting down", "error", server.ExitErr())
		}
		cancel()
	}()

	if err := bridge.ListenAndServe(ctx, cfg.Bridge.Host, cfg.Bridge.Port, mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
