package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/calcwidget/calcwidget/internal/anim"
	"github.com/calcwidget/calcwidget/internal/app"
	"github.com/calcwidget/calcwidget/internal/clipboard"
	"github.com/calcwidget/calcwidget/internal/config"
	"github.com/calcwidget/calcwidget/internal/ease"
	"github.com/calcwidget/calcwidget/internal/logging"
	"github.com/calcwidget/calcwidget/internal/prefs"
	"github.com/calcwidget/calcwidget/internal/session"
	"github.com/calcwidget/calcwidget/internal/worker"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: <user config dir>/calcwidget/config.yaml)")
	workerFlag := flag.String("worker", "", "Override worker command, or a ws:// bridge URL")
	token := flag.String("token", "", "Auth token for the bridge")
	logFile := flag.String("log", "", "Override log file")
	flag.Parse()

	if err := run(*configPath, *workerFlag, *token, *logFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, workerFlag, token, logFile string) error {
	if configPath == "" {
		configPath = filepath.Join(config.DefaultDir(), "config.yaml")
	}
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	switch {
	case strings.HasPrefix(workerFlag, "ws://"), strings.HasPrefix(workerFlag, "wss://"):
		cfg.Worker.URL = workerFlag
	case workerFlag != "":
		cfg.Worker.Command = workerFlag
		cfg.Worker.URL = ""
	}
	if token != "" {
		cfg.Worker.Token = token
	}
	if logFile != "" {
		cfg.Logging.File = logFile
	}

	logger, closer, err := logging.New(logging.Options{
		File:       cfg.Logging.File,
		Level:      cfg.Logging.Level,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if err != nil {
		return err
	}
	defer closer.Close()
	slog.SetDefault(logger)

	store, err := prefs.Open(cfg.Prefs.File)
	if err != nil {
		return fmt.Errorf("opening preferences: %w", err)
	}

	curve, err := ease.Lookup(cfg.Animation.Curve)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A worker that fails to start leaves the widget up with no session.
	transport, err := connect(ctx, cfg)
	if err != nil {
		slog.Error("no worker", "error", err)
	}

	var loop app.Loop
	m := app.New(app.Options{
		Transport: transport,
		Prefs:     store,
		Clipboard: clipboard.Default(),
		Assets: session.Assets{
			Dir:     cfg.Assets.ImagesDir,
			Display: cfg.DisplayPath(),
		},
		Ticks:         anim.LoopTicks{Post: loop.Post},
		Curve:         curve,
		Tick:          cfg.Animation.Tick,
		FadeDuration:  cfg.Animation.Duration,
		StatsInterval: cfg.Worker.StatsInterval,
		Remote:        cfg.Worker.URL,
		AboutStyle:    aboutStyle(),
		Logger:        logger,
	})
	slog.Info("widget starting", "session", m.Session().ID(), "worker", cfg.Worker.Command, "url", cfg.Worker.URL)

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithReportFocus(),
	)
	loop.Attach(p)

	_, runErr := p.Run()
	if transport != nil {
		if err := transport.Close(); err != nil {
			slog.Warn("closing worker", "error", err)
		}
	}
	return runErr
}

// connect reaches the worker through the bridge when a URL is configured and
// launches it as a child process otherwise.
func connect(ctx context.Context, cfg *config.Config) (worker.Transport, error) {
	if cfg.Worker.URL != "" {
		conn, err := worker.Dial(ctx, cfg.Worker.URL, cfg.Worker.Token)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	proc, err := worker.Start(ctx, worker.Command{
		Path: cfg.Worker.Command,
		Args: cfg.Worker.Args,
		Dir:  cfg.Worker.Dir,
	})
	if err != nil {
		return nil, err
	}
	return proc, nil
}

func aboutStyle() string {
	if lipgloss.HasDarkBackground() {
		return "dark"
	}
	return "light"
}
