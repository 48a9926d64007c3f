package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkweon/searchlayer/internal/api"
	"github.com/mkweon/searchlayer/internal/config"
	"github.com/mkweon/searchlayer/internal/ocr"
	"github.com/mkweon/searchlayer/internal/output"
	"github.com/mkweon/searchlayer/internal/synth"
	"github.com/mkweon/searchlayer/internal/vision"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "/etc/searchlayer/server.toml", "path to config file")
	showVersion := flag.Bool("version", false, "show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("searchlayer-server", version)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logging
	setupLogging(cfg.Logging)

	slog.Info("starting searchlayer-server", "version", version, "engine", cfg.OCR.Engine)

	outputs := output.NewManager(cfg.Output)

	// The server is built first so its progress feed can be wired
	// into the engine.
	srv := api.NewServer(cfg, nil, outputs)

	engine, err := buildEngine(cfg, srv)
	if err != nil {
		slog.Error("failed to build OCR engine", "error", err)
		os.Exit(1)
	}
	srv.SetEngine(engine)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		slog.Info("shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func buildEngine(cfg *config.Config, srv *api.Server) (ocr.Engine, error) {
	switch cfg.OCR.Engine {
	case "command":
		return ocr.NewCommandEngine(cfg.OCR.OCRMyPDFPath, cfg.OCR.Language), nil

	case "vision", "":
		fetcher := vision.NewClient(vision.Options{
			Endpoint:      cfg.Vision.Endpoint,
			APIKey:        cfg.Vision.APIKey,
			LanguageHints: cfg.Vision.LanguageHints,
			Timeout:       cfg.Vision.Timeout.Duration(),
		})

		overlayer, err := synth.New(synth.Config{
			FontFile:    cfg.Synth.FontFile,
			Calibration: cfg.Synth.Calibration,
			MinFontSize: cfg.Synth.MinFontSize,
			Producer:    cfg.Synth.Producer,
		})
		if err != nil {
			return nil, err
		}

		return ocr.NewVisionEngine(fetcher, overlayer, cfg.Vision.BatchSize, srv.Progress()), nil

	default:
		return nil, fmt.Errorf("unknown OCR engine %q", cfg.OCR.Engine)
	}
}

func setupLogging(cfg config.LoggingConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
