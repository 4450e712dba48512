package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kalasahayak/kala-sahayak/internal/clipdrop"
	"github.com/kalasahayak/kala-sahayak/internal/config"
	"github.com/kalasahayak/kala-sahayak/internal/listing"
	"github.com/kalasahayak/kala-sahayak/internal/llm"
	"github.com/kalasahayak/kala-sahayak/internal/storage"
	"github.com/kalasahayak/kala-sahayak/internal/web"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	logFileName     = "kala-sahayak.log"
	shutdownTimeout = 10 * time.Second
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// Try to load existing config.env file
	config.LoadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// JOURNAL_STREAM is set by systemd when running as a service.
	// Skip file logging under systemd (journald handles it).
	if _, underSystemd := os.LookupEnv("JOURNAL_STREAM"); underSystemd {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		// Local development: log to both stderr and file
		logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open log file")
		}
		defer logFile.Close()

		consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
		fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
		log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))

		log.Info().Str("logFile", logFileName).Msg("logging to file")
	}

	// The server starts even with missing credentials: the web layer shows
	// a blocking page naming them, and no pipeline stage can run until they
	// are configured.
	if missing := cfg.MissingKeys(); len(missing) > 0 {
		log.Warn().Str("missing", strings.Join(missing, ", ")).Msg("required API keys are not configured")
	}

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize listing store")
	}
	defer store.Close()
	log.Info().Str("dbPath", cfg.DBPath).Msg("listing store initialized")

	var generator llm.Generator
	if cfg.GeminiAPIKey != "" {
		geminiGenerator, err := llm.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize gemini generator")
		}
		generator = geminiGenerator
		log.Info().Str("model", cfg.GeminiModel).Msg("gemini generator initialized")
	}

	remover := clipdrop.NewClient(clipdrop.ClientOpts{APIKey: cfg.ClipdropAPIKey})
	pipeline := listing.NewPipeline(remover, generator, cfg.UploadDir)

	server, err := web.NewServer(cfg, pipeline, store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize web server")
	}

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Routes(),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.ListenAddr).Msg("listening")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}
