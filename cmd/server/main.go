package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"lingofocus/internal/ai"
	"lingofocus/internal/audio"
	"lingofocus/internal/bootstrap"
	"lingofocus/internal/config"
	"lingofocus/internal/handlers"
	"lingofocus/internal/logging"
	"lingofocus/internal/security"
	"lingofocus/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger := logging.Setup(cfg.Debug, cfg.PrettyLog)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := bootstrap.OpenStore(ctx, cfg, false, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer closeStore()

	// Speech: TTS cache is always available to the HTTP API; the host player is optional
	tts := audio.NewTTSService(cfg.AudioPath)
	channel := audio.NewChannel(
		audio.NewPlayerEngine(tts, cfg.AudioPlayer, cfg.CuePath),
		audio.WithLogger(logger),
	)
	if !channel.Available() {
		logger.Info().Msg("no audio player configured; sessions run silently on the host")
	}

	// Generation is optional
	var generator service.Generator
	if gen, err := newGenerator(ctx, cfg, logger); err != nil {
		logger.Warn().Err(err).Msg("collection generation disabled")
	} else {
		generator = gen
	}

	collections := service.NewCollectionService(st, generator, logger)
	study := service.NewStudyService(st, channel, logger)
	defer study.Stop()
	backup := service.NewBackupService(st, cfg.BackupDir, logger)

	email, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("email delivery disabled")
		email = nil
	}

	autoBackup := service.NewAutoBackup(backup, email, cfg.BackupEmailTo, tts, cfg.BackupInterval, logger)
	if err := autoBackup.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to schedule backups")
	}
	defer autoBackup.Stop()

	var tokens *security.TokenIssuer
	if cfg.AuthEnabled() {
		tokens = security.NewTokenIssuer(cfg.AuthSecret, cfg.TokenTTL)
		token, err := tokens.Issue("default")
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to issue device token")
		}
		logger.Info().Str("token", token).Dur("ttl", cfg.TokenTTL).Msg("API requires a bearer token")
	}

	// Generation calls are paid; allow 10 per client per minute
	limiter := security.NewRateLimiter(10, time.Minute)
	go limiter.Run(ctx, 5*time.Minute)

	h := handlers.New(handlers.Deps{
		Collections: collections,
		Study:       study,
		Backup:      backup,
		Email:       email,
		EmailTo:     cfg.BackupEmailTo,
		TTS:         tts,
		Tokens:      tokens,
		Limiter:     limiter,
		Logger:      logger,
	})

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      h.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}
}

// newGenerator returns nil without error when no credentials are configured
func newGenerator(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (service.Generator, error) {
	opts := []ai.Option{ai.WithModel(cfg.GeminiModel), ai.WithLogger(logger)}
	switch {
	case cfg.GeminiAPIKey != "":
		return ai.New(cfg.GeminiAPIKey, opts...)
	case cfg.GeminiUseADC:
		return ai.NewWithADC(ctx, opts...)
	default:
		return nil, ai.ErrNoCredentials
	}
}
