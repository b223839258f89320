package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zoneportal/backend/internal/config"
	"github.com/zoneportal/backend/internal/handler"
	"github.com/zoneportal/backend/internal/service/chatkit"
	"github.com/zoneportal/backend/pkg/logger"
)

var shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	l := logger.Setup(cfg.Log.Level, cfg.Log.Format)
	if envErr != nil {
		l.Warn().Err(envErr).Msg("no .env file loaded, continuing with system environment variables only")
	}

	// Secrets are resolved per request; only warn here so the site still boots.
	if err := (config.EnvSecrets{}).Secrets().Validate(); err != nil {
		l.Warn().Err(err).Msg("chatkit sessions will fail until credentials are configured")
	}

	issuer := chatkit.NewService(cfg.ChatKit, &http.Client{})
	l.Info().
		Str("base_url", cfg.ChatKit.BaseURL).
		Dur("timeout", issuer.Timeout()).
		Msg("chatkit session issuer initialized")

	router := handler.NewRouter(issuer, handler.Options{
		Logger:         l,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Secrets:        config.EnvSecrets{},
		MaxBodyBytes:   cfg.ChatKit.MaxBodyBytes,
	})

	startServer(ctx, l, cfg.Server, router)
}

func startServer(ctx context.Context, l zerolog.Logger, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	l.Info().Str("addr", addr).Msg("zone portal backend listening")
	if err := runServer(ctx, srv); err != nil {
		l.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown did not complete")
		}
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
