// Command voicebridge runs the Twilio↔OpenAI realtime voice bridge.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentplexus/voicebridge"
	"github.com/agentplexus/voicebridge/internal/config"
	"github.com/agentplexus/voicebridge/internal/httpapi"
	"github.com/agentplexus/voicebridge/internal/log"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.FromEnv()
	log.Configure(log.Config{Level: cfg.LogLevel, Service: "voicebridge"})
	logger := log.WithComponent("main")

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	api := httpapi.New(cfg)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().
			Int("port", cfg.Port).
			Str("model", cfg.Model).
			Str("version", voicebridge.Version).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http server shutdown incomplete")
	}
	api.CloseSessions(shutdownCtx)
	logger.Info().Msg("shutdown complete")
}
