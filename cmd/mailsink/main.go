package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/nimasrn/inquiry-desk/internal/mailsink"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	smtpAddr := getEnv("SINK_SMTP_ADDR", ":2525")
	httpAddr := getEnv("SINK_HTTP_ADDR", ":8025")
	domain := getEnv("SINK_DOMAIN", "localhost")
	capacity := getEnvInt("SINK_CAPACITY", 500)

	log.Info().
		Str("smtp_addr", smtpAddr).
		Str("http_addr", httpAddr).
		Int("capacity", capacity).
		Msg("Starting mail sink")

	store := mailsink.NewStore(capacity)
	smtpSrv := mailsink.NewServer(mailsink.NewBackend(store), smtpAddr, domain)
	srv := &http.Server{
		Addr:         httpAddr,
		Handler:      mailsink.SetupRouter(mailsink.NewHandler(store)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", smtpAddr).Msg("SMTP listener started")
		if err := smtpSrv.ListenAndServe(); err != nil && !errors.Is(err, gosmtp.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start SMTP listener")
		}
	}()
	go func() {
		log.Info().Str("addr", httpAddr).Msg("API server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start API server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down mail sink...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("API server forced to shutdown")
	}
	if err := smtpSrv.Close(); err != nil {
		log.Error().Err(err).Msg("SMTP listener close failed")
	}

	log.Info().Int("captured", store.Len()).Msg("Mail sink exited")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
