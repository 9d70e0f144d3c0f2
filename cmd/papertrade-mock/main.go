package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobmcallan/papertrade/internal/common"
	"github.com/bobmcallan/papertrade/internal/mockbackend"
)

func main() {
	addr := flag.String("addr", envOr("PAPERTRADE_MOCK_ADDR", "127.0.0.1:8000"), "listen address")
	logLevel := flag.String("log-level", "", "log level override")
	flag.Parse()

	config, err := common.LoadConfig(os.Getenv("PAPERTRADE_CONFIG"), "papertrade.toml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "papertrade-mock: %v\n", err)
		os.Exit(1)
	}
	level := config.Logging.Level
	if *logLevel != "" {
		level = *logLevel
	}

	logger := common.NewLoggerWithFormat(level, config.Logging.Format)
	common.PrintBanner(config, logger)
	backend := mockbackend.NewServer(mockbackend.WithLogger(logger))

	srv := &http.Server{
		Addr:         *addr,
		Handler:      backend,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", *addr).Msg("Starting mock backend")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Mock backend failed")
		}
	}()

	logger.Info().
		Str("url", fmt.Sprintf("http://%s", *addr)).
		Str("seed_account", mockbackend.SeedEmail).
		Msg("Mock backend ready")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Mock backend shutdown failed")
	}

	common.PrintShutdownBanner(logger)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
