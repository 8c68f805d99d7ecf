package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dialbridge/dialbridge/internal/api"
	"github.com/dialbridge/dialbridge/internal/config"
	"github.com/dialbridge/dialbridge/internal/connection"
	"github.com/dialbridge/dialbridge/internal/dialout"
	"github.com/dialbridge/dialbridge/internal/livekit"
	"github.com/dialbridge/dialbridge/internal/metrics"
	"github.com/dialbridge/dialbridge/internal/teardown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Configure structured logging.
	logger := slog.New(cfg.SlogHandler(os.Stdout))
	slog.SetDefault(logger)

	slog.Info("starting dialbridge",
		"http_port", cfg.HTTPPort,
		"media_server", cfg.LiveKitURL,
		"trunk_configured", cfg.SIPTrunkID != "",
	)

	// Provider clients share one Twirp transport and token minter.
	minter := livekit.NewTokenMinter(cfg.APIKey, cfg.APISecret)
	client := livekit.NewClient(cfg.LiveKitURL, minter)
	rooms := livekit.NewRoomClient(client)
	sip := livekit.NewSIPClient(client)

	dialer := dialout.NewCoordinator(sip, cfg, logger)
	issuer := connection.NewIssuer(cfg, minter, dialer, logger)
	cleaner := teardown.New(rooms, logger)

	m := metrics.New()
	handler := api.NewServer(issuer, cleaner, m, cfg, logger)
	defer handler.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 3 * time.Minute, // dial-out can wait for the callee to answer
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		slog.Error("http server error", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutting down server")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("http server shutdown error", "error", err)
		os.Exit(1)
	}

	slog.Info("dialbridge stopped")
}
