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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/BioHazard786/Keydrop/backend/internal/config"
	"github.com/BioHazard786/Keydrop/backend/internal/logging"
	"github.com/BioHazard786/Keydrop/backend/internal/metrics"
	"github.com/BioHazard786/Keydrop/backend/internal/server"
	"github.com/BioHazard786/Keydrop/backend/internal/signaling"
	"github.com/BioHazard786/Keydrop/backend/internal/useragent"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	// Cancel on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	router := signaling.NewRouter(signaling.Config{
		KeepaliveInterval: cfg.KeepaliveInterval,
		KeepaliveTimeout:  cfg.KeepaliveTimeout,
		KeyRoomTTL:        cfg.KeyRoomTTL,
		TrustForwardedFor: cfg.TrustForwardedFor,
		ParseUserAgent:    useragent.Parse,
	}, logger, m)

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: server.NewMux(router, server.Options{
			Version:         version,
			MaxMessageBytes: cfg.MaxMessageBytes,
			SendQueueSize:   cfg.SendQueueSize,
			Logger:          logger,
			Metrics:         m,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("keydrop relay listening", "addr", cfg.Addr(), "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server crashed", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}
