package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/evanofslack/cf-ddns/internal/config"
	"github.com/evanofslack/cf-ddns/internal/credential"
	"github.com/evanofslack/cf-ddns/internal/logger"
	"github.com/evanofslack/cf-ddns/internal/metrics"
	"github.com/evanofslack/cf-ddns/internal/provider/cloudflare"
	"github.com/evanofslack/cf-ddns/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.StringP("config", "c", "config.yaml", "path to the YAML config file")
	listen := pflag.String("listen", "", "address for the update endpoint (overrides config)")
	metricsListen := pflag.String("metrics-listen", "", "address for /metrics and /health (overrides config)")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if pflag.CommandLine.Changed("listen") {
		cfg.Listen = *listen
	}
	if pflag.CommandLine.Changed("metrics-listen") {
		cfg.MetricsListen = *metricsListen
	}

	logger.Configure(cfg.Log.Level, cfg.Log.Env)
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid config", "error", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("Service failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	metrics := metrics.New(true)

	store, err := credential.Open(cfg.Credentials, metrics)
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}
	defer store.Close()

	zone, err := cloudflare.New(cfg.DNS, metrics)
	if err != nil {
		return fmt.Errorf("initialize DNS provider: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(cfg, store, zone, metrics)

	servers := []*http.Server{
		{
			Addr:              cfg.Listen,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		server.NewMetricsServer(cfg.MetricsListen, metrics),
	}

	errCh := make(chan error, len(servers))
	wg := &sync.WaitGroup{}
	for _, s := range servers {
		wg.Add(1)
		go func(s *http.Server) {
			defer wg.Done()
			slog.Info("Starting http server", "address", s.Addr)
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("listen on %s: %w", s.Addr, err)
			}
		}(s)
	}

	slog.Info("Starting ddns service", "zone_id", zone.ZoneID(), "suffix", cfg.DNS.DomainSuffix, "backend", cfg.Credentials.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case runErr = <-errCh:
	}

	// In-flight updates finish their provider calls before the listener closes.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.UpdateTimeout+5*time.Second)
	defer cancel()
	for _, s := range servers {
		if err := s.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "address", s.Addr, "error", err)
		}
	}

	wg.Wait()
	slog.Info("Service shutdown complete")
	return runErr
}
