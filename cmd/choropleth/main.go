package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"choropleth/internal/config"
	"choropleth/internal/fetchers"
	"choropleth/internal/logger"
	"choropleth/internal/metrics"
	"choropleth/internal/mocks"
	"choropleth/internal/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// app bundles the server with whatever has to be shut down alongside it
type app struct {
	server   *server.Server
	upstream *mocks.Upstream

	closeOnce sync.Once
	closeErr  error
}

// newApp wires the plot view server from cfg. In mockup mode the plot source
// is an in-process upstream serving the sample choropleth.
func newApp(cfg *config.Config, reg *prometheus.Registry) *app {
	a := &app{}

	if cfg.MockupMode {
		a.upstream = mocks.NewUpstream(mocks.ServePayload)
		cfg.PlotSourceURL = a.upstream.PlotURL()
		logger.Info("Mockup mode enabled", logger.Fields{"plot_source_url": cfg.PlotSourceURL})
	}

	m := metrics.New(reg)
	source := fetchers.NewPayloadFetcher(cfg.FetchTimeout)
	a.server = server.NewServer(cfg, source, m, reg)
	return a
}

func (a *app) Close() error {
	a.closeOnce.Do(func() {
		a.closeErr = a.server.Close()
		if a.upstream != nil {
			a.upstream.Close()
		}
	})
	return a.closeErr
}

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}
	if err := logger.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
		logger.Fatal("Invalid logging configuration", err)
	}

	logger.Info("Starting choropleth viewer", logger.Fields{
		"port":            cfg.Port,
		"environment":     cfg.Environment,
		"version":         config.GetVersion(),
		"plot_source_url": cfg.PlotSourceURL,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	application := newApp(cfg, reg)
	defer application.Close()

	// Update streams stay open until the chart loads, so there is no write timeout
	httpServer := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     application.server.SetupRoutes(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Infof("Server listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")

	// Unmount views first so their update streams return and Shutdown can finish
	if err := application.Close(); err != nil {
		logger.Error("Failed to close views", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", err)
	}

	logger.Info("Server stopped")
}
