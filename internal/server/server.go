package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"choropleth/internal/config"
	"choropleth/internal/logger"
	"choropleth/internal/metrics"
	"choropleth/internal/plotview"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves the choropleth page and owns the views it mounts
type Server struct {
	Config  *config.Config
	Source  plotview.PayloadSource
	Metrics *metrics.Metrics

	gatherer prometheus.Gatherer
	views    *viewRegistry
	log      *logger.Logger

	// baseCtx parents every view fetch; Close cancels it
	baseCtx   context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	reaperWG  sync.WaitGroup
}

// NewServer creates a new server instance. gatherer backs /metrics and may be
// nil to disable the endpoint.
func NewServer(cfg *config.Config, source plotview.PayloadSource, m *metrics.Metrics, gatherer prometheus.Gatherer) *Server {
	if m == nil {
		m = metrics.New(nil)
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		Config:   cfg,
		Source:   source,
		Metrics:  m,
		gatherer: gatherer,
		views:    newViewRegistry(cfg.ViewTTL),
		log:      logger.Component("server"),
		baseCtx:  ctx,
		cancel:   cancel,
	}

	s.reaperWG.Add(1)
	go s.reapExpiredViews()

	return s
}

// SetupRoutes configures HTTP routes for the server
func (s *Server) SetupRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.HandleRoot)
	r.Get("/views/{id}/updates", s.HandleUpdates)
	r.Get("/health", s.HandleHealth)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

// newView builds a view for one page request
func (s *Server) newView(id string) *plotview.View {
	return plotview.New(id, s.Source, plotview.Options{
		SourceURL:         s.Config.PlotSourceURL,
		Title:             s.Config.PageTitle,
		Placeholder:       s.Config.PlaceholderText,
		PlotlyScriptURL:   s.Config.PlotlyScriptURL,
		DatastarScriptURL: s.Config.DatastarScriptURL,
		UpdatesPath:       fmt.Sprintf("/views/%s/updates", id),
		Logger:            logger.Component("plotview"),
		Metrics:           s.Metrics,
	})
}

// releaseView unmounts a view and forgets it
func (s *Server) releaseView(id string) {
	if view := s.views.remove(id); view != nil {
		view.Unmount()
	}
}

// reapExpiredViews unmounts views whose page never subscribed for updates
func (s *Server) reapExpiredViews() {
	defer s.reaperWG.Done()

	interval := s.Config.ViewTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.baseCtx.Done():
			return
		case <-ticker.C:
			for _, view := range s.views.expired() {
				s.log.Debug("Unmounting unattached view", logger.Fields{"view": view.ID()})
				view.Unmount()
			}
		}
	}
}

// requestLogger records every request in the logs and the HTTP metrics
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		s.Metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		s.Metrics.HTTPDuration.WithLabelValues(r.Method, route).Observe(duration.Seconds())
		s.log.Debug("http", logger.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"route":      route,
			"status":     status,
			"duration":   duration.String(),
			"request_id": middleware.GetReqID(r.Context()),
		})
	})
}

// ActiveViews returns the number of views currently held by the server
func (s *Server) ActiveViews() int {
	return s.views.count()
}

// Close unmounts every view and stops background work
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.reaperWG.Wait()
		for _, view := range s.views.drain() {
			view.Unmount()
		}
	})
	return nil
}
