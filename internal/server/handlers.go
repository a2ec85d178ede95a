package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"choropleth/internal/config"
	"choropleth/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"
	datastar "github.com/starfederation/datastar/sdk/go"
)

// plotRegionID is the element the update stream replaces on load
const plotRegionID = "plot-region"

// HandleRoot mounts a new plot view and serves its page
func (s *Server) HandleRoot(w http.ResponseWriter, r *http.Request) {
	id := xid.New().String()
	view := s.newView(id)
	view.Mount(s.baseCtx)
	s.views.add(view)

	var page bytes.Buffer
	if err := view.Render(&page); err != nil {
		s.log.Error("Failed to render page", err, logger.Fields{"view": id})
		s.releaseView(id)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(page.Bytes())
}

// HandleUpdates streams the Loading -> Loaded re-render of one view. The view
// lives as long as this stream; when the client goes away it is unmounted.
func (s *Server) HandleUpdates(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, ok := s.views.attach(id)
	if !ok {
		http.Error(w, "Unknown view", http.StatusNotFound)
		return
	}
	defer s.releaseView(id)

	sse := datastar.NewSSE(w, r)

	select {
	case <-view.Loaded():
	case <-r.Context().Done():
		return
	case <-s.baseCtx.Done():
		return
	}

	var region bytes.Buffer
	if err := view.RenderRegion(&region); err != nil {
		s.log.Error("Failed to render plot region", err, logger.Fields{"view": id})
		return
	}
	if err := sse.MergeFragments(region.String(), datastar.WithSelectorID(plotRegionID)); err != nil {
		s.log.Warn("Failed to push plot region", logger.Fields{"view": id, "error": err.Error()})
		return
	}

	script, err := view.PlotScript()
	if err != nil {
		s.log.Error("Failed to build plot script", err, logger.Fields{"view": id})
		return
	}
	if err := sse.ExecuteScript(script); err != nil {
		s.log.Warn("Failed to push plot script", logger.Fields{"view": id, "error": err.Error()})
	}
}

// HandleHealth provides health check endpoint
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   config.GetVersion(),
		"views":     s.views.count(),
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(health)
}
