package plotview

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"sync"
	"time"

	"choropleth/internal/config"
	"choropleth/internal/logger"
	"choropleth/internal/metrics"
	"choropleth/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// State is the lifecycle state of a plot view
type State int

const (
	// Loading is the initial state; it is also where a failed fetch leaves the view
	Loading State = iota
	// Loaded means the payload is present and the chart is rendered
	Loaded
)

// String returns the state name used in logs and metrics
func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// PayloadSource fetches the plot payload from the plot source
type PayloadSource interface {
	FetchPayload(ctx context.Context, url string) (*models.PlotPayload, error)
}

// Options configures a plot view. Zero values fall back to the defaults.
type Options struct {
	SourceURL         string
	Title             string
	Placeholder       string
	PlotlyScriptURL   string
	DatastarScriptURL string
	// UpdatesPath is where the page subscribes for the Loading -> Loaded
	// re-render. Empty disables the subscription.
	UpdatesPath string
	Logger      *logger.Logger
	Metrics     *metrics.Metrics
}

func (o Options) withDefaults() Options {
	if o.SourceURL == "" {
		o.SourceURL = config.DefaultPlotSourceURL
	}
	if o.Title == "" {
		o.Title = "Choropleth Map"
	}
	if o.Placeholder == "" {
		o.Placeholder = "Loading map..."
	}
	if o.Logger == nil {
		o.Logger = logger.Component("plotview")
	}
	return o
}

// View is one mounted choropleth page. It fetches its payload exactly once
// and renders the placeholder until the payload is present.
type View struct {
	id     string
	source PayloadSource
	opts   Options
	log    *logger.Logger

	mu        sync.RWMutex
	state     State
	payload   *models.PlotPayload
	mounted   bool
	unmounted bool
	cancel    context.CancelFunc

	loaded chan struct{}
	done   chan struct{}
}

// New creates a view that will fetch from source once mounted
func New(id string, source PayloadSource, opts Options) *View {
	opts = opts.withDefaults()
	return &View{
		id:     id,
		source: source,
		opts:   opts,
		log:    opts.Logger.With(logger.Fields{"view": id}),
		state:  Loading,
		loaded: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// ID returns the view identifier
func (v *View) ID() string {
	return v.id
}

// State returns the current state
func (v *View) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// Payload returns the loaded payload, or nil while loading
func (v *View) Payload() *models.PlotPayload {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.payload
}

// Loaded is closed when the view transitions to Loaded
func (v *View) Loaded() <-chan struct{} {
	return v.loaded
}

// Done is closed when the fetch task has finished, whatever the outcome.
// It never closes for a view that was not mounted.
func (v *View) Done() <-chan struct{} {
	return v.done
}

// Mount starts the single fetch of this view. Calls after the first one,
// and calls after Unmount, do nothing.
func (v *View) Mount(ctx context.Context) {
	v.mu.Lock()
	if v.mounted || v.unmounted {
		v.mu.Unlock()
		return
	}
	v.mounted = true
	fetchCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.mu.Unlock()

	if v.opts.Metrics != nil {
		v.opts.Metrics.ActiveViews.Inc()
	}
	v.log.Debug("Mounted plot view", logger.Fields{"url": v.opts.SourceURL})

	go v.fetch(fetchCtx)
}

// Unmount cancels an outstanding fetch and waits for it to finish. A response
// arriving after this point is discarded.
func (v *View) Unmount() {
	v.mu.Lock()
	if v.unmounted {
		v.mu.Unlock()
		return
	}
	v.unmounted = true
	wasMounted := v.mounted
	cancel := v.cancel
	v.mu.Unlock()

	if !wasMounted {
		return
	}
	cancel()
	<-v.done

	if v.opts.Metrics != nil {
		v.opts.Metrics.ActiveViews.Dec()
	}
	v.log.Debug("Unmounted plot view", logger.Fields{"state": v.State().String()})
}

func (v *View) fetch(ctx context.Context) {
	defer close(v.done)

	start := time.Now()
	payload, err := v.source.FetchPayload(ctx, v.opts.SourceURL)
	if v.opts.Metrics != nil {
		v.opts.Metrics.FetchDuration.Observe(time.Since(start).Seconds())
	}

	if ctx.Err() != nil {
		v.recordFetch(metrics.OutcomeCanceled)
		v.log.Debug("Discarded plot payload fetch after unmount", logger.Fields{"url": v.opts.SourceURL})
		return
	}
	if err != nil {
		v.recordFetch(metrics.OutcomeFailure)
		v.log.Error("Error fetching data", err, logger.Fields{"url": v.opts.SourceURL})
		return
	}
	if payload == nil {
		v.recordFetch(metrics.OutcomeFailure)
		v.log.Error("Error fetching data", fmt.Errorf("plot source returned no payload"), logger.Fields{"url": v.opts.SourceURL})
		return
	}

	if v.setPayload(payload) {
		v.recordFetch(metrics.OutcomeSuccess)
		v.log.Info("Plot payload loaded", logger.Fields{
			"traces":   payload.TraceCount(),
			"duration": time.Since(start).String(),
		})
	}
}

// setPayload performs the one Loading -> Loaded transition. It reports false
// when the view was torn down in the meantime.
func (v *View) setPayload(payload *models.PlotPayload) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.unmounted || v.state == Loaded {
		return false
	}
	v.payload = payload
	v.state = Loaded
	close(v.loaded)
	return true
}

func (v *View) recordFetch(outcome string) {
	if v.opts.Metrics != nil {
		v.opts.Metrics.Fetches.WithLabelValues(outcome).Inc()
	}
}

// pageData is what the templates see; it is built under the read lock so a
// render never observes a half-applied transition.
type pageData struct {
	Title             string
	Placeholder       string
	PlotlyScriptURL   string
	DatastarScriptURL string
	UpdatesPath       string
	PlotID            string
	Loaded            bool
	PlotScript        template.JS
}

func (v *View) snapshot() (pageData, error) {
	v.mu.RLock()
	state, payload := v.state, v.payload
	v.mu.RUnlock()

	data := pageData{
		Title:             v.opts.Title,
		Placeholder:       v.opts.Placeholder,
		PlotlyScriptURL:   v.opts.PlotlyScriptURL,
		DatastarScriptURL: v.opts.DatastarScriptURL,
		UpdatesPath:       v.opts.UpdatesPath,
		PlotID:            v.plotID(),
		Loaded:            state == Loaded,
	}
	if data.Loaded {
		script, err := plotScript(data.PlotID, payload)
		if err != nil {
			return pageData{}, err
		}
		data.PlotScript = template.JS(script)
	}

	if v.opts.Metrics != nil {
		v.opts.Metrics.Renders.WithLabelValues(state.String()).Inc()
	}
	return data, nil
}

func (v *View) plotID() string {
	return "plot-" + v.id
}

// Render writes the whole page: the title, the placeholder or chart
// container and, once loaded, the script that draws the chart.
func (v *View) Render(w io.Writer) error {
	data, err := v.snapshot()
	if err != nil {
		return err
	}
	if err := templates.ExecuteTemplate(w, "page", data); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	return nil
}

// RenderRegion writes only the part of the page that changes on load
func (v *View) RenderRegion(w io.Writer) error {
	data, err := v.snapshot()
	if err != nil {
		return err
	}
	if err := templates.ExecuteTemplate(w, "region", data); err != nil {
		return fmt.Errorf("failed to render region: %w", err)
	}
	return nil
}

// PlotScript returns the Plotly call that draws the loaded payload. It is
// empty while the view is loading.
func (v *View) PlotScript() (string, error) {
	payload := v.Payload()
	if payload == nil {
		return "", nil
	}
	return plotScript(v.plotID(), payload)
}

func plotScript(plotID string, payload *models.PlotPayload) (string, error) {
	id, err := json.Marshal(plotID)
	if err != nil {
		return "", fmt.Errorf("failed to encode plot id: %w", err)
	}
	data, err := payload.DataJSON()
	if err != nil {
		return "", fmt.Errorf("failed to encode plot data: %w", err)
	}
	layout, err := payload.LayoutJSON()
	if err != nil {
		return "", fmt.Errorf("failed to encode plot layout: %w", err)
	}
	return fmt.Sprintf("Plotly.newPlot(%s, %s, %s);", id, data, layout), nil
}
