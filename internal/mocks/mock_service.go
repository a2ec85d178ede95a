package mocks

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"

	_ "embed"

	"github.com/go-chi/chi/v5"
)

//go:embed data/choropleth.json
var samplePayload []byte

// SamplePayload returns the GDP per capita choropleth served by the mock upstream
func SamplePayload() []byte {
	out := make([]byte, len(samplePayload))
	copy(out, samplePayload)
	return out
}

// Mode selects how the mock upstream answers the plot endpoint
type Mode int32

const (
	// ServePayload answers with the sample payload
	ServePayload Mode = iota
	// ServeMalformed answers 200 with a body that is not JSON
	ServeMalformed
	// ServeServerError answers 500
	ServeServerError
	// ServeHang holds the request until the client gives up or Release is called
	ServeHang
)

// indicator values per country, matching the sample backend
var indicatorValues = map[string]map[string]float64{
	"GDP":        {"India": 2100, "China": 10500, "USA": 63000, "Germany": 45000},
	"Population": {"India": 1417, "China": 1412, "USA": 333, "Germany": 84},
}

// Upstream is an in-process stand-in for the plot source. It serves
// /choropleth and the mapbot's /generate_map endpoint.
type Upstream struct {
	server      *httptest.Server
	mode        atomic.Int32
	hits        atomic.Int64
	release     chan struct{}
	releaseOnce sync.Once
}

// NewUpstream starts a mock upstream answering in the given mode
func NewUpstream(mode Mode) *Upstream {
	u := &Upstream{release: make(chan struct{})}
	u.mode.Store(int32(mode))

	r := chi.NewRouter()
	r.Get("/choropleth", u.handleChoropleth)
	r.Post("/generate_map", u.handleGenerateMap)

	u.server = httptest.NewServer(r)
	return u
}

// URL returns the base URL of the upstream
func (u *Upstream) URL() string {
	return u.server.URL
}

// PlotURL returns the address of the plot endpoint
func (u *Upstream) PlotURL() string {
	return u.server.URL + "/choropleth"
}

// MapURL returns the address of the mapbot endpoint
func (u *Upstream) MapURL() string {
	return u.server.URL + "/generate_map"
}

// SetMode changes how subsequent plot requests are answered
func (u *Upstream) SetMode(mode Mode) {
	u.mode.Store(int32(mode))
}

// Hits returns how many plot requests the upstream received
func (u *Upstream) Hits() int64 {
	return u.hits.Load()
}

// Release unblocks requests held in ServeHang mode
func (u *Upstream) Release() {
	u.releaseOnce.Do(func() { close(u.release) })
}

// Close releases held requests and shuts the upstream down
func (u *Upstream) Close() {
	u.Release()
	u.server.Close()
}

func (u *Upstream) handleChoropleth(w http.ResponseWriter, r *http.Request) {
	u.hits.Add(1)

	switch Mode(u.mode.Load()) {
	case ServeMalformed:
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": [{"type": "choropleth", "z": [1,2,`))
	case ServeServerError:
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	case ServeHang:
		select {
		case <-r.Context().Done():
			return
		case <-u.release:
		}
		writeJSON(w, samplePayload)
	default:
		writeJSON(w, samplePayload)
	}
}

type mapRequest struct {
	Indicator string `json:"indicator"`
	Country   string `json:"country"`
	Year      int    `json:"year"`
}

func (u *Upstream) handleGenerateMap(w http.ResponseWriter, r *http.Request) {
	var req mapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	traces := []map[string]any{}
	if value, ok := indicatorValues[req.Indicator][req.Country]; ok {
		traces = append(traces, map[string]any{
			"type":         "choropleth",
			"locationmode": "country names",
			"locations":    []string{req.Country},
			"z":            float64TypedArray(value),
		})
	}

	body, err := json.Marshal(map[string]any{
		"data":   traces,
		"layout": map[string]any{"title": map[string]any{"text": req.Indicator}},
	})
	if err != nil {
		http.Error(w, "failed to encode map", http.StatusInternalServerError)
		return
	}
	writeJSON(w, body)
}

// float64TypedArray encodes values the way plotly.py serializes numpy arrays
func float64TypedArray(values ...float64) map[string]any {
	raw := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(raw[i*8:], math.Float64bits(v))
	}
	return map[string]any{
		"dtype": "f8",
		"bdata": base64.StdEncoding.EncodeToString(raw),
	}
}

func writeJSON(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// ClosedURL returns a plot address on which nothing listens any more, so
// requests to it fail with a connection error.
func ClosedURL() string {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL + "/choropleth"
	server.Close()
	return url
}
