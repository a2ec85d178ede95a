package mocks

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"choropleth/internal/models"
)

func TestSamplePayloadDecodes(t *testing.T) {
	payload, err := models.DecodePayload(SamplePayload())
	if err != nil {
		t.Fatalf("Sample payload does not decode: %v", err)
	}
	if payload.TraceCount() != 1 {
		t.Errorf("Expected 1 trace, got %d", payload.TraceCount())
	}
	if payload.Data[0]["type"] != "choropleth" {
		t.Errorf("Expected choropleth trace, got %v", payload.Data[0]["type"])
	}
}

func TestUpstreamModes(t *testing.T) {
	upstream := NewUpstream(ServePayload)
	defer upstream.Close()

	resp, err := http.Get(upstream.PlotURL())
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}

	upstream.SetMode(ServeServerError)
	resp, err = http.Get(upstream.PlotURL())
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", resp.StatusCode)
	}

	if upstream.Hits() != 2 {
		t.Errorf("Expected 2 hits, got %d", upstream.Hits())
	}
}

func TestGenerateMap(t *testing.T) {
	upstream := NewUpstream(ServePayload)
	defer upstream.Close()

	body, _ := json.Marshal(map[string]any{"indicator": "GDP", "country": "USA", "year": 2022})
	resp, err := http.Post(upstream.MapURL(), "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()

	var out struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(out.Data) != 1 {
		t.Fatalf("Expected 1 trace, got %d", len(out.Data))
	}
	values, ok, err := models.DecodeTypedArray(out.Data[0]["z"])
	if err != nil || !ok {
		t.Fatalf("Expected typed array z, ok=%v err=%v", ok, err)
	}
	if values[0] != 63000 {
		t.Errorf("Expected 63000, got %v", values[0])
	}
}

func TestClosedURLRefusesConnections(t *testing.T) {
	if _, err := http.Get(ClosedURL()); err == nil {
		t.Error("Expected connection error")
	}
}
