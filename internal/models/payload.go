package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Trace is one plotly trace object. Its keys are defined by the charting
// library and the upstream server, not by this service.
type Trace map[string]any

// Layout is the plotly layout object describing chart presentation
type Layout map[string]any

// PlotPayload is the visualization configuration fetched from the plot source
// and handed to the renderer unchanged.
type PlotPayload struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// ErrNotObject is returned when the body is valid JSON but not a JSON object
var ErrNotObject = errors.New("payload is not a JSON object")

// DecodePayload parses a plot payload. Numbers are kept as json.Number so the
// values reach the renderer exactly as the server wrote them.
func DecodePayload(body []byte) (*PlotPayload, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("failed to parse payload: empty body")
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("failed to parse payload: invalid JSON")
	}
	if trimmed[0] != '{' {
		return nil, ErrNotObject
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var payload PlotPayload
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse payload: %w", err)
	}

	return &payload, nil
}

// DataJSON returns the traces encoded for the renderer. A missing data member
// is rendered as an empty list.
func (p *PlotPayload) DataJSON() ([]byte, error) {
	if p.Data == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p.Data)
}

// LayoutJSON returns the layout encoded for the renderer. A missing layout
// member is rendered as an empty object.
func (p *PlotPayload) LayoutJSON() ([]byte, error) {
	if p.Layout == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.Layout)
}

// TraceCount returns the number of traces in the payload
func (p *PlotPayload) TraceCount() int {
	if p == nil {
		return 0
	}
	return len(p.Data)
}
