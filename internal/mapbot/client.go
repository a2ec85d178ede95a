package mapbot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"choropleth/internal/fetchers"
	"choropleth/internal/logger"
	"choropleth/internal/models"

	"github.com/go-resty/resty/v2"
)

// ErrMapUnavailable is returned when the map endpoint does not answer 200
var ErrMapUnavailable = errors.New("failed to fetch map data")

// Answer is what the map endpoint said about one request
type Answer struct {
	Indicator string
	Country   string
	Year      int
	Value     string
	Found     bool
}

// String formats the answer the way the bot prints it
func (a Answer) String() string {
	if !a.Found {
		return "No data available for the given query."
	}
	return fmt.Sprintf("%s of %s in %d: %s", a.Indicator, a.Country, a.Year, a.Value)
}

// Client posts map requests to the map endpoint
type Client struct {
	client *resty.Client
	url    string
	log    *logger.Logger
}

// NewClient creates a client for the map endpoint at url
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		client: fetchers.NewClient(timeout),
		url:    url,
		log:    logger.Component("mapbot"),
	}
}

// Ask posts req and reads the first trace of the returned map
func (c *Client) Ask(ctx context.Context, req MapRequest) (*Answer, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(c.url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrMapUnavailable, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: map endpoint returned status %d", ErrMapUnavailable, resp.StatusCode())
	}

	payload, err := models.DecodePayload(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("failed to parse map data: %w", err)
	}

	c.log.Debug("Received map", logger.Fields{
		"indicator": req.Indicator,
		"country":   req.Country,
		"year":      req.Year,
		"traces":    payload.TraceCount(),
	})

	answer := &Answer{Indicator: req.Indicator, Year: req.Year}
	if len(payload.Data) == 0 {
		return answer, nil
	}

	trace := payload.Data[0]
	answer.Found = true
	answer.Country = firstLocation(trace)

	value, err := traceValue(trace)
	if err != nil {
		return nil, err
	}
	answer.Value = value
	return answer, nil
}

func firstLocation(trace models.Trace) string {
	locations, ok := trace["locations"].([]any)
	if !ok || len(locations) == 0 {
		return "Unknown"
	}
	if name, ok := locations[0].(string); ok {
		return name
	}
	return fmt.Sprint(locations[0])
}

// traceValue returns the first z value of a typed array, or z as sent
func traceValue(trace models.Trace) (string, error) {
	z, ok := trace["z"]
	if !ok {
		return "Unknown", nil
	}

	values, typed, err := models.DecodeTypedArray(z)
	if err != nil {
		return "", fmt.Errorf("failed to decode map value: %w", err)
	}
	if !typed {
		return fmt.Sprint(z), nil
	}
	if len(values) == 0 {
		return "Unknown", nil
	}
	return strconv.FormatFloat(values[0], 'f', -1, 64), nil
}
