package fetchers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"choropleth/internal/logger"
	"choropleth/internal/models"

	"github.com/go-resty/resty/v2"
)

// ErrFetchFailed is the single failure kind of the plot source: network
// errors, non-success statuses and unparsable bodies all wrap it.
var ErrFetchFailed = errors.New("fetch failed")

// NewClient creates the resty client shared by the fetchers. Requests are
// never retried; a zero timeout leaves the client without one.
func NewClient(timeout time.Duration) *resty.Client {
	client := resty.New()
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	client.SetRetryCount(0)
	return client
}

// PayloadFetcher fetches plot payloads from the plot source
type PayloadFetcher struct {
	client *resty.Client
	log    *logger.Logger
}

// NewPayloadFetcher creates a new payload fetcher instance
func NewPayloadFetcher(timeout time.Duration) *PayloadFetcher {
	return NewPayloadFetcherWithClient(NewClient(timeout))
}

// NewPayloadFetcherWithClient creates a payload fetcher around an existing client
func NewPayloadFetcherWithClient(client *resty.Client) *PayloadFetcher {
	return &PayloadFetcher{
		client: client,
		log:    logger.Component("fetchers"),
	}
}

// FetchPayload issues one GET to url, without parameters, extra headers or a
// body, and decodes the response as a plot payload. Context cancellation is
// returned as the context error rather than ErrFetchFailed.
func (f *PayloadFetcher) FetchPayload(ctx context.Context, url string) (*models.PlotPayload, error) {
	start := time.Now()

	resp, err := f.client.R().
		SetContext(ctx).
		Get(url)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("plot payload fetch abandoned: %w", ctxErr)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch plot payload: %v", ErrFetchFailed, err)
	}

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: plot source returned status %d", ErrFetchFailed, resp.StatusCode())
	}

	payload, err := models.DecodePayload(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	f.log.Debug("Fetched plot payload", logger.Fields{
		"url":      url,
		"status":   resp.StatusCode(),
		"bytes":    len(resp.Body()),
		"traces":   payload.TraceCount(),
		"duration": time.Since(start).String(),
	})

	return payload, nil
}
