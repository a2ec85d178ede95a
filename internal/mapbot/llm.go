package mapbot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"choropleth/internal/logger"

	"github.com/sashabaranov/go-openai"
)

const systemPrompt = `You translate questions about country statistics into a JSON object with the keys
"indicator" (either "GDP" or "Population"), "country" (one of India, China, USA, Germany)
and "year" (an integer). Answer with the JSON object only.`

// LLMInterpreter asks an OpenAI chat model to interpret the query. Whatever
// the model leaves out or gets wrong is taken from the keyword rules.
type LLMInterpreter struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	log     *logger.Logger
}

// NewLLMInterpreter creates an interpreter using the OpenAI API
func NewLLMInterpreter(apiKey, model string) *LLMInterpreter {
	return NewLLMInterpreterWithConfig(openai.DefaultConfig(apiKey), model)
}

// NewLLMInterpreterWithConfig creates an interpreter from a client config,
// which lets the API base URL be replaced.
func NewLLMInterpreterWithConfig(cfg openai.ClientConfig, model string) *LLMInterpreter {
	return &LLMInterpreter{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: 30 * time.Second,
		log:     logger.Component("mapbot"),
	}
}

// Interpret implements Interpreter. It never fails: API errors fall back to
// the keyword rules.
func (i *LLMInterpreter) Interpret(ctx context.Context, query string) (MapRequest, error) {
	fallback := ParseQuery(query)

	parsed, err := i.complete(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return MapRequest{}, ctx.Err()
		}
		i.log.Warn("Falling back to keyword parsing", logger.Fields{"error": err.Error()})
		return fallback, nil
	}

	req := fallback
	if parsed.Indicator == IndicatorGDP || parsed.Indicator == IndicatorPopulation {
		req.Indicator = parsed.Indicator
	}
	if knownCountry(parsed.Country) {
		req.Country = parsed.Country
	}
	if parsed.Year > 0 {
		req.Year = parsed.Year
	}

	i.log.Debug("Interpreted query", logger.Fields{
		"indicator": req.Indicator,
		"country":   req.Country,
		"year":      req.Year,
	})
	return req, nil
}

func (i *LLMInterpreter) complete(ctx context.Context, query string) (MapRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	resp, err := i.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: i.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
	})
	if err != nil {
		return MapRequest{}, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return MapRequest{}, fmt.Errorf("no response from OpenAI")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	var req MapRequest
	if err := json.Unmarshal([]byte(content), &req); err != nil {
		return MapRequest{}, fmt.Errorf("failed to parse model answer: %w", err)
	}
	return req, nil
}
