package main

import (
	"context"
	"os"

	"choropleth/internal/config"
	"choropleth/internal/logger"
	"choropleth/internal/mapbot"
	"choropleth/internal/mocks"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}
	// The terminal belongs to the conversation; keep routine logs out of it
	if os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = "error"
	}
	if err := logger.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
		logger.Fatal("Invalid logging configuration", err)
	}

	if cfg.MockupMode {
		upstream := mocks.NewUpstream(mocks.ServePayload)
		defer upstream.Close()
		cfg.MapbotURL = upstream.MapURL()
	}

	var interpreter mapbot.Interpreter = mapbot.KeywordInterpreter{}
	if cfg.OpenAIAPIKey != "" {
		interpreter = mapbot.NewLLMInterpreter(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}

	bot := &mapbot.Bot{
		Interpreter: interpreter,
		Client:      mapbot.NewClient(cfg.MapbotURL, cfg.FetchTimeout),
	}
	if err := bot.Run(ctx, os.Stdin, os.Stdout); err != nil {
		logger.Error("Mapbot stopped", err)
	}
}
