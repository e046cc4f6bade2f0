// Package llm builds the configured domain.ChatModel.
package llm

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"pdfrag/internal/config"
	"pdfrag/internal/domain"
	"pdfrag/internal/llm/claude"
	"pdfrag/internal/llm/gemini"
	"pdfrag/internal/llm/openai"
)

// New returns the chat model selected by cfg.Provider.
func New(cfg config.LLMConfig, logger *zap.Logger) (domain.ChatModel, error) {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	switch cfg.Provider {
	case "openai":
		return openai.NewChat(openai.Config{
			BaseURL:           cfg.BaseURL,
			APIKey:            cfg.APIKey(),
			Model:             cfg.Model,
			Timeout:           timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			MaxRetries:        cfg.MaxRetries,
		}, logger), nil
	case "gemini":
		return gemini.NewChat(gemini.Config{
			APIKey:  cfg.APIKey(),
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		}, logger), nil
	case "anthropic":
		return claude.NewChat(claude.Config{
			APIKey:     cfg.APIKey(),
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Timeout:    timeout,
			MaxRetries: cfg.MaxRetries,
		}, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", domain.ErrModelInit, cfg.Provider)
	}
}
