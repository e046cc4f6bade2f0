// Package embedding builds the configured domain.Embedder.
package embedding

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"pdfrag/internal/config"
	"pdfrag/internal/domain"
	"pdfrag/internal/embedding/gemini"
	"pdfrag/internal/embedding/openai"
	"pdfrag/internal/embedding/tfidf"
)

// New returns the embedder selected by cfg.Type. Missing keys are reported
// when the embedder is first used, not here.
func New(cfg config.EmbedderConfig, logger *zap.Logger) (domain.Embedder, error) {
	switch cfg.Type {
	case "openai":
		return openai.NewClient(openai.Config{
			BaseURL:           cfg.BaseURL,
			APIKey:            cfg.APIKey(),
			Model:             cfg.Model,
			Dimensions:        cfg.Dimensions,
			Timeout:           time.Duration(cfg.TimeoutSecs) * time.Second,
			RequestsPerSecond: cfg.RequestsPerSecond,
			MaxRetries:        cfg.MaxRetries,
		}, logger), nil
	case "gemini":
		return gemini.NewEmbedder(gemini.Config{
			APIKey:     cfg.APIKey(),
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		}, logger), nil
	case "tfidf":
		return tfidf.NewEmbedder(), nil
	default:
		return nil, fmt.Errorf("%w: unknown embedder type %q", domain.ErrModelInit, cfg.Type)
	}
}
