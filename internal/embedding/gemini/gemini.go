// Package gemini embeds text with the Gemini embedding API.
package gemini

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"pdfrag/internal/domain"
)

const DefaultModel = "gemini-embedding-001"

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

// Embedder implements domain.Embedder on top of genai. The client is created
// on first use so a missing key only fails the call that needs it.
type Embedder struct {
	cfg    Config
	logger *zap.Logger

	mu        sync.Mutex
	client    *genai.Client
	dimension int
}

func NewEmbedder(cfg Config, logger *zap.Logger) *Embedder {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{cfg: cfg, logger: logger}
}

func (e *Embedder) Name() string { return "gemini" }

func (e *Embedder) Prepare(corpus []string) error { return nil }

func (e *Embedder) Dimension() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dimension
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in a single EmbedContent call.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	client, err := e.getClient(ctx)
	if err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}
	cfg := &genai.EmbedContentConfig{}
	if e.cfg.Dimensions > 0 {
		dim := int32(e.cfg.Dimensions)
		cfg.OutputDimensionality = &dim
	}

	result, err := client.Models.EmbedContent(ctx, e.cfg.Model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini embeddings: %w", err)
	}
	if result == nil || len(result.Embeddings) != len(texts) {
		got := 0
		if result != nil {
			got = len(result.Embeddings)
		}
		return nil, fmt.Errorf("%w: requested %d embeddings, got %d", domain.ErrEmbeddingMismatch, len(texts), got)
	}

	out := make([][]float32, len(texts))
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, emb := range result.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at %d", domain.ErrEmbeddingMismatch, i)
		}
		if e.dimension == 0 {
			e.dimension = len(emb.Values)
		}
		if len(emb.Values) != e.dimension {
			return nil, fmt.Errorf("%w: dimension %d, expected %d", domain.ErrEmbeddingMismatch, len(emb.Values), e.dimension)
		}
		out[i] = emb.Values
	}
	return out, nil
}

func (e *Embedder) getClient(ctx context.Context) (*genai.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		return e.client, nil
	}
	if e.cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini embeddings: %w", domain.ErrMissingAPIKey)
	}
	cc := &genai.ClientConfig{
		APIKey:  e.cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if e.cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: e.cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini client: %v", domain.ErrModelInit, err)
	}
	e.logger.Debug("gemini embedding client created", zap.String("model", e.cfg.Model))
	e.client = client
	return client, nil
}
