package openai

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"pdfrag/internal/domain"
	"pdfrag/internal/httpclient"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-large"
)

// Client is an OpenAI-compatible embeddings client implementing domain.Embedder.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int

	http *httpclient.Client

	mu        sync.RWMutex
	dimension int
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL           string
	APIKey            string
	Model             string
	Dimensions        int
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxRetries        int
}

// NewClient creates an embeddings client. A missing API key is not an error
// here; Embed reports domain.ErrMissingAPIKey instead.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		http: httpclient.New(httpclient.Options{
			Timeout:           cfg.Timeout,
			MaxRetries:        cfg.MaxRetries,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}, logger),
	}
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Prepare is not required for remote embedding. The dimension is set on first embed.
func (c *Client) Prepare(corpus []string) error { return nil }

// Dimension returns the dimensionality of the produced embedding vectors,
// or 0 before the first successful call.
func (c *Client) Dimension() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dimension
}

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	// Ollama-native shape for single inputs.
	Embedding []float32 `json:"embedding"`
}

// EmbedBatch embeds texts in one request and returns vectors in input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("openai embeddings: %w", domain.ErrMissingAPIKey)
	}

	var resp embeddingResponse
	err := c.http.PostJSON(ctx, c.baseURL+"/embeddings",
		map[string]string{"Authorization": "Bearer " + c.apiKey},
		embeddingRequest{Model: c.model, Input: texts, Dimensions: c.dimensions},
		&resp)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}

	vectors, err := resp.vectors(len(texts))
	if err != nil {
		return nil, err
	}
	if err := c.observe(vectors); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (r embeddingResponse) vectors(n int) ([][]float32, error) {
	if len(r.Data) == 0 && len(r.Embedding) > 0 && n == 1 {
		return [][]float32{r.Embedding}, nil
	}
	if len(r.Data) != n {
		return nil, fmt.Errorf("%w: requested %d embeddings, got %d", domain.ErrEmbeddingMismatch, n, len(r.Data))
	}
	data := r.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := make([][]float32, n)
	for i, d := range data {
		if len(d.Embedding) == 0 {
			return nil, errors.New("no embedding returned")
		}
		out[i] = d.Embedding
	}
	return out, nil
}

func (c *Client) observe(vectors [][]float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range vectors {
		if c.dimension == 0 {
			c.dimension = len(v)
		}
		if len(v) != c.dimension {
			return fmt.Errorf("%w: dimension %d, expected %d", domain.ErrEmbeddingMismatch, len(v), c.dimension)
		}
	}
	return nil
}
