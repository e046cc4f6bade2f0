// Package generator produces the final answer from retrieved chunks.
package generator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"pdfrag/internal/domain"
	"pdfrag/internal/prompt"
)

const (
	// NoContextFallback replaces the context when nothing was retrieved.
	NoContextFallback = "No specific context found."
	// NoContextWarning is reported alongside an answer generated without context.
	NoContextWarning = "No context provided for generation. LLM may answer from general knowledge."

	contextSeparator = "\n\n"
)

// Output is a generated answer plus any non-fatal warnings.
type Output struct {
	Text     string
	Warnings []string
}

type Generator struct {
	model       domain.ChatModel
	template    prompt.Template
	temperature float64
	maxTokens   int
	logger      *zap.Logger
}

type Options struct {
	Temperature float64
	MaxTokens   int
	Logger      *zap.Logger
}

func New(model domain.ChatModel, template prompt.Template, opts Options) *Generator {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Generator{
		model:       model,
		template:    template,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		logger:      opts.Logger,
	}
}

// BuildContext joins chunk texts in retrieval order, or returns the
// fallback when there are none.
func BuildContext(results []domain.SearchResult) string {
	if len(results) == 0 {
		return NoContextFallback
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Chunk.Text
	}
	return strings.Join(parts, contextSeparator)
}

// Generate fills the template with question and context and returns the
// model's reply verbatim.
func (g *Generator) Generate(ctx context.Context, question string, results []domain.SearchResult) (Output, error) {
	g.logger.Info("generate", zap.String("question", question), zap.Int("context_chunks", len(results)))

	var out Output
	if len(results) == 0 {
		g.logger.Warn(NoContextWarning)
		out.Warnings = append(out.Warnings, NoContextWarning)
	}

	text, err := g.model.Complete(ctx, g.template.Messages(question, BuildContext(results)), domain.CompletionOptions{
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return Output{}, fmt.Errorf("generate answer: %w", err)
	}
	out.Text = text
	return out, nil
}
