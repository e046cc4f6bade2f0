// Package retriever runs the similarity search for a structured query.
package retriever

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pdfrag/internal/domain"
)

// Mode decides how the query's section affects retrieval.
type Mode string

const (
	// ModeIgnore searches the whole index; the section is only logged.
	ModeIgnore Mode = "ignore"
	// ModeFilter keeps only results tagged with the query's section.
	ModeFilter Mode = "filter"
)

// ParseMode maps a config value to a Mode; empty means ModeIgnore.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeIgnore:
		return ModeIgnore, nil
	case ModeFilter:
		return ModeFilter, nil
	default:
		return "", fmt.Errorf("unknown section mode %q", s)
	}
}

type Retriever struct {
	index  domain.VectorIndex
	k      int
	mode   Mode
	logger *zap.Logger
}

func New(index domain.VectorIndex, k int, mode Mode, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mode == "" {
		mode = ModeIgnore
	}
	return &Retriever{index: index, k: k, mode: mode, logger: logger}
}

// Retrieve returns up to k chunks for sq.Query, best first.
func (r *Retriever) Retrieve(ctx context.Context, sq domain.StructuredQuery) ([]domain.SearchResult, error) {
	r.logger.Info("retrieve", zap.String("query", sq.Query), zap.String("section", string(sq.Section)))

	var (
		results []domain.SearchResult
		err     error
	)
	switch r.mode {
	case ModeFilter:
		results, err = r.filtered(ctx, sq)
	default:
		results, err = r.index.Search(ctx, sq.Query, r.k)
	}
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	r.logger.Info("retrieved documents",
		zap.Int("documents", len(results)),
		zap.String("section", string(sq.Section)))
	return results, nil
}

func (r *Retriever) filtered(ctx context.Context, sq domain.StructuredQuery) ([]domain.SearchResult, error) {
	all, err := r.index.Search(ctx, sq.Query, r.index.Len())
	if err != nil {
		return nil, err
	}
	k := r.k
	if k <= 0 {
		k = len(all)
	}
	out := make([]domain.SearchResult, 0, k)
	for _, res := range all {
		if res.Chunk.Section() != sq.Section {
			continue
		}
		out = append(out, res)
		if len(out) == k {
			break
		}
	}
	return out, nil
}
