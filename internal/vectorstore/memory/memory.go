package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"pdfrag/internal/domain"
)

const (
	DefaultTopK      = 4
	defaultBatchSize = 64
)

type Options struct {
	BatchSize int
	Logger    *zap.Logger
}

// Storage is an in-memory vector index using brute-force cosine similarity.
// It is populated once by InsertAll and is read-only afterwards.
type Storage struct {
	embedder  domain.Embedder
	batchSize int
	logger    *zap.Logger

	mu        sync.RWMutex
	built     bool
	dimension int
	vectors   [][]float32
	norms     []float64
	chunks    []domain.Chunk
}

func NewStorage(embedder domain.Embedder, opts Options) *Storage {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Storage{embedder: embedder, batchSize: opts.BatchSize, logger: opts.Logger}
}

// InsertAll embeds every chunk and stores it in input order. It may be
// called once; an empty input still seals the index.
func (s *Storage) InsertAll(ctx context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.built {
		return domain.ErrIndexBuilt
	}

	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += s.batchSize {
		end := min(start+s.batchSize, len(chunks))
		texts := make([]string, end-start)
		for i, c := range chunks[start:end] {
			texts[i] = c.Text
		}
		batch, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(batch) != len(texts) {
			return fmt.Errorf("%w: requested %d embeddings, got %d", domain.ErrEmbeddingMismatch, len(texts), len(batch))
		}
		vectors = append(vectors, batch...)
		s.logger.Debug("embedded batch", zap.Int("from", start), zap.Int("to", end))
	}

	dim := 0
	norms := make([]float64, len(vectors))
	for i, v := range vectors {
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has dimension %d, expected %d", domain.ErrEmbeddingMismatch, i, len(v), dim)
		}
		norms[i] = norm(v)
	}
	if want := s.embedder.Dimension(); dim > 0 && want > 0 && want != dim {
		return fmt.Errorf("%w: embedder %s reports dimension %d, vectors have %d",
			domain.ErrEmbeddingMismatch, s.embedder.Name(), want, dim)
	}

	s.chunks = append([]domain.Chunk(nil), chunks...)
	s.vectors = vectors
	s.norms = norms
	s.dimension = dim
	s.built = true
	s.logger.Info("vector index built", zap.Int("chunks", len(chunks)), zap.Int("dimension", dim))
	return nil
}

// Search embeds query and returns the k most similar chunks, best first.
// Equal scores keep insertion order. A k <= 0 selects DefaultTopK; fewer
// than k entries returns them all; an empty index returns no results
// without calling the embedder.
func (s *Storage) Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	s.mu.RLock()
	empty := len(s.vectors) == 0
	dim := s.dimension
	s.mu.RUnlock()
	if empty {
		return []domain.SearchResult{}, nil
	}

	q, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(q) != dim {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d", domain.ErrEmbeddingMismatch, len(q), dim)
	}
	qn := norm(q)

	s.mu.RLock()
	defer s.mu.RUnlock()
	idxs := make([]int, len(s.vectors))
	scores := make([]float64, len(s.vectors))
	for i, v := range s.vectors {
		idxs[i] = i
		scores[i] = cosine(v, s.norms[i], q, qn)
	}
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })

	k = min(k, len(idxs))
	results := make([]domain.SearchResult, k)
	for i, j := range idxs[:k] {
		results[i] = domain.SearchResult{Chunk: s.chunks[j], Score: scores[j]}
	}
	return results, nil
}

func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Dimension returns the vector length, 0 before population or when empty.
func (s *Storage) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine scores zero-norm vectors as 0.
func cosine(a []float32, an float64, b []float32, bn float64) float64 {
	if an == 0 || bn == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (an * bn)
}
