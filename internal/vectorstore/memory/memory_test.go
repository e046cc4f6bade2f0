package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrag/internal/domain"
	"pdfrag/internal/vectorstore"
)

var _ vectorstore.Storage = (*Storage)(nil)

// lookupEmbedder maps known texts to fixed vectors.
type lookupEmbedder struct {
	vectors    map[string][]float32
	calls      atomic.Int32
	batchSizes []int
	err        error
	dim        int
}

func (e *lookupEmbedder) Name() string                  { return "lookup" }
func (e *lookupEmbedder) Prepare(corpus []string) error { return nil }

func (e *lookupEmbedder) Dimension() int {
	if e.dim != 0 {
		return e.dim
	}
	return 2
}

func (e *lookupEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	v, ok := e.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return v, nil
}

func (e *lookupEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.batchSizes = append(e.batchSizes, len(texts))
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func chunk(text string, i int) domain.Chunk {
	return domain.Chunk{ID: fmt.Sprintf("c%d", i), Text: text, SourceIndex: i}
}

func newEmbedder() *lookupEmbedder {
	return &lookupEmbedder{vectors: map[string][]float32{
		"east":      {1, 0},
		"north":     {0, 1},
		"northeast": {1, 1},
		"east-ish":  {2, 0.1},
		"zero":      {0, 0},
		"q-east":    {1, 0},
		"q-north":   {0, 3},
	}}
}

func TestSearch_CosineOrder(t *testing.T) {
	e := newEmbedder()
	s := NewStorage(e, Options{})
	require.NoError(t, s.InsertAll(context.Background(), []domain.Chunk{
		chunk("north", 0), chunk("northeast", 1), chunk("east-ish", 2), chunk("zero", 3),
	}))
	assert.Equal(t, 4, s.Len())
	assert.Equal(t, 2, s.Dimension())

	res, err := s.Search(context.Background(), "q-east", 3)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "east-ish", res[0].Chunk.Text)
	assert.Equal(t, "northeast", res[1].Chunk.Text)
	assert.InDelta(t, 0.7071, res[1].Score, 1e-3)
	for i := 1; i < len(res); i++ {
		assert.GreaterOrEqual(t, res[i-1].Score, res[i].Score)
	}
}

func TestSearch_FewerThanK(t *testing.T) {
	s := NewStorage(newEmbedder(), Options{})
	require.NoError(t, s.InsertAll(context.Background(), []domain.Chunk{chunk("east", 0), chunk("north", 1)}))

	res, err := s.Search(context.Background(), "q-north", 10)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "north", res[0].Chunk.Text)
	assert.InDelta(t, 1.0, res[0].Score, 1e-9)
}

func TestSearch_DefaultK(t *testing.T) {
	e := newEmbedder()
	s := NewStorage(e, Options{})
	var cs []domain.Chunk
	for i := 0; i < 6; i++ {
		cs = append(cs, chunk("east", i))
	}
	require.NoError(t, s.InsertAll(context.Background(), cs))

	res, err := s.Search(context.Background(), "q-east", 0)
	require.NoError(t, err)
	assert.Len(t, res, DefaultTopK)
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	s := NewStorage(newEmbedder(), Options{})
	require.NoError(t, s.InsertAll(context.Background(), []domain.Chunk{
		chunk("north", 0), chunk("east", 1), chunk("east", 2), chunk("east", 3),
	}))

	res, err := s.Search(context.Background(), "q-east", 3)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, []string{"c1", "c2", "c3"}, []string{res[0].Chunk.ID, res[1].Chunk.ID, res[2].Chunk.ID})
}

func TestSearch_EmptyIndexSkipsEmbedder(t *testing.T) {
	e := newEmbedder()
	s := NewStorage(e, Options{})
	require.NoError(t, s.InsertAll(context.Background(), nil))

	res, err := s.Search(context.Background(), "anything", 4)
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.NotNil(t, res)
	assert.Equal(t, int32(0), e.calls.Load())
}

func TestInsertAll_OnlyOnce(t *testing.T) {
	s := NewStorage(newEmbedder(), Options{})
	require.NoError(t, s.InsertAll(context.Background(), []domain.Chunk{chunk("east", 0)}))
	err := s.InsertAll(context.Background(), []domain.Chunk{chunk("north", 1)})
	assert.ErrorIs(t, err, domain.ErrIndexBuilt)
	assert.Equal(t, 1, s.Len())
}

func TestInsertAll_Batches(t *testing.T) {
	e := newEmbedder()
	s := NewStorage(e, Options{BatchSize: 2})
	var cs []domain.Chunk
	for i := 0; i < 5; i++ {
		cs = append(cs, chunk("east", i))
	}
	require.NoError(t, s.InsertAll(context.Background(), cs))
	assert.Equal(t, []int{2, 2, 1}, e.batchSizes)
}

func TestInsertAll_EmbedderError(t *testing.T) {
	e := newEmbedder()
	e.err = errors.New("quota exceeded")
	s := NewStorage(e, Options{})
	err := s.InsertAll(context.Background(), []domain.Chunk{chunk("east", 0)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, 0, s.Len())
}

func TestInsertAll_DimensionMismatch(t *testing.T) {
	e := newEmbedder()
	e.vectors["wide"] = []float32{1, 2, 3}
	s := NewStorage(e, Options{})
	err := s.InsertAll(context.Background(), []domain.Chunk{chunk("east", 0), chunk("wide", 1)})
	assert.ErrorIs(t, err, domain.ErrEmbeddingMismatch)
}

func TestInsertAll_EmbedderDimensionDisagrees(t *testing.T) {
	e := newEmbedder()
	e.dim = 3
	s := NewStorage(e, Options{})
	err := s.InsertAll(context.Background(), []domain.Chunk{chunk("east", 0)})
	assert.ErrorIs(t, err, domain.ErrEmbeddingMismatch)
	assert.Equal(t, 0, s.Dimension())
}

func TestSearch_Concurrent(t *testing.T) {
	s := NewStorage(newEmbedder(), Options{})
	require.NoError(t, s.InsertAll(context.Background(), []domain.Chunk{
		chunk("east", 0), chunk("north", 1), chunk("northeast", 2),
	}))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := "q-east"
			if i%2 == 1 {
				q = "q-north"
			}
			res, err := s.Search(context.Background(), q, 1)
			assert.NoError(t, err)
			if assert.Len(t, res, 1) {
				want := "east"
				if i%2 == 1 {
					want = "north"
				}
				assert.Equal(t, want, res[0].Chunk.Text)
			}
		}(i)
	}
	wg.Wait()
}
