package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"pdfrag/internal/domain"
)

type stubIndex struct {
	results []domain.SearchResult
	err     error
	query   string
	k       int
}

func (s *stubIndex) Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	s.query, s.k = query, k
	if s.err != nil {
		return nil, s.err
	}
	if k > len(s.results) {
		k = len(s.results)
	}
	return s.results[:k], nil
}

func (s *stubIndex) Len() int { return len(s.results) }

func result(id string, section domain.Section, score float64) domain.SearchResult {
	return domain.SearchResult{
		Chunk: domain.Chunk{ID: id, Metadata: map[string]string{domain.MetadataSection: string(section)}},
		Score: score,
	}
}

func fixture() *stubIndex {
	return &stubIndex{results: []domain.SearchResult{
		result("a", domain.SectionEnd, 0.9),
		result("b", domain.SectionBeginning, 0.8),
		result("c", domain.SectionEnd, 0.7),
		result("d", domain.SectionMiddle1, 0.6),
		result("e", domain.SectionBeginning, 0.5),
	}}
}

func ids(rs []domain.SearchResult) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Chunk.ID
	}
	return out
}

func TestRetrieve_IgnoresSectionByDefault(t *testing.T) {
	idx := fixture()
	r := New(idx, 4, "", nil)

	got, err := r.Retrieve(context.Background(), domain.StructuredQuery{Query: "judge bias", Section: domain.SectionBeginning})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(got))
	assert.Equal(t, "judge bias", idx.query)
	assert.Equal(t, 4, idx.k)
}

func TestRetrieve_FilterMode(t *testing.T) {
	r := New(fixture(), 4, ModeFilter, nil)

	got, err := r.Retrieve(context.Background(), domain.StructuredQuery{Query: "q", Section: domain.SectionBeginning})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "e"}, ids(got))

	got, err = New(fixture(), 1, ModeFilter, nil).Retrieve(context.Background(), domain.StructuredQuery{Query: "q", Section: domain.SectionEnd})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(got))
}

func TestRetrieve_LogsCountAndSection(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := New(fixture(), 2, ModeIgnore, zap.New(core))

	_, err := r.Retrieve(context.Background(), domain.StructuredQuery{Query: "q", Section: domain.SectionMiddle1})
	require.NoError(t, err)

	entries := logs.FilterMessage("retrieved documents").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(2), fields["documents"])
	assert.Equal(t, "middle-1", fields["section"])
}

func TestRetrieve_Empty(t *testing.T) {
	r := New(&stubIndex{}, 4, ModeIgnore, nil)
	got, err := r.Retrieve(context.Background(), domain.StructuredQuery{Query: "q", Section: domain.SectionEnd})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRetrieve_IndexError(t *testing.T) {
	boom := errors.New("embed failed")
	r := New(&stubIndex{err: boom}, 4, ModeIgnore, nil)
	_, err := r.Retrieve(context.Background(), domain.StructuredQuery{Query: "q", Section: domain.SectionEnd})
	assert.ErrorIs(t, err, boom)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeIgnore, m)

	m, err = ParseMode("filter")
	require.NoError(t, err)
	assert.Equal(t, ModeFilter, m)

	_, err = ParseMode("strict")
	assert.Error(t, err)
}
