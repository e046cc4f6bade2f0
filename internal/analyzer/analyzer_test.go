package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrag/internal/domain"
)

type fakeModel struct {
	reply string
	err   error
	seen  []domain.Message
	opts  domain.CompletionOptions
}

func (m *fakeModel) Name() string { return "fake" }

func (m *fakeModel) Complete(ctx context.Context, msgs []domain.Message, opts domain.CompletionOptions) (string, error) {
	m.seen = msgs
	m.opts = opts
	return m.reply, m.err
}

func labels4(t *testing.T) []domain.Section {
	l, err := domain.SectionLabels(4)
	require.NoError(t, err)
	return l
}

func TestAnalyze_Valid(t *testing.T) {
	m := &fakeModel{reply: `{"query":"LLM-as-a-Judge challenges","section":"beginning"}`}
	a, err := New(m, labels4(t), nil)
	require.NoError(t, err)

	sq, err := a.Analyze(context.Background(), "What are the two main challenges?")
	require.NoError(t, err)
	assert.Equal(t, domain.StructuredQuery{Query: "LLM-as-a-Judge challenges", Section: domain.SectionBeginning}, sq)

	require.Len(t, m.seen, 2)
	assert.Equal(t, domain.RoleUser, m.seen[1].Role)
	assert.Equal(t, "What are the two main challenges?", m.seen[1].Content)
	assert.Equal(t, 0.0, m.opts.Temperature)
	require.NotNil(t, m.opts.Schema)
	assert.Equal(t, []string{"beginning", "middle-1", "middle-2", "end"}, m.opts.Schema.Properties[1].Enum)
}

func TestAnalyze_FencedReply(t *testing.T) {
	m := &fakeModel{reply: "```json\n{\"query\":\"results\",\"section\":\"end\"}\n```"}
	a, err := New(m, labels4(t), nil)
	require.NoError(t, err)

	sq, err := a.Analyze(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, domain.SectionEnd, sq.Section)
}

func TestAnalyze_NonConforming(t *testing.T) {
	replies := []string{
		`not json`,
		`{"query":"x","section":"appendix"}`,
		`{"query":"","section":"end"}`,
		`{"query":"x"}`,
		`{"query":"x","section":"end","extra":1}`,
		`{"query":"x","section":"end"} {"query":"y"}`,
		`{"query":"x","section":"middle"}`,
	}
	for _, reply := range replies {
		a, err := New(&fakeModel{reply: reply}, labels4(t), nil)
		require.NoError(t, err)

		_, err = a.Analyze(context.Background(), "q")
		var soe *domain.StructuredOutputError
		require.ErrorAs(t, err, &soe, reply)
		assert.Equal(t, reply, soe.Raw)
	}
}

func TestAnalyze_ThreeBandLabels(t *testing.T) {
	labels, err := domain.SectionLabels(3)
	require.NoError(t, err)
	a, err := New(&fakeModel{reply: `{"query":"x","section":"middle"}`}, labels, nil)
	require.NoError(t, err)

	sq, err := a.Analyze(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, domain.SectionMiddle, sq.Section)
}

func TestAnalyze_ModelError(t *testing.T) {
	boom := errors.New("connection reset")
	a, err := New(&fakeModel{err: boom}, labels4(t), nil)
	require.NoError(t, err)

	_, err = a.Analyze(context.Background(), "q")
	assert.ErrorIs(t, err, boom)
	var soe *domain.StructuredOutputError
	assert.False(t, errors.As(err, &soe))
}

func TestAnalyze_EmptyQuestion(t *testing.T) {
	a, err := New(&fakeModel{}, labels4(t), nil)
	require.NoError(t, err)
	_, err = a.Analyze(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyQuestion)
}

func TestNew_NoLabels(t *testing.T) {
	_, err := New(&fakeModel{}, nil, nil)
	assert.Error(t, err)
}
