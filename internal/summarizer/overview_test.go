package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrag/internal/domain"
)

func tagged(text string, s domain.Section) domain.Chunk {
	return domain.Chunk{Text: text, Metadata: map[string]string{domain.MetadataSection: string(s)}}
}

func TestSummarize_PicksRepresentativeSentencePerSection(t *testing.T) {
	labels, err := domain.SectionLabels(3)
	require.NoError(t, err)

	chunks := []domain.Chunk{
		tagged("Judges evaluate answers. Judges show bias when judges evaluate long answers.", domain.SectionBeginning),
		tagged("Weather was mild.", domain.SectionBeginning),
		tagged("We conclude that calibration helps.", domain.SectionEnd),
	}
	got := NewOverview(0).Summarize(chunks, labels)
	require.Len(t, got, 2)

	assert.Equal(t, domain.SectionBeginning, got[0].Section)
	assert.Equal(t, 2, got[0].Chunks)
	assert.Contains(t, got[0].Sentence, "Judges")

	assert.Equal(t, domain.SectionEnd, got[1].Section)
	assert.Equal(t, "We conclude that calibration helps.", got[1].Sentence)
}

func TestSummarize_NoSentencePunctuation(t *testing.T) {
	labels, _ := domain.SectionLabels(4)
	got := NewOverview(0).Summarize([]domain.Chunk{tagged("  heading only  ", domain.SectionEnd)}, labels)
	require.Len(t, got, 1)
	assert.Equal(t, "heading only", got[0].Sentence)
}

func TestSummarize_Truncates(t *testing.T) {
	labels, _ := domain.SectionLabels(4)
	long := strings.Repeat("word ", 100) + "end."
	got := NewOverview(20).Summarize([]domain.Chunk{tagged(long, domain.SectionMiddle1)}, labels)
	require.Len(t, got, 1)
	assert.LessOrEqual(t, len([]rune(got[0].Sentence)), 21)
	assert.True(t, strings.HasSuffix(got[0].Sentence, "…"))
}

func TestSummarize_Empty(t *testing.T) {
	labels, _ := domain.SectionLabels(4)
	assert.Empty(t, NewOverview(0).Summarize(nil, labels))
}
