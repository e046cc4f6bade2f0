package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrag/internal/domain"
	"pdfrag/internal/summarizer"
)

type stubAsker struct {
	answer   domain.Answer
	err      error
	asked    []string
	reloaded int
}

func (s *stubAsker) ReloadPrompt() { s.reloaded++ }

func (s *stubAsker) Ask(ctx context.Context, q string) (domain.Answer, error) {
	s.asked = append(s.asked, q)
	a := s.answer
	a.Question = q
	return a, s.err
}

func chunk(text string, sec domain.Section) domain.Chunk {
	return domain.Chunk{Text: text, Page: 2, Metadata: map[string]string{domain.MetadataSection: string(sec)}}
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

func typeAndSubmit(t *testing.T, m Model, q string) (Model, tea.Cmd) {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(q)})
	next, cmd := next.(Model).Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func TestAskFlow(t *testing.T) {
	svc := &stubAsker{answer: domain.Answer{
		Query: domain.StructuredQuery{Query: "judge bias", Section: domain.SectionEnd},
		Text:  "Bias and cost.",
		Retrieved: []domain.SearchResult{
			{Chunk: chunk("Intro text. Judges show bias here.", domain.SectionEnd), Score: 0.9},
			{Chunk: chunk("Another source.", domain.SectionBeginning), Score: 0.4},
		},
	}}
	m := sized(t, New(context.Background(), svc, "paper.pdf", []summarizer.Highlight{
		{Section: domain.SectionBeginning, Sentence: "Opening line.", Chunks: 3},
	}))
	assert.Contains(t, m.View(), "Opening line.")
	assert.Contains(t, m.View(), "(3)")

	m, cmd := typeAndSubmit(t, m, "What is wrong?")
	require.NotNil(t, cmd)
	assert.True(t, m.pending)

	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.Equal(t, []string{"What is wrong?"}, svc.asked)
	assert.False(t, m.pending)
	assert.Contains(t, m.renderAnswer(), "Bias and cost.")
	assert.Contains(t, m.renderAnswer(), "Source 1/2")
	assert.Contains(t, m.status, `"end"`)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Contains(t, m.renderAnswer(), "Source 2/2")
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Contains(t, m.renderAnswer(), "Source 1/2")
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(Model)
	assert.Contains(t, m.renderAnswer(), "Source 2/2")
}

func TestAskError(t *testing.T) {
	svc := &stubAsker{err: errors.New("missing API key")}
	m := sized(t, New(context.Background(), svc, "x", nil))

	m, cmd := typeAndSubmit(t, m, "q")
	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.True(t, strings.HasPrefix(m.status, "Error: "))
	assert.Equal(t, "No answer yet.", m.renderAnswer())
}

func TestWarningsShownInStatus(t *testing.T) {
	svc := &stubAsker{answer: domain.Answer{Text: "Unsure.", Warnings: []string{"no context"}}}
	m := sized(t, New(context.Background(), svc, "x", nil))

	m, cmd := typeAndSubmit(t, m, "q")
	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.Contains(t, m.status, "warning: no context")
	assert.Contains(t, m.renderAnswer(), "No sources retrieved.")
}

func TestReloadPromptKey(t *testing.T) {
	svc := &stubAsker{}
	m := sized(t, New(context.Background(), svc, "x", nil))

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Nil(t, cmd)
	assert.Equal(t, 1, svc.reloaded)
	assert.Contains(t, next.(Model).status, "reloads")
}

func TestEmptyInputIgnored(t *testing.T) {
	m := sized(t, New(context.Background(), &stubAsker{}, "x", nil))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestHighlightBestSentence(t *testing.T) {
	out := highlightBestSentence("Cats sleep. Judges show bias. Dogs bark.", "judges bias")
	assert.Contains(t, out, "Cats sleep.")
	assert.Contains(t, out, "Dogs bark.")
	assert.Contains(t, out, "Judges show bias.")

	assert.Equal(t, "Nothing matches.", highlightBestSentence("Nothing matches.", "zebra"))
	assert.Equal(t, "", highlightBestSentence("", "q"))
}
