package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pdfrag/internal/domain"
	"pdfrag/internal/summarizer"
)

// AskPort is the TUI-facing subset of the RAG service.
type AskPort interface {
	Ask(ctx context.Context, question string) (domain.Answer, error)
	ReloadPrompt()
}

type answerMsg struct {
	answer domain.Answer
	err    error
}

// Model is the Bubble Tea model for the question-answering TUI.
type Model struct {
	ctx      context.Context
	service  AskPort
	input    textinput.Model
	viewport viewport.Model
	overview []summarizer.Highlight
	title    string

	answer  *domain.Answer
	status  string
	cursor  int
	pending bool
	ready   bool
}

// New creates a TUI model. title names the loaded document.
func New(ctx context.Context, service AskPort, title string, overview []summarizer.Highlight) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	return Model{
		ctx:      ctx,
		service:  service,
		input:    ti,
		viewport: viewport.New(0, 0),
		overview: overview,
		title:    title,
		status:   "Document indexed. Ask away.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) ask(question string) tea.Cmd {
	return func() tea.Msg {
		ans, err := m.service.Ask(m.ctx, question)
		return answerMsg{answer: ans, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + len(m.overview) + 1 + qh + 1 // header, overview, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.renderAnswer())
		return m, nil
	case answerMsg:
		m.pending = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.answer = nil
		} else {
			a := msg.answer
			m.answer = &a
			m.cursor = 0
			m.status = fmt.Sprintf("Section %q, %d sources", a.Query.Section, len(a.Retrieved))
			if len(a.Warnings) > 0 {
				m.status += "  warning: " + strings.Join(a.Warnings, "; ")
			}
		}
		m.viewport.SetContent(m.renderAnswer())
		m.viewport.GotoTop()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "ctrl+r":
			m.service.ReloadPrompt()
			m.status = "Prompt template reloads on the next question."
			return m, nil
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.pending {
				return m, nil
			}
			m.pending = true
			m.status = fmt.Sprintf("Thinking about %q...", q)
			m.input.SetValue("")
			return m, m.ask(q)
		case "down":
			if m.answer != nil && len(m.answer.Retrieved) > 0 {
				m.cursor = (m.cursor + 1) % len(m.answer.Retrieved)
				m.viewport.SetContent(m.renderAnswer())
				return m, nil
			}
		case "up":
			if m.answer != nil && len(m.answer.Retrieved) > 0 {
				n := len(m.answer.Retrieved)
				m.cursor = (m.cursor - 1 + n) % n
				m.viewport.SetContent(m.renderAnswer())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render("PDF RAG  " + m.title))
	b.WriteString("\n")
	for _, h := range m.overview {
		b.WriteString(overviewStyle.Render(fmt.Sprintf("%-10s (%d) %s", h.Section, h.Chunks, h.Sentence)))
		b.WriteString("\n")
	}
	b.WriteString(resultBoxStyle.Render(m.viewport.View()))
	b.WriteString("\n")
	b.WriteString(queryBoxStyle.Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.status))
	return b.String()
}

func (m Model) renderAnswer() string {
	if m.answer == nil {
		return "No answer yet."
	}
	a := m.answer
	var b strings.Builder
	b.WriteString(answerStyle.Render("Answer"))
	b.WriteString("\n")
	b.WriteString(a.Text)
	b.WriteString("\n\n")
	if len(a.Retrieved) == 0 {
		b.WriteString("No sources retrieved.")
		return b.String()
	}
	r := a.Retrieved[m.cursor]
	fmt.Fprintf(&b, "Source %d/%d  page=%d  section=%s  score=%.3f\n\n",
		m.cursor+1, len(a.Retrieved), r.Chunk.Page, r.Chunk.Section(), r.Score)
	b.WriteString(highlightBestSentence(r.Chunk.Text, a.Query.Query))
	return b.String()
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	overviewStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	answerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`(?s)[^.!?]+[.!?]*`)
)

// highlightBestSentence emphasises the sentence sharing the most words
// with query.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{text}
	}
	qTokens := toTokenSet(query)
	bestIdx, bestScore := -1, 0
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	out := make([]string, 0, len(sentences))
	for i, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if i == bestIdx {
			s = highlightStyle.Render(s)
		}
		out = append(out, s)
	}
	return strings.Join(out, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	seen := make(map[string]struct{})
	for _, t := range unicodeWordRe.FindAllString(strings.ToLower(sentence), -1) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
