// Package prompt loads and fills the answer-generation prompt template.
package prompt

import (
	"fmt"
	"strings"

	"pdfrag/internal/domain"
)

const (
	PlaceholderQuestion = "{question}"
	PlaceholderContext  = "{context}"
)

// RAGPromptID identifies the bundled question-answering prompt.
const RAGPromptID = "rlm/rag-prompt"

const ragPromptText = "You are an assistant for question-answering tasks. " +
	"Use the following pieces of retrieved context to answer the question. " +
	"If you don't know the answer, just say that you don't know. " +
	"Use three sentences maximum and keep the answer concise.\n" +
	"Question: {question} \n" +
	"Context: {context} \n" +
	"Answer:"

// Template is a prompt with {question} and {context} placeholders.
type Template struct {
	ID   string
	Text string
}

// Parse checks that text carries both placeholders.
func Parse(id, text string) (Template, error) {
	for _, p := range []string{PlaceholderQuestion, PlaceholderContext} {
		if !strings.Contains(text, p) {
			return Template{}, fmt.Errorf("%w: %s lacks %s", domain.ErrInvalidTemplate, id, p)
		}
	}
	return Template{ID: id, Text: text}, nil
}

// Format fills the placeholders in a single pass, so placeholder-like text
// inside the question or context is left as is.
func (t Template) Format(question, context string) string {
	return strings.NewReplacer(
		PlaceholderQuestion, question,
		PlaceholderContext, context,
	).Replace(t.Text)
}

// Messages renders the template as a single user turn.
func (t Template) Messages(question, context string) []domain.Message {
	return []domain.Message{{Role: domain.RoleUser, Content: t.Format(question, context)}}
}
