// Package analyzer turns a free-text question into a StructuredQuery using
// the chat model's structured output.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"pdfrag/internal/domain"
)

const systemPrompt = "You turn a user's question into a search request over a single document. " +
	"Write a concise search query and pick the section of the document most likely to hold the answer."

var fencePattern = regexp.MustCompile("(?s)^\\s*```(?:json|JSON)?\\s*\\n?(.*?)\\n?\\s*```\\s*$")

// Analyzer is stateless apart from its collaborators and safe for concurrent use.
type Analyzer struct {
	model    domain.ChatModel
	labels   []domain.Section
	schema   domain.Schema
	validate *validator.Validate
	logger   *zap.Logger
}

// New returns an analyzer constrained to labels.
func New(model domain.ChatModel, labels []domain.Section, logger *zap.Logger) (*Analyzer, error) {
	if len(labels) == 0 {
		return nil, errors.New("analyzer: no section labels")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	allowed := append([]domain.Section(nil), labels...)

	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.RegisterValidation("section", func(fl validator.FieldLevel) bool {
		return domain.Section(fl.Field().String()).In(allowed)
	})
	if err != nil {
		return nil, fmt.Errorf("analyzer: register validation: %w", err)
	}

	return &Analyzer{
		model:    model,
		labels:   allowed,
		schema:   SearchSchema(allowed),
		validate: v,
		logger:   logger,
	}, nil
}

// SearchSchema is the structured output contract sent to the model.
func SearchSchema(labels []domain.Section) domain.Schema {
	return domain.Schema{
		Name:        "search",
		Description: "Search query.",
		Properties: []domain.SchemaProperty{
			{Name: "query", Description: "Search query to run."},
			{Name: "section", Description: "Section to query.", Enum: domain.SectionNames(labels)},
		},
	}
}

// Analyze asks the model for a StructuredQuery. A reply that is not a
// conforming JSON object yields *domain.StructuredOutputError; model call
// failures are returned wrapped.
func (a *Analyzer) Analyze(ctx context.Context, question string) (domain.StructuredQuery, error) {
	if strings.TrimSpace(question) == "" {
		return domain.StructuredQuery{}, domain.ErrEmptyQuestion
	}
	a.logger.Info("query analysis", zap.String("question", question))

	raw, err := a.model.Complete(ctx, []domain.Message{
		{Role: domain.RoleSystem, Content: systemPrompt},
		{Role: domain.RoleUser, Content: question},
	}, domain.CompletionOptions{Temperature: 0, Schema: &a.schema})
	if err != nil {
		return domain.StructuredQuery{}, fmt.Errorf("query analysis: %w", err)
	}

	sq, err := a.parse(raw)
	if err != nil {
		return domain.StructuredQuery{}, &domain.StructuredOutputError{Raw: raw, Err: err}
	}
	a.logger.Info("structured query", zap.String("query", sq.Query), zap.String("section", string(sq.Section)))
	return sq, nil
}

func (a *Analyzer) parse(raw string) (domain.StructuredQuery, error) {
	var sq domain.StructuredQuery
	dec := json.NewDecoder(bytes.NewReader([]byte(stripFences(raw))))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&sq); err != nil {
		return sq, err
	}
	if dec.More() {
		return sq, errors.New("trailing data after JSON object")
	}
	sq.Query = strings.TrimSpace(sq.Query)
	if err := a.validate.Struct(sq); err != nil {
		return sq, err
	}
	return sq, nil
}

func stripFences(s string) string {
	if m := fencePattern.FindStringSubmatch(s); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(s)
}
