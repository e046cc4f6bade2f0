// Package claude is a chat model backed by the Claude Messages API.
package claude

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"pdfrag/internal/domain"
)

const (
	DefaultModel     = "claude-sonnet-4-5"
	defaultMaxTokens = 1024
)

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// Chat implements domain.ChatModel. Claude has no response schema option,
// so a requested schema is appended to the system prompt.
type Chat struct {
	client anthropic.Client
	model  string
	hasKey bool
	logger *zap.Logger
}

func NewChat(cfg Config, logger *zap.Logger) *Chat {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.MaxRetries != 0 {
		retries := cfg.MaxRetries
		if retries < 0 {
			retries = 0
		}
		opts = append(opts, option.WithMaxRetries(retries))
	}
	return &Chat{
		client: anthropic.NewClient(opts...),
		model:  cfg.Model,
		hasKey: cfg.APIKey != "",
		logger: logger,
	}
}

func (c *Chat) Name() string { return "anthropic:" + c.model }

func (c *Chat) Complete(ctx context.Context, messages []domain.Message, opts domain.CompletionOptions) (string, error) {
	if !c.hasKey {
		return "", fmt.Errorf("anthropic chat: %w", domain.ErrMissingAPIKey)
	}

	turns, system := convertMessages(messages)
	if opts.Schema != nil {
		instr, err := schemaInstruction(*opts.Schema)
		if err != nil {
			return "", err
		}
		system = strings.TrimSpace(system + "\n\n" + instr)
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(maxTokens),
		Messages:    turns,
		Temperature: anthropic.Float(opts.Temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic chat: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", errors.New("anthropic chat: no text in response")
	}
	c.logger.Debug("chat completion",
		zap.String("model", c.model),
		zap.Int64("input_tokens", resp.Usage.InputTokens),
		zap.Int64("output_tokens", resp.Usage.OutputTokens))
	return out.String(), nil
}

func convertMessages(messages []domain.Message) ([]anthropic.MessageParam, string) {
	var system []string
	turns := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case domain.RoleSystem:
			system = append(system, m.Content)
		case domain.RoleAssistant:
			turns = append(turns, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			turns = append(turns, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return turns, strings.Join(system, "\n\n")
}

func schemaInstruction(s domain.Schema) (string, error) {
	schema, err := json.MarshalIndent(s.JSONSchema(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode schema: %w", err)
	}
	return "Respond with a single JSON object and nothing else. It must conform to this JSON Schema:\n" + string(schema), nil
}
