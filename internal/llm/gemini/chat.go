// Package gemini is a chat model backed by the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"pdfrag/internal/domain"
)

const DefaultModel = "gemini-2.5-flash"

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Chat implements domain.ChatModel. The genai client is created lazily.
type Chat struct {
	cfg    Config
	logger *zap.Logger

	mu     sync.Mutex
	client *genai.Client
}

func NewChat(cfg Config, logger *zap.Logger) *Chat {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chat{cfg: cfg, logger: logger}
}

func (c *Chat) Name() string { return "gemini:" + c.cfg.Model }

// Complete maps system messages to the system instruction and assistant
// turns to the model role. A schema requests JSON output constrained by
// ResponseSchema.
func (c *Chat) Complete(ctx context.Context, messages []domain.Message, opts domain.CompletionOptions) (string, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return "", err
	}

	contents, system := convertMessages(messages)
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(opts.Temperature)),
	}
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if opts.Schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = toGenaiSchema(*opts.Schema)
	}

	resp, err := client.Models.GenerateContent(ctx, c.cfg.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini chat: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("gemini chat: empty response")
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("gemini chat: empty text in response")
	}
	return text, nil
}

func convertMessages(messages []domain.Message) ([]*genai.Content, string) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case domain.RoleSystem:
			system = append(system, m.Content)
		case domain.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return contents, strings.Join(system, "\n\n")
}

func toGenaiSchema(s domain.Schema) *genai.Schema {
	out := &genai.Schema{
		Type:        genai.TypeObject,
		Description: s.Description,
		Properties:  make(map[string]*genai.Schema, len(s.Properties)),
	}
	for _, p := range s.Properties {
		out.Properties[p.Name] = &genai.Schema{
			Type:        genai.TypeString,
			Description: p.Description,
			Enum:        p.Enum,
		}
		out.Required = append(out.Required, p.Name)
		out.PropertyOrdering = append(out.PropertyOrdering, p.Name)
	}
	return out
}

func (c *Chat) getClient(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini chat: %w", domain.ErrMissingAPIKey)
	}
	cc := &genai.ClientConfig{
		APIKey:  c.cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if c.cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: c.cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini client: %v", domain.ErrModelInit, err)
	}
	c.logger.Debug("gemini chat client created", zap.String("model", c.cfg.Model))
	c.client = client
	return client, nil
}
