package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Source fetches raw template text by id.
type Source interface {
	Fetch(ctx context.Context, id string) (string, error)
}

// BuiltinSource serves templates compiled into the binary.
type BuiltinSource struct{}

func (BuiltinSource) Fetch(_ context.Context, id string) (string, error) {
	if id == RAGPromptID {
		return ragPromptText, nil
	}
	return "", fmt.Errorf("no built-in prompt %q", id)
}

// FileSource reads a single template from disk regardless of id.
type FileSource struct {
	Path string
}

func (s FileSource) Fetch(_ context.Context, _ string) (string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", fmt.Errorf("read prompt: %w", err)
	}
	return string(data), nil
}

// HTTPSource fetches GET {BaseURL}/{id}. Replies may be plain text or a JSON
// object with a "template" field.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPSource{BaseURL: strings.TrimRight(baseURL, "/"), Client: &http.Client{Timeout: timeout}}
}

func (s *HTTPSource) Fetch(ctx context.Context, id string) (string, error) {
	u, err := url.JoinPath(s.BaseURL, id)
	if err != nil {
		return "", fmt.Errorf("prompt url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch prompt %s: %w", id, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("fetch prompt %s: %w", id, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch prompt %s: %s", id, resp.Status)
	}
	return decodeBody(resp.Header.Get("Content-Type"), body)
}

// NewSource builds the source named by kind: builtin, file or http.
func NewSource(kind, path, baseURL string, timeout time.Duration) (Source, error) {
	switch kind {
	case "", "builtin":
		return BuiltinSource{}, nil
	case "file":
		return FileSource{Path: path}, nil
	case "http":
		return NewHTTPSource(baseURL, timeout), nil
	default:
		return nil, fmt.Errorf("unknown prompt source %q", kind)
	}
}

// Store caches parsed templates per id.
type Store struct {
	source Source
	logger *zap.Logger

	mu    sync.Mutex
	cache map[string]Template
}

func NewStore(source Source, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{source: source, logger: logger, cache: make(map[string]Template)}
}

// Load returns the template for id, fetching it on first use.
func (s *Store) Load(ctx context.Context, id string) (Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.cache[id]; ok {
		return t, nil
	}
	if s.source == nil {
		return Template{}, errors.New("prompt store has no source")
	}
	text, err := s.source.Fetch(ctx, id)
	if err != nil {
		return Template{}, err
	}
	t, err := Parse(id, text)
	if err != nil {
		return Template{}, err
	}
	s.cache[id] = t
	s.logger.Debug("prompt loaded", zap.String("id", id), zap.Int("bytes", len(text)))
	return t, nil
}

// Reload drops every cached template.
func (s *Store) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]Template)
	s.mu.Unlock()
}

func decodeBody(contentType string, body []byte) (string, error) {
	if !strings.Contains(contentType, "json") {
		return string(body), nil
	}
	var payload struct {
		Template string `json:"template"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}
	if payload.Template == "" {
		return "", errors.New("prompt reply has no template field")
	}
	return payload.Template, nil
}
