package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables read on top of the YAML file.
const (
	EnvLLMAPIKey        = "LLM_API_KEY_ENV"
	EnvLangSmithAPIKey  = "LANGSMITH_API_KEY"
	EnvLangSmithTracing = "LANGSMITH_TRACING_V2"
	EnvLangSmithProject = "LANGSMITH_PROJECT"
	EnvPDFPath          = "PDFRAG_PDF_PATH"
	EnvChunkSize        = "PDFRAG_CHUNK_SIZE"
	EnvChunkOverlap     = "PDFRAG_CHUNK_OVERLAP"
	EnvEmbedModel       = "PDFRAG_EMBED_MODEL"
	EnvChatModel        = "PDFRAG_CHAT_MODEL"
)

// DefaultQuestion is asked when the CLI receives no question.
const DefaultQuestion = "What are the two main challenges that hinder the widespread application of the 'LLM-as-a-Judge' approach?"

// LLMConfig selects and configures the chat model.
type LLMConfig struct {
	Provider          string  `yaml:"provider"`
	Model             string  `yaml:"model"`
	Temperature       float64 `yaml:"temperature"`
	MaxTokens         int     `yaml:"max_tokens"`
	BaseURL           string  `yaml:"base_url,omitempty"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	MaxRetries        int     `yaml:"max_retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type              string  `yaml:"type"`
	Model             string  `yaml:"model"`
	Dimensions        int     `yaml:"dimensions,omitempty"`
	BaseURL           string  `yaml:"base_url,omitempty"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	BatchSize         int     `yaml:"batch_size"`
	MaxRetries        int     `yaml:"max_retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// ChunkerConfig configures how documents are split into chunks. Sizes are in characters.
type ChunkerConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

type SectionConfig struct {
	Partitions int `yaml:"partitions"`
}

// RetrievalConfig controls similarity search. SectionMode is "ignore" or "filter".
type RetrievalConfig struct {
	TopK        int    `yaml:"top_k"`
	SectionMode string `yaml:"section_mode"`
}

type DocumentConfig struct {
	Path string `yaml:"path"`
}

// PromptConfig locates the answer prompt template. Source is "builtin",
// "file" or "http".
type PromptConfig struct {
	ID          string `yaml:"id"`
	Source      string `yaml:"source"`
	Path        string `yaml:"path,omitempty"`
	BaseURL     string `yaml:"base_url,omitempty"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// OutputConfig controls the text artifact written after each answer. An
// empty ArtifactPath disables it.
type OutputConfig struct {
	ArtifactPath string `yaml:"artifact_path"`
}

// TracingConfig mirrors the LangSmith settings. Keys come from the environment only.
type TracingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Project string `yaml:"project,omitempty"`
	APIKey  string `yaml:"-"`
}

// LogConfig controls logging. File receives the logs of the interactive
// chat, which cannot share the terminal with them; empty discards them.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	LLM       LLMConfig       `yaml:"llm"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Sections  SectionConfig   `yaml:"sections"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Document  DocumentConfig  `yaml:"document"`
	Prompt    PromptConfig    `yaml:"prompt"`
	Output    OutputConfig    `yaml:"output"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Log       LogConfig       `yaml:"log"`
}

// Load reads a config from path, applies defaults and environment
// overrides. A missing file yields the defaults.
func Load(path string) (*AppConfig, error) {
	// chunk overlap and artifact path have meaningful zero values
	d := defaultConfig()
	cfg := &AppConfig{Chunker: d.Chunker, Output: d.Output}
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	applyConfigDefaults(cfg)
	applyEnv(cfg)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/pdfrag/config.yaml.
// If neither exists, it writes defaults to ~/.config/pdfrag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	if err := Save(userPath, defaultConfig()); err != nil {
		return nil, "", err
	}
	cfg, err := Load(userPath)
	return cfg, userPath, err
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pdfrag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0,
			APIKeyEnv:   EnvLLMAPIKey,
			TimeoutSecs: 60,
		},
		Embedder: EmbedderConfig{
			Type:        "openai",
			Model:       "text-embedding-3-large",
			APIKeyEnv:   EnvLLMAPIKey,
			TimeoutSecs: 30,
			BatchSize:   64,
		},
		Chunker:   ChunkerConfig{Size: 1200, Overlap: 300},
		Sections:  SectionConfig{Partitions: 4},
		Retrieval: RetrievalConfig{TopK: 4, SectionMode: "ignore"},
		Document:  DocumentConfig{Path: filepath.Join("data", "publication.pdf")},
		Prompt:    PromptConfig{ID: "rlm/rag-prompt", Source: "builtin", TimeoutSecs: 15},
		Output:    OutputConfig{ArtifactPath: "output_example.txt"},
		Log:       LogConfig{Level: "info"},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	d := defaultConfig()
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = d.LLM.Provider
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaultChatModel(cfg.LLM.Provider)
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = defaultKeyEnv(cfg.LLM.Provider)
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = d.LLM.TimeoutSecs
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = d.Embedder.Type
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = defaultEmbedModel(cfg.Embedder.Type)
	}
	if cfg.Embedder.APIKeyEnv == "" {
		cfg.Embedder.APIKeyEnv = defaultKeyEnv(cfg.Embedder.Type)
	}
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = d.Embedder.TimeoutSecs
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = d.Embedder.BatchSize
	}
	if cfg.Chunker.Size == 0 {
		cfg.Chunker.Size = d.Chunker.Size
	}
	if cfg.Sections.Partitions == 0 {
		cfg.Sections.Partitions = d.Sections.Partitions
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = d.Retrieval.TopK
	}
	if cfg.Retrieval.SectionMode == "" {
		cfg.Retrieval.SectionMode = d.Retrieval.SectionMode
	}
	if cfg.Document.Path == "" {
		cfg.Document.Path = d.Document.Path
	}
	if cfg.Prompt.ID == "" {
		cfg.Prompt.ID = d.Prompt.ID
	}
	if cfg.Prompt.Source == "" {
		cfg.Prompt.Source = d.Prompt.Source
	}
	if cfg.Prompt.TimeoutSecs == 0 {
		cfg.Prompt.TimeoutSecs = d.Prompt.TimeoutSecs
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = d.Log.Level
	}
}

func defaultChatModel(provider string) string {
	switch provider {
	case "gemini":
		return "gemini-2.5-flash"
	case "anthropic":
		return "claude-sonnet-4-5"
	default:
		return "gpt-4o-mini"
	}
}

func defaultEmbedModel(typ string) string {
	switch typ {
	case "gemini":
		return "gemini-embedding-001"
	case "tfidf":
		return ""
	default:
		return "text-embedding-3-large"
	}
}

// defaultKeyEnv names the variable holding a provider's key when the config
// does not. LLM_API_KEY_ENV only ever holds an OpenAI key.
func defaultKeyEnv(provider string) string {
	switch provider {
	case "gemini":
		return "GEMINI_API_KEY"
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "tfidf":
		return ""
	default:
		return EnvLLMAPIKey
	}
}

func applyEnv(cfg *AppConfig) {
	if v := os.Getenv(EnvPDFPath); v != "" {
		cfg.Document.Path = v
	}
	if v, ok := getenvInt(EnvChunkSize); ok {
		cfg.Chunker.Size = v
	}
	if v, ok := getenvInt(EnvChunkOverlap); ok {
		cfg.Chunker.Overlap = v
	}
	if v := os.Getenv(EnvEmbedModel); v != "" {
		cfg.Embedder.Model = v
	}
	if v := os.Getenv(EnvChatModel); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv(EnvLangSmithTracing); v != "" {
		cfg.Tracing.Enabled = strings.EqualFold(strings.TrimSpace(v), "true")
	}
	if v := os.Getenv(EnvLangSmithProject); v != "" {
		cfg.Tracing.Project = v
	}
	cfg.Tracing.APIKey = os.Getenv(EnvLangSmithAPIKey)
}

func getenvInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// APIKey resolves the chat model key: the variable named by APIKeyEnv, then
// the provider's conventional variable.
func (c LLMConfig) APIKey() string {
	return resolveKey(c.APIKeyEnv, c.Provider)
}

// APIKey resolves the embedder key the same way as LLMConfig.APIKey.
func (c EmbedderConfig) APIKey() string {
	if c.Type == "tfidf" {
		return ""
	}
	return resolveKey(c.APIKeyEnv, c.Type)
}

func resolveKey(env, provider string) string {
	if env != "" {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	switch provider {
	case "gemini":
		if v := os.Getenv("GEMINI_API_KEY"); v != "" {
			return v
		}
		return os.Getenv("GOOGLE_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return os.Getenv("OPENAI_API_KEY")
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Chunker.Size <= 0 {
		errs = append(errs, fmt.Errorf("chunker.size must be positive, got %d", c.Chunker.Size))
	}
	if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.Size {
		errs = append(errs, fmt.Errorf("chunker.overlap must be in [0, size), got %d", c.Chunker.Overlap))
	}
	if p := c.Sections.Partitions; p != 3 && p != 4 {
		errs = append(errs, fmt.Errorf("sections.partitions must be 3 or 4, got %d", p))
	}
	if c.Retrieval.TopK < 0 {
		errs = append(errs, fmt.Errorf("retrieval.top_k must not be negative, got %d", c.Retrieval.TopK))
	}
	switch c.Retrieval.SectionMode {
	case "ignore", "filter":
	default:
		errs = append(errs, fmt.Errorf("retrieval.section_mode must be ignore or filter, got %q", c.Retrieval.SectionMode))
	}
	switch c.LLM.Provider {
	case "openai", "gemini", "anthropic":
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider))
	}
	switch c.Embedder.Type {
	case "openai", "gemini", "tfidf":
	default:
		errs = append(errs, fmt.Errorf("embedder.type %q is not supported", c.Embedder.Type))
	}
	switch c.Prompt.Source {
	case "builtin":
	case "file":
		if c.Prompt.Path == "" {
			errs = append(errs, errors.New("prompt.path is required for file prompts"))
		}
	case "http":
		if c.Prompt.BaseURL == "" {
			errs = append(errs, errors.New("prompt.base_url is required for http prompts"))
		}
	default:
		errs = append(errs, fmt.Errorf("prompt.source %q is not supported", c.Prompt.Source))
	}
	return errors.Join(errs...)
}

// Check reports configuration problems that do not stop the pipeline,
// such as a missing key or document. Keys are never included.
func (c *AppConfig) Check() []string {
	var warnings []string
	if c.LLM.APIKey() == "" {
		warnings = append(warnings, "LLM API key environment variable not found")
	}
	if c.Embedder.Type != "tfidf" && c.Embedder.APIKey() == "" {
		warnings = append(warnings, "embedding API key environment variable not found")
	}
	if c.Tracing.Enabled && c.Tracing.APIKey == "" {
		warnings = append(warnings, "LangSmith tracing is enabled (LANGSMITH_TRACING_V2=true), but LANGSMITH_API_KEY was not found")
	}
	if _, err := os.Stat(c.Document.Path); err != nil {
		warnings = append(warnings, fmt.Sprintf("PDF file not found at expected path: %s", c.Document.Path))
	}
	return warnings
}

// TracingStatus describes the tracing settings in one line.
func (c *AppConfig) TracingStatus() string {
	if !c.Tracing.Enabled {
		return "LangSmith tracing is disabled"
	}
	if c.Tracing.Project == "" {
		return "LangSmith tracing is enabled (default project)"
	}
	return "LangSmith tracing is enabled (project " + c.Tracing.Project + ")"
}
