package domain

import (
	"context"
	"unicode/utf8"
)

// Document is a source file loaded into ordered page-level text units.
type Document struct {
	ID    string
	Path  string
	Pages []Page
}

// CharCount returns the number of characters across all pages.
func (d Document) CharCount() int {
	n := 0
	for _, p := range d.Pages {
		n += utf8.RuneCountInString(p.Text)
	}
	return n
}

// Page is the extracted text of one document page. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// Chunk is a bounded span of page text used as the unit of retrieval.
// SourceIndex is the chunk's 0-based position in the whole document and
// Offset is the rune offset of Text within its page.
type Chunk struct {
	ID          string
	DocumentID  string
	Text        string
	SourceIndex int
	Page        int
	Offset      int
	Metadata    map[string]string
}

// Section returns the positional label attached by the section tagger.
func (c Chunk) Section() Section {
	return Section(c.Metadata[MetadataSection])
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// StructuredQuery is the schema-constrained form of a free-text question.
type StructuredQuery struct {
	Query   string  `json:"query" validate:"required"`
	Section Section `json:"section" validate:"required,section"`
}

// Answer is everything produced for a single question.
type Answer struct {
	Question     string
	Query        StructuredQuery
	Retrieved    []SearchResult
	Text         string
	Warnings     []string
	ArtifactPath string
}

// Loader reads a document from disk into page-level text.
type Loader interface {
	Load(ctx context.Context, path string) (Document, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex answers similarity queries over indexed chunks.
type VectorIndex interface {
	Search(ctx context.Context, query string, k int) ([]SearchResult, error)
	Len() int
}

// Message roles understood by every chat model.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat turn.
type Message struct {
	Role    string
	Content string
}

// CompletionOptions configures a chat completion. When Schema is set the
// model is asked to reply with a single JSON object conforming to it.
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
	Schema      *Schema
}

// ChatModel is a language model that completes a conversation.
type ChatModel interface {
	Name() string
	Complete(ctx context.Context, messages []Message, opts CompletionOptions) (string, error)
}
