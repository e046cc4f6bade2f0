package domain

import (
	"errors"
	"fmt"
)

// Domain errors shared by the pipeline stages.
var (
	// ErrMissingAPIKey indicates a provider was called without a configured key.
	// Construction never fails for this reason; the call that needs the key does.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrModelInit indicates an embedding or chat client could not be constructed.
	ErrModelInit = errors.New("model initialization failed")

	// ErrDocumentNotFound indicates the configured document path does not exist.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrUnsupportedDocument indicates a file type the loader cannot read.
	ErrUnsupportedDocument = errors.New("unsupported document type")

	// ErrInvalidPartitions indicates a section partition count other than 3 or 4.
	ErrInvalidPartitions = errors.New("invalid section partition count")

	// ErrIndexBuilt indicates an attempt to populate an index a second time.
	ErrIndexBuilt = errors.New("vector index already populated")

	// ErrEmbeddingMismatch indicates the embedder returned the wrong number or shape of vectors.
	ErrEmbeddingMismatch = errors.New("embedding result mismatch")

	// ErrInvalidTemplate indicates a prompt template lacking a required placeholder.
	ErrInvalidTemplate = errors.New("invalid prompt template")

	// ErrEmptyQuestion indicates a blank question was submitted.
	ErrEmptyQuestion = errors.New("question is empty")
)

// StructuredOutputError reports a model reply that does not conform to the
// structured query schema. Raw holds the reply as received.
type StructuredOutputError struct {
	Raw string
	Err error
}

func (e *StructuredOutputError) Error() string {
	return fmt.Sprintf("structured output does not conform to schema: %v", e.Err)
}

func (e *StructuredOutputError) Unwrap() error { return e.Err }
