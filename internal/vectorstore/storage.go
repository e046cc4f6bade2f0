package vectorstore

import (
	"context"

	"pdfrag/internal/domain"
)

// Storage embeds chunks once and answers similarity queries over them.
type Storage interface {
	domain.VectorIndex
	InsertAll(ctx context.Context, chunks []domain.Chunk) error
	// Dimension is the length of the stored vectors, 0 while empty.
	Dimension() int
}
