// Package artifact writes the human-readable record of a single answer.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pdfrag/internal/domain"
)

// Render formats the question, the retrieved chunks in order and the answer.
func Render(question string, retrieved []domain.SearchResult, answer string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question:\n%s\n\n", question)
	b.WriteString("\n--- Retrieved Context Documents ---\n")
	for i, r := range retrieved {
		fmt.Fprintf(&b, "Document %d:\n%s\n---\n", i+1, r.Chunk.Text)
	}
	b.WriteString("Generated Answer:\n")
	b.WriteString(answer)
	return b.String()
}

// Write renders the answer and replaces path atomically.
func Write(path, question string, retrieved []domain.SearchResult, answer string) error {
	return WriteTextAtomic(path, Render(question, retrieved, answer))
}

// WriteTextAtomic writes content to a temp file next to path and renames it
// into place, so readers never see a partial file.
func WriteTextAtomic(path string, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "tmp-*.txt")
	if err != nil {
		return fmt.Errorf("create temp text: %w", err)
	}
	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write temp text: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp text: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename temp text: %w", err)
	}
	return nil
}
