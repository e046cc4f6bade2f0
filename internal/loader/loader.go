// Package loader reads documents into page-level text.
package loader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"pdfrag/internal/domain"
)

// FileLoader loads PDFs page by page and plain text files as a single page.
type FileLoader struct {
	logger *zap.Logger
}

func NewFileLoader(logger *zap.Logger) *FileLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileLoader{logger: logger}
}

// Load reads path. A missing file yields domain.ErrDocumentNotFound. Pages
// keep their 1-based numbers even when a page has no extractable text.
func (l *FileLoader) Load(ctx context.Context, path string) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}
	id, err := documentID(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Document{}, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, path)
		}
		return domain.Document{}, err
	}

	var pages []domain.Page
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		pages, err = l.loadPDF(ctx, path)
	case ".txt", ".md", ".text":
		pages, err = loadText(path)
	default:
		return domain.Document{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedDocument, filepath.Ext(path))
	}
	if err != nil {
		return domain.Document{}, err
	}

	doc := domain.Document{ID: id, Path: path, Pages: pages}
	l.logger.Info("document loaded",
		zap.String("path", path),
		zap.Int("pages", len(pages)),
		zap.Int("characters", doc.CharCount()))
	return doc, nil
}

func (l *FileLoader) loadPDF(ctx context.Context, path string) ([]domain.Page, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	n := r.NumPage()
	pages := make([]domain.Page, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, domain.Page{Number: i})
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			l.logger.Warn("page text extraction failed", zap.Int("page", i), zap.Error(err))
			pages = append(pages, domain.Page{Number: i})
			continue
		}
		pages = append(pages, domain.Page{Number: i, Text: SanitizeText(text)})
	}
	return pages, nil
}

func loadText(path string) ([]domain.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	return []domain.Page{{Number: 1, Text: SanitizeText(string(data))}}, nil
}

func documentID(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil))[:16], nil
}

// SanitizeText drops NUL and other non-printing control characters except
// common whitespace, and trims the result.
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	r := make([]rune, 0, len(s))
	for _, ch := range s {
		if ch == '\n' || ch == '\r' || ch == '\t' {
			r = append(r, ch)
			continue
		}
		if ch < 0x20 || ch == 0x7f {
			continue
		}
		r = append(r, ch)
	}
	return strings.TrimSpace(string(r))
}
