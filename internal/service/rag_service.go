package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"pdfrag/internal/analyzer"
	"pdfrag/internal/artifact"
	"pdfrag/internal/domain"
	"pdfrag/internal/generator"
	"pdfrag/internal/prompt"
	"pdfrag/internal/retriever"
	"pdfrag/internal/section"
	"pdfrag/internal/summarizer"
	"pdfrag/internal/vectorstore"
)

// Dependencies are the pipeline stages the service drives.
type Dependencies struct {
	Loader   domain.Loader
	Chunker  domain.Chunker
	Tagger   *section.Tagger
	Embedder domain.Embedder
	Store    vectorstore.Storage
	Analyzer *analyzer.Analyzer
	Model    domain.ChatModel
	Prompts  *prompt.Store
	Overview *summarizer.Overview
	Logger   *zap.Logger
}

type Options struct {
	DocumentPath string
	PromptID     string
	TopK         int
	SectionMode  retriever.Mode
	Temperature  float64
	MaxTokens    int
	// ArtifactPath is rewritten after every answer; empty disables it.
	ArtifactPath string
}

// IngestStats summarises a completed ingest.
type IngestStats struct {
	Pages      int
	Characters int
	Chunks     int
	Dimension  int
	Warnings   []string
}

// RAGService answers questions about a single document. Ingest succeeds at
// most once; every Ask is independent of previous ones.
type RAGService struct {
	deps      Dependencies
	opts      Options
	retriever *retriever.Retriever
	logger    *zap.Logger

	ingestMu sync.Mutex
	ingested bool
	stats    IngestStats
	chunks   []domain.Chunk
}

func NewRAGService(deps Dependencies, opts Options) (*RAGService, error) {
	if deps.Loader == nil || deps.Chunker == nil || deps.Tagger == nil || deps.Embedder == nil ||
		deps.Store == nil || deps.Analyzer == nil || deps.Model == nil || deps.Prompts == nil {
		return nil, errors.New("service: missing pipeline dependency")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Overview == nil {
		deps.Overview = summarizer.NewOverview(0)
	}
	if opts.PromptID == "" {
		opts.PromptID = prompt.RAGPromptID
	}
	return &RAGService{
		deps:      deps,
		opts:      opts,
		retriever: retriever.New(deps.Store, opts.TopK, opts.SectionMode, deps.Logger),
		logger:    deps.Logger,
	}, nil
}

// Ingest loads, chunks, tags and indexes the document. After a success later
// calls return the same stats; after a failure the next call tries again.
func (s *RAGService) Ingest(ctx context.Context) (IngestStats, error) {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()
	if s.ingested {
		return s.stats, nil
	}
	stats, chunks, err := s.ingest(ctx)
	if err != nil {
		return IngestStats{}, err
	}
	s.stats, s.chunks, s.ingested = stats, chunks, true
	return stats, nil
}

func (s *RAGService) ingest(ctx context.Context) (IngestStats, []domain.Chunk, error) {
	doc, err := s.deps.Loader.Load(ctx, s.opts.DocumentPath)
	if err != nil {
		return IngestStats{}, nil, err
	}
	chunks, err := s.deps.Chunker.Chunk(doc)
	if err != nil {
		return IngestStats{}, nil, fmt.Errorf("chunk document: %w", err)
	}
	chunks = s.deps.Tagger.Tag(chunks)

	stats := IngestStats{Pages: len(doc.Pages), Characters: doc.CharCount(), Chunks: len(chunks)}
	s.logger.Info("document split",
		zap.Int("chunks", len(chunks)),
		zap.Int("characters", stats.Characters))

	if len(chunks) == 0 {
		msg := "document has no extractable text; answers will have no context"
		s.logger.Warn(msg, zap.String("path", doc.Path))
		stats.Warnings = append(stats.Warnings, msg)
	} else {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		if err := s.deps.Embedder.Prepare(texts); err != nil {
			return IngestStats{}, nil, fmt.Errorf("prepare embedder: %w", err)
		}
	}
	if err := s.deps.Store.InsertAll(ctx, chunks); err != nil {
		return IngestStats{}, nil, fmt.Errorf("build index: %w", err)
	}
	stats.Dimension = s.deps.Store.Dimension()
	return stats, chunks, nil
}

// Ask runs query analysis, retrieval and generation for one question.
func (s *RAGService) Ask(ctx context.Context, question string) (domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Answer{}, domain.ErrEmptyQuestion
	}
	if _, err := s.Ingest(ctx); err != nil {
		return domain.Answer{}, err
	}
	s.logger.Info("running RAG pipeline", zap.String("question", question))

	sq, err := s.deps.Analyzer.Analyze(ctx, question)
	if err != nil {
		return domain.Answer{}, err
	}
	retrieved, err := s.retriever.Retrieve(ctx, sq)
	if err != nil {
		return domain.Answer{}, err
	}

	tpl, err := s.deps.Prompts.Load(ctx, s.opts.PromptID)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("load prompt: %w", err)
	}
	gen := generator.New(s.deps.Model, tpl, generator.Options{
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
		Logger:      s.logger,
	})
	out, err := gen.Generate(ctx, question, retrieved)
	if err != nil {
		return domain.Answer{}, err
	}

	answer := domain.Answer{
		Question:  question,
		Query:     sq,
		Retrieved: retrieved,
		Text:      out.Text,
		Warnings:  out.Warnings,
	}
	if s.opts.ArtifactPath != "" {
		if err := artifact.Write(s.opts.ArtifactPath, question, retrieved, out.Text); err != nil {
			s.logger.Warn("could not write output file", zap.String("path", s.opts.ArtifactPath), zap.Error(err))
			answer.Warnings = append(answer.Warnings, "output file not written: "+err.Error())
		} else {
			answer.ArtifactPath = s.opts.ArtifactPath
			s.logger.Info("output saved", zap.String("path", s.opts.ArtifactPath))
		}
	}
	return answer, nil
}

// Search runs a raw similarity search without the language model.
func (s *RAGService) Search(ctx context.Context, text string, k int) ([]domain.SearchResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyQuestion
	}
	if _, err := s.Ingest(ctx); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = s.opts.TopK
	}
	return s.deps.Store.Search(ctx, text, k)
}

// Overview returns the representative sentence of each section band of the
// ingested document.
func (s *RAGService) Overview() []summarizer.Highlight {
	s.ingestMu.Lock()
	chunks := s.chunks
	s.ingestMu.Unlock()
	return s.deps.Overview.Summarize(chunks, s.deps.Tagger.Labels())
}

// ReloadPrompt drops cached prompt templates so the next question fetches
// the template again.
func (s *RAGService) ReloadPrompt() {
	s.deps.Prompts.Reload()
	s.logger.Info("prompt cache cleared", zap.String("id", s.opts.PromptID))
}
