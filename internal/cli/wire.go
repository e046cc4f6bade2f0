package cli

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"pdfrag/internal/analyzer"
	"pdfrag/internal/chunker"
	"pdfrag/internal/config"
	"pdfrag/internal/domain"
	"pdfrag/internal/embedding"
	"pdfrag/internal/llm"
	"pdfrag/internal/loader"
	"pdfrag/internal/prompt"
	"pdfrag/internal/retriever"
	"pdfrag/internal/section"
	"pdfrag/internal/service"
	"pdfrag/internal/summarizer"
	"pdfrag/internal/vectorstore/memory"
)

// buildService assembles the pipeline described by cfg.
func buildService(cfg *config.AppConfig, logger *zap.Logger) (*service.RAGService, error) {
	tagger, err := section.NewTagger(cfg.Sections.Partitions)
	if err != nil {
		return nil, err
	}
	emb, err := embedding.New(cfg.Embedder, logger.Named("embedder"))
	if err != nil {
		return nil, err
	}
	model, err := llm.New(cfg.LLM, logger.Named("llm"))
	if err != nil {
		return nil, err
	}
	an, err := analyzer.New(model, tagger.Labels(), logger.Named("analyzer"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrModelInit, err)
	}
	mode, err := retriever.ParseMode(cfg.Retrieval.SectionMode)
	if err != nil {
		return nil, err
	}
	src, err := prompt.NewSource(cfg.Prompt.Source, cfg.Prompt.Path, cfg.Prompt.BaseURL,
		time.Duration(cfg.Prompt.TimeoutSecs)*time.Second)
	if err != nil {
		return nil, err
	}

	return service.NewRAGService(service.Dependencies{
		Loader:   loader.NewFileLoader(logger.Named("loader")),
		Chunker:  chunker.NewBoundaryChunker(cfg.Chunker.Size, cfg.Chunker.Overlap),
		Tagger:   tagger,
		Embedder: emb,
		Store:    memory.NewStorage(emb, memory.Options{BatchSize: cfg.Embedder.BatchSize, Logger: logger.Named("index")}),
		Analyzer: an,
		Model:    model,
		Prompts:  prompt.NewStore(src, logger.Named("prompt")),
		Overview: summarizer.NewOverview(0),
		Logger:   logger,
	}, service.Options{
		DocumentPath: cfg.Document.Path,
		PromptID:     cfg.Prompt.ID,
		TopK:         cfg.Retrieval.TopK,
		SectionMode:  mode,
		Temperature:  cfg.LLM.Temperature,
		MaxTokens:    cfg.LLM.MaxTokens,
		ArtifactPath: cfg.Output.ArtifactPath,
	})
}

// setup loads config and builds the service for a command logging to stderr.
func setup() (*config.AppConfig, *service.RAGService, *zap.Logger, error) {
	cfg, path, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := newLogger(cfg, path, stderrSink)
	if err != nil {
		return nil, nil, nil, err
	}
	svc, err := buildService(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, err
	}
	return cfg, svc, logger, nil
}
