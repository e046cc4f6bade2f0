package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pdfrag/internal/config"
	"pdfrag/internal/domain"
	"pdfrag/internal/summarizer"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one question about the document",
	Long: `Loads and indexes the document, then runs query analysis, retrieval and
generation for a single question. Without a question the default
LLM-as-a-Judge question is asked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := config.DefaultQuestion
	if len(args) == 1 {
		question = args[0]
	}

	_, svc, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	out := cmd.OutOrStdout()
	stats, err := svc.Ingest(cmd.Context())
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	logger.Info("document indexed",
		zap.Int("pages", stats.Pages),
		zap.Int("chunks", stats.Chunks),
		zap.Int("dimension", stats.Dimension))
	if verbose {
		fmt.Fprintf(out, "Indexed %d chunks from %d pages (%d-dimensional vectors)\n",
			stats.Chunks, stats.Pages, stats.Dimension)
		printOverview(out, svc.Overview())
	}

	fmt.Fprintf(out, "\nRunning RAG Pipeline for question: '%s'\n", question)
	ans, err := svc.Ask(cmd.Context(), question)
	if err != nil {
		return err
	}
	printAnswer(out, ans)
	return nil
}

func printAnswer(w io.Writer, ans domain.Answer) {
	fmt.Fprintln(w, "\n---RAG Pipeline Result ---")
	fmt.Fprintf(w, "Question: %s\n", ans.Question)
	for _, warn := range ans.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warn)
	}
	if verbose {
		fmt.Fprintf(w, "Structured query: query=%q section=%s\n", ans.Query.Query, ans.Query.Section)
		for i, r := range ans.Retrieved {
			fmt.Fprintf(w, "  [%d] page=%d section=%s score=%.3f\n", i+1, r.Chunk.Page, r.Chunk.Section(), r.Score)
		}
	}
	fmt.Fprintf(w, "\nGenerated Answer: %s\n", ans.Text)
	if ans.ArtifactPath != "" {
		fmt.Fprintf(w, "\nSaved to %s\n", ans.ArtifactPath)
	}
}

func printOverview(w io.Writer, highlights []summarizer.Highlight) {
	if len(highlights) == 0 {
		return
	}
	fmt.Fprintln(w, "Document overview:")
	for _, h := range highlights {
		fmt.Fprintf(w, "  %-10s (%d chunks) %s\n", h.Section, h.Chunks, strings.TrimSpace(h.Sentence))
	}
}
