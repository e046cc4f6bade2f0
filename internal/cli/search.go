package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pdfrag/internal/domain"
)

var searchK int

var searchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Show the chunks most similar to a text",
	Long: `Runs a similarity search over the indexed document without query
analysis or answer generation. No chat model is called.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchK, "top-k", "k", 0, "number of chunks to return (default retrieval.top_k)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	_, svc, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	results, err := svc.Search(cmd.Context(), args[0], searchK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	printResults(cmd.OutOrStdout(), results)
	return nil
}

func printResults(w io.Writer, results []domain.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}
	fmt.Fprintln(w, "Results:")
	for i, r := range results {
		fmt.Fprintf(w, "\n[%d] page=%d section=%s score=%.4f\n", i+1, r.Chunk.Page, r.Chunk.Section(), r.Score)
		fmt.Fprintln(w, r.Chunk.Text)
	}
}
