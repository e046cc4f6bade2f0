package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pdfrag/internal/config"
	"pdfrag/internal/service"
	"pdfrag/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions interactively in a terminal UI",
	Long: `Indexes the document once and opens an interactive session. Every
question is answered independently. Logs go to log.file while the
session runs and are discarded when it is unset.

Controls:
  Enter    - Ask
  ↑/↓      - Cycle through the sources of the last answer
  Ctrl+R   - Reload the prompt template
  Ctrl+C   - Quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

// chatLogSink keeps logs off the terminal the TUI draws on.
func chatLogSink(cfg *config.AppConfig) (zapcore.WriteSyncer, func() error, error) {
	if cfg.Log.File == "" {
		return zapcore.AddSync(io.Discard), func() error { return nil }, nil
	}
	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return zapcore.Lock(f), f.Close, nil
}

// prepareChat builds the service with a logger that never writes to stderr.
func prepareChat() (*config.AppConfig, *service.RAGService, *zap.Logger, func() error, error) {
	cfg, path, err := loadConfig()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	sink, closeSink, err := chatLogSink(cfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	logger, err := newLogger(cfg, path, sink)
	if err != nil {
		_ = closeSink()
		return nil, nil, nil, nil, err
	}
	svc, err := buildService(cfg, logger)
	if err != nil {
		_ = closeSink()
		return nil, nil, nil, nil, err
	}
	return cfg, svc, logger, closeSink, nil
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, svc, logger, closeSink, err := prepareChat()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
		_ = closeSink()
	}()

	for _, w := range cfg.Check() {
		fmt.Fprintln(cmd.ErrOrStderr(), "Warning:", w)
	}
	if _, err := svc.Ingest(cmd.Context()); err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	m := tui.New(cmd.Context(), svc, filepath.Base(cfg.Document.Path), svc.Overview())
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
