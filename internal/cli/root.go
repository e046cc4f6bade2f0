// Package cli implements the pdfrag command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pdfrag/internal/config"
	"pdfrag/internal/logging"
)

var version = "dev"

var (
	cfgPath string
	verbose bool
	pdfPath string
)

// stderrSink receives the logs of the non-interactive commands.
var stderrSink zapcore.WriteSyncer = zapcore.Lock(os.Stderr)

var rootCmd = &cobra.Command{
	Use:   "pdfrag",
	Short: "Ask questions about a PDF with retrieval-augmented generation",
	Long: `pdfrag loads a PDF, splits it into section-tagged chunks, indexes them
in memory and answers questions with a language model grounded on the
most similar chunks.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config (default ./config.yaml or ~/.config/pdfrag/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging and extra output")
	rootCmd.PersistentFlags().StringVar(&pdfPath, "pdf", "", "document to load, overrides document.path")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig resolves the config file, applies flag overrides and validates it.
func loadConfig() (*config.AppConfig, string, error) {
	var (
		cfg  *config.AppConfig
		path = cfgPath
		err  error
	)
	if path == "" {
		cfg, path, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}
	if pdfPath != "" {
		cfg.Document.Path = pdfPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, path, nil
}

// newLogger builds the logger on sink and reports non-fatal config problems.
func newLogger(cfg *config.AppConfig, path string, sink zapcore.WriteSyncer) (*zap.Logger, error) {
	logger, err := logging.NewWithSink(cfg.Log.Level, verbose, sink)
	if err != nil {
		return nil, err
	}
	logger.Debug("config loaded", zap.String("path", path))
	for _, w := range cfg.Check() {
		logger.Warn(w)
	}
	logger.Info(cfg.TracingStatus())
	return logger, nil
}
