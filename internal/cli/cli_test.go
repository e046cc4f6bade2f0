package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

const paper = `LLM-as-a-Judge uses large language models to evaluate other models.

The two main challenges are reliability and bias. Judges may prefer longer answers and may be swayed by position.

Calibration and multiple judges reduce these problems.

In conclusion, careful prompt design improves agreement with human raters.`

// writeConfig writes a document and a tfidf-backed config into a temp dir
// and returns the config path.
func writeConfig(t *testing.T, llmBaseURL, artifact string) string {
	t.Helper()
	dir := t.TempDir()
	doc := filepath.Join(dir, "paper.txt")
	require.NoError(t, os.WriteFile(doc, []byte(paper), 0o644))

	t.Setenv("PDFRAG_TEST_KEY", "sk-test")
	cfg := fmt.Sprintf(`llm:
  provider: openai
  base_url: %q
  api_key_env: PDFRAG_TEST_KEY
  max_retries: -1
embedder:
  type: tfidf
chunker:
  size: 120
  overlap: 30
document:
  path: %q
output:
  artifact_path: %q
log:
  level: error
`, llmBaseURL, doc, artifact)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		cfgPath, verbose, pdfPath, searchK = "", false, "", 0
	}()
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersionCmd_Executes(t *testing.T) {
	original := version
	version = "test-1.0.0"
	defer func() { version = original }()

	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "pdfrag version test-1.0.0")
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"ask", "search", "chat", "version"} {
		assert.True(t, names[want], want)
	}
}

func TestSearchCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := run(t, "search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSearchCmd_ReturnsNearestChunk(t *testing.T) {
	path := writeConfig(t, "http://127.0.0.1:1", "")

	out, err := run(t, "--config", path, "search", "-k", "1", "prompt design human raters")
	require.NoError(t, err)
	assert.Contains(t, out, "Results:")
	assert.Contains(t, out, "[1] page=1 section=end")
	assert.Contains(t, out, "prompt design")
	assert.NotContains(t, out, "[2]")
}

func TestSearchCmd_MissingDocument(t *testing.T) {
	path := writeConfig(t, "http://127.0.0.1:1", "")

	_, err := run(t, "--config", path, "--pdf", filepath.Join(t.TempDir(), "missing.pdf"), "search", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document not found")
}

func TestAskCmd_RunsPipeline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		content := "Reliability and bias."
		if _, ok := req["response_format"]; ok {
			content = `{"query":"main challenges reliability bias","section":"end"}`
		}
		resp := map[string]any{"choices": []any{map[string]any{
			"message":       map[string]any{"content": content},
			"finish_reason": "stop",
		}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	artifact := filepath.Join(t.TempDir(), "output_example.txt")
	path := writeConfig(t, srv.URL, artifact)

	out, err := run(t, "--config", path, "ask", "What are the two main challenges?")
	require.NoError(t, err)
	assert.Contains(t, out, "---RAG Pipeline Result ---")
	assert.Contains(t, out, "Question: What are the two main challenges?")
	assert.Contains(t, out, "Generated Answer: Reliability and bias.")
	assert.Contains(t, out, "Saved to "+artifact)

	data, err := os.ReadFile(artifact)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Reliability and bias.")
}

func TestAskCmd_VerboseShowsIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		content := "Calibration."
		if _, ok := req["response_format"]; ok {
			content = `{"query":"calibration","section":"middle-2"}`
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{map[string]any{
			"message": map[string]any{"content": content},
		}}})
	}))
	defer srv.Close()

	var logs bytes.Buffer
	original := stderrSink
	stderrSink = zapcore.AddSync(&logs)
	defer func() { stderrSink = original }()

	path := writeConfig(t, srv.URL, "")
	out, err := run(t, "--config", path, "--verbose", "ask", "How are judges calibrated?")
	require.NoError(t, err)
	assert.Contains(t, out, "-dimensional vectors")
	assert.Contains(t, out, "Document overview:")
	assert.Contains(t, out, "beginning  (")
	assert.Contains(t, out, "Structured query:")
	assert.Contains(t, logs.String(), "document indexed")
}

func TestChat_LogsStayOffStderr(t *testing.T) {
	var stderr bytes.Buffer
	original := stderrSink
	stderrSink = zapcore.AddSync(&stderr)
	defer func() { stderrSink = original }()

	path := writeConfig(t, "http://127.0.0.1:1", "")
	cfgPath = path
	defer func() { cfgPath = "" }()

	_, svc, logger, closeSink, err := prepareChat()
	require.NoError(t, err)
	_, err = svc.Ingest(context.Background())
	require.NoError(t, err)
	logger.Error("visible only in the log file")
	require.NoError(t, logger.Sync())
	require.NoError(t, closeSink())
	assert.Empty(t, stderr.String())

	logFile := filepath.Join(t.TempDir(), "chat.log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = fmt.Fprintf(f, "  file: %q\n", logFile)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, _, logger, closeSink, err = prepareChat()
	require.NoError(t, err)
	logger.Error("chat started")
	require.NoError(t, logger.Sync())
	require.NoError(t, closeSink())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "chat started")
	assert.Empty(t, stderr.String())
}

func TestAskCmd_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sections:\n  partitions: 5\n"), 0o644))

	_, err := run(t, "--config", path, "ask", "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sections.partitions")
}
