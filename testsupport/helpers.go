package testsupport

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// DiscardLogger returns a logger that drops all output. Use it where a
// component wants a logger and the test does not inspect log messages.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WriteConfig writes a config file into a fresh temp directory and
// returns the directory, ready for Properties(...).Path.
func WriteConfig(t *testing.T, filename, content string) string {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0o644); err != nil {
		t.Fatalf("testsupport: write config file %s: %v", filename, err)
	}
	return dir
}

// WriteMessages writes message bundle files into a fresh temp directory
// and returns the directory, ready for Messages(...).Dir. Keys are file
// names such as "messages.properties" or "messages_fr.properties".
func WriteMessages(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("testsupport: write message file %s: %v", name, err)
		}
	}
	return dir
}
