// Package testutil provides shared test helpers for setting up project
// directories and index stores.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/mcgivrer/marknote/internal/index"
	"github.com/mcgivrer/marknote/internal/storage"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestProject creates a temporary project directory with a storage.Provider.
func TestProject(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// TestStore creates a store over a fresh temporary project.
func TestStore(t *testing.T) (string, *index.Store) {
	t.Helper()
	dir, fs := TestProject(t)
	return dir, index.NewStore(fs, Logger(), nil)
}

// WriteDoc writes a Markdown document with the given front-matter lines and
// body into the project directory, creating parent directories as needed.
func WriteDoc(t *testing.T, projectDir, rel string, fmLines []string, body string) {
	t.Helper()
	content := ""
	if len(fmLines) > 0 {
		content = "---\n"
		for _, line := range fmLines {
			content += line + "\n"
		}
		content += "---\n"
	}
	content += body

	abs := filepath.Join(projectDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
