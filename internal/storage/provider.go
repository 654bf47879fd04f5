// Package storage defines the project-directory file-system abstraction.
package storage

// Provider is the interface for project file operations.
type Provider interface {
	// Root returns the absolute path of the project directory.
	Root() string
	// ListMarkdown walks dir (relative to the project root, "" for the whole
	// project) and returns the relative slash paths of every qualifying
	// Markdown file. Unreadable entries are skipped rather than fatal.
	ListMarkdown(dir string) ([]string, error)
	// Read returns the raw bytes of the file at path (relative to the root).
	Read(path string) ([]byte, error)
	// WriteFile atomically writes content to path (relative to the root).
	WriteFile(path string, content []byte) error
	// Remove deletes the file at path (relative to the root). A missing
	// file is not an error.
	Remove(path string) error
	// Rel converts an absolute or project-relative path to the canonical
	// relative slash form used as an index key.
	Rel(path string) (string, error)
	// Abs resolves a relative path to an absolute path under the root.
	Abs(rel string) string
}
