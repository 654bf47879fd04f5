// Package index maintains the front-matter index of a Markdown project:
// one entry per qualifying document, a derived tag-frequency table, and a
// persisted JSON snapshot at the project root.
package index

import (
	"fmt"
	"path"
	"strings"

	"github.com/mcgivrer/marknote/internal/frontmatter"
)

// Entry is one document's cached metadata, keyed by its project-relative
// path. Entries are replaced wholesale on re-index, never patched.
type Entry struct {
	RelativePath string
	Filename     string
	UUID         string
	Title        string
	Authors      []string
	Tags         []string
	Summary      string
	CreatedAt    string
	Draft        bool
	Links        []string
}

// NewEntry builds an entry for the document at rel from its raw content.
// A document without front matter still gets an entry with blank fields.
func NewEntry(rel string, content []byte) *Entry {
	e := &Entry{
		RelativePath: rel,
		Filename:     path.Base(rel),
	}
	fm, ok := frontmatter.Parse(string(content))
	if !ok {
		return e
	}
	e.UUID = fm.Get(frontmatter.KeyUUID)
	e.Title = fm.Get(frontmatter.KeyTitle)
	e.Authors = fm.List(frontmatter.KeyAuthor)
	e.Tags = fm.List(frontmatter.KeyTags)
	e.Summary = fm.Get(frontmatter.KeySummary)
	e.CreatedAt = fm.Get(frontmatter.KeyCreatedAt)
	e.Draft = fm.Draft()
	e.Links = fm.List(frontmatter.KeyLinks)
	return e
}

// DisplayTitle returns the front-matter title if non-blank, else the
// filename. Used wherever a human-readable label is needed.
func (e *Entry) DisplayTitle() string {
	if strings.TrimSpace(e.Title) != "" {
		return e.Title
	}
	return e.Filename
}

// CreatedAtValid reports whether the created_at value is in an accepted
// form. Advisory only; an invalid date never blocks indexing.
func (e *Entry) CreatedAtValid() bool {
	return frontmatter.ValidCreatedAt(e.CreatedAt)
}

// Match tests query as a case-insensitive substring over the entry's fields
// in priority order: title, filename, each tag, summary, each author, uuid.
// It returns a "Field: value" description for the first field that matches;
// multiple matches on the same entry are not aggregated.
func (e *Entry) Match(query string) (string, bool) {
	q := strings.ToLower(query)
	if q == "" {
		return "", false
	}
	contains := func(v string) bool {
		return strings.Contains(strings.ToLower(v), q)
	}

	if contains(e.Title) {
		return fmt.Sprintf("Title: %s", e.Title), true
	}
	if contains(e.Filename) {
		return fmt.Sprintf("Filename: %s", e.Filename), true
	}
	for _, tag := range e.Tags {
		if contains(tag) {
			return fmt.Sprintf("Tag: %s", tag), true
		}
	}
	if contains(e.Summary) {
		return fmt.Sprintf("Summary: %s", e.Summary), true
	}
	for _, author := range e.Authors {
		if contains(author) {
			return fmt.Sprintf("Author: %s", author), true
		}
	}
	if contains(e.UUID) {
		return fmt.Sprintf("UUID: %s", e.UUID), true
	}
	return "", false
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	c := *e
	c.Authors = append([]string(nil), e.Authors...)
	c.Tags = append([]string(nil), e.Tags...)
	c.Links = append([]string(nil), e.Links...)
	return &c
}

// TagCount is one row of the derived tag-frequency table.
type TagCount struct {
	Tag   string
	Count int
}
