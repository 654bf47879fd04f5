package index

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/mcgivrer/marknote/internal/apperr"
	"github.com/mcgivrer/marknote/internal/storage"
)

// Event kinds reported to the store's callback after each mutation.
const (
	EventUpdated = "updated"
	EventRemoved = "removed"
	EventRebuilt = "rebuilt"
	EventReset   = "reset"
)

// EventCallback is called after an index mutation. For EventRebuilt and
// EventReset the path is empty.
type EventCallback func(kind string, path string)

// Result is one search hit: the entry and a human-readable description of
// the first field the query matched.
type Result struct {
	Entry *Entry
	Match string
}

// Store holds the current index of a project: one entry per qualifying
// Markdown file plus the derived tag-frequency table, persisted to a single
// JSON file at the project root.
//
// All mutations run under one mutex, so only a single logical writer is
// ever in flight; the async build stages its scan off-lock and swaps state
// under the same mutex.
type Store struct {
	mu      sync.Mutex
	fs      storage.Provider
	logger  *slog.Logger
	notify  EventCallback
	entries []*Entry
	tags    []TagCount
}

// NewStore creates a store for the project rooted at fs. cb may be nil.
func NewStore(fs storage.Provider, logger *slog.Logger, cb EventCallback) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{fs: fs, logger: logger, notify: cb}
}

// ProjectDir returns the absolute project directory.
func (s *Store) ProjectDir() string {
	return s.fs.Root()
}

// ResolveFile returns the absolute path of the entry's document.
func (s *Store) ResolveFile(e *Entry) string {
	return s.fs.Abs(e.RelativePath)
}

// Build scans the whole project, fully replacing the in-memory entry set
// and tag counts, and persists the result. Unreadable files are logged and
// skipped; they never abort the scan.
func (s *Store) Build() error {
	paths, err := s.fs.ListMarkdown("")
	if err != nil {
		return fmt.Errorf("index: scan project: %w", err)
	}
	entries := s.scan(paths, nil)

	s.mu.Lock()
	s.entries = entries
	s.recountLocked()
	s.persistLocked()
	s.mu.Unlock()

	s.emit(EventRebuilt, "")
	return nil
}

// scan reads and indexes each relative path, reporting done/total after
// every file when progress is non-nil.
func (s *Store) scan(paths []string, progress func(done, total int)) []*Entry {
	entries := make([]*Entry, 0, len(paths))
	for i, rel := range paths {
		data, err := s.fs.Read(rel)
		if err != nil {
			s.logger.Warn("index: read failed, skipping",
				slog.String("path", rel), slog.String("error", err.Error()))
		} else {
			entries = append(entries, NewEntry(rel, data))
		}
		if progress != nil {
			progress(i+1, len(paths))
		}
	}
	return entries
}

// Load replaces the in-memory state from the persisted index file. It
// reports apperr.ErrNoIndex when the file is absent or cannot be decoded;
// callers are expected to fall back to Build. Tag counts are always
// recomputed from the loaded entries, never trusted from disk.
func (s *Store) Load() error {
	data, err := s.fs.Read(FileName)
	if err != nil {
		return fmt.Errorf("index: %w: %s", apperr.ErrNoIndex, FileName)
	}
	entries, err := decodeIndex(data)
	if err != nil {
		s.logger.Warn("index: corrupt index file", slog.String("error", err.Error()))
		return fmt.Errorf("index: %w: %s", apperr.ErrNoIndex, FileName)
	}

	s.mu.Lock()
	s.entries = entries
	s.recountLocked()
	s.mu.Unlock()
	return nil
}

// Reset deletes the persisted index file and clears the in-memory state.
// It does not rebuild; a rebuild must be triggered explicitly afterward.
func (s *Store) Reset() error {
	s.mu.Lock()
	s.entries = nil
	s.tags = nil
	err := s.fs.Remove(FileName)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("index: reset: %w", err)
	}
	s.emit(EventReset, "")
	return nil
}

// UpdateFile re-indexes a single file: the previous entry for its relative
// path is removed, and the file is re-parsed if it still exists on disk.
// Non-qualifying paths are ignored.
func (s *Store) UpdateFile(file string) error {
	rel, err := s.fs.Rel(file)
	if err != nil {
		return err
	}
	if !storage.Qualifies(path.Base(rel)) {
		return nil
	}

	s.mu.Lock()
	s.removeEntryLocked(rel)
	removed := true
	if data, readErr := s.fs.Read(rel); readErr == nil {
		s.upsertLocked(NewEntry(rel, data))
		removed = false
	}
	s.recountLocked()
	s.persistLocked()
	s.mu.Unlock()

	if removed {
		s.emit(EventRemoved, rel)
	} else {
		s.emit(EventUpdated, rel)
	}
	return nil
}

// RemoveFile drops the entry whose relative path matches file. The file
// need not still exist on disk.
func (s *Store) RemoveFile(file string) error {
	rel, err := s.fs.Rel(file)
	if err != nil {
		return err
	}

	s.mu.Lock()
	dropped := s.removeEntryLocked(rel)
	s.recountLocked()
	s.persistLocked()
	s.mu.Unlock()

	if dropped {
		s.emit(EventRemoved, rel)
	}
	return nil
}

// RemoveFilesUnder drops every entry whose relative path lies under dir.
func (s *Store) RemoveFilesUnder(dir string) error {
	rel, err := s.fs.Rel(dir)
	if err != nil {
		return err
	}

	s.mu.Lock()
	removed := s.removePrefixLocked(rel)
	s.recountLocked()
	s.persistLocked()
	s.mu.Unlock()

	for _, r := range removed {
		s.emit(EventRemoved, r)
	}
	return nil
}

// Rename handles a single rename. If either endpoint is a directory the
// store falls back to a full rebuild: a directory rename changes every
// descendant's relative path, which is cheaper to recompute wholesale.
func (s *Store) Rename(oldFile, newFile string) error {
	oldRel, err := s.fs.Rel(oldFile)
	if err != nil {
		return err
	}
	newRel, err := s.fs.Rel(newFile)
	if err != nil {
		return err
	}
	if isDir(s.fs.Abs(oldRel)) || isDir(s.fs.Abs(newRel)) {
		return s.Build()
	}

	var indexed bool
	s.mu.Lock()
	s.removeEntryLocked(oldRel)
	if storage.Qualifies(path.Base(newRel)) {
		if data, readErr := s.fs.Read(newRel); readErr == nil {
			s.upsertLocked(NewEntry(newRel, data))
			indexed = true
		}
	}
	s.recountLocked()
	s.persistLocked()
	s.mu.Unlock()

	s.emit(EventRemoved, oldRel)
	if indexed {
		s.emit(EventUpdated, newRel)
	}
	return nil
}

// Move re-homes the given pre-move files or directories under targetDir.
// Directory moves drop every old prefix entry and re-index whatever now
// qualifies under the destination; file moves replace the single entry.
// Tag counts are recomputed once at the end.
func (s *Store) Move(movedFiles []string, targetDir string) error {
	targetRel, err := s.fs.Rel(targetDir)
	if err != nil {
		return err
	}

	var removedEvents, updatedEvents []string

	s.mu.Lock()
	for _, moved := range movedFiles {
		oldRel, relErr := s.fs.Rel(moved)
		if relErr != nil {
			s.logger.Warn("index: move: bad source path",
				slog.String("path", moved), slog.String("error", relErr.Error()))
			continue
		}
		destRel := path.Join(targetRel, path.Base(oldRel))

		info, statErr := os.Stat(s.fs.Abs(destRel))
		switch {
		case statErr == nil && info.IsDir():
			removedEvents = append(removedEvents, s.removePrefixLocked(oldRel)...)
			updatedEvents = append(updatedEvents, s.indexUnderLocked(destRel)...)
		case statErr == nil:
			if s.removeEntryLocked(oldRel) {
				removedEvents = append(removedEvents, oldRel)
			}
			if storage.Qualifies(path.Base(destRel)) {
				if data, readErr := s.fs.Read(destRel); readErr == nil {
					s.upsertLocked(NewEntry(destRel, data))
					updatedEvents = append(updatedEvents, destRel)
				}
			}
		default:
			// Destination missing; at least drop the stale source entries.
			if s.removeEntryLocked(oldRel) {
				removedEvents = append(removedEvents, oldRel)
			}
			removedEvents = append(removedEvents, s.removePrefixLocked(oldRel)...)
		}
	}
	s.recountLocked()
	s.persistLocked()
	s.mu.Unlock()

	for _, r := range removedEvents {
		s.emit(EventRemoved, r)
	}
	for _, u := range updatedEvents {
		s.emit(EventUpdated, u)
	}
	return nil
}

// Copy indexes the duplicates now present under targetDir for each source
// file or directory. The originals' entries are untouched.
func (s *Store) Copy(copiedFiles []string, targetDir string) error {
	targetRel, err := s.fs.Rel(targetDir)
	if err != nil {
		return err
	}

	var updatedEvents []string

	s.mu.Lock()
	for _, src := range copiedFiles {
		srcRel, relErr := s.fs.Rel(src)
		if relErr != nil {
			s.logger.Warn("index: copy: bad source path",
				slog.String("path", src), slog.String("error", relErr.Error()))
			continue
		}
		destRel := path.Join(targetRel, path.Base(srcRel))

		info, statErr := os.Stat(s.fs.Abs(destRel))
		switch {
		case statErr == nil && info.IsDir():
			updatedEvents = append(updatedEvents, s.indexUnderLocked(destRel)...)
		case statErr == nil:
			if storage.Qualifies(path.Base(destRel)) {
				if data, readErr := s.fs.Read(destRel); readErr == nil {
					s.upsertLocked(NewEntry(destRel, data))
					updatedEvents = append(updatedEvents, destRel)
				}
			}
		}
	}
	s.recountLocked()
	s.persistLocked()
	s.mu.Unlock()

	for _, u := range updatedEvents {
		s.emit(EventUpdated, u)
	}
	return nil
}

// Search tests every entry against query in iteration order and returns
// the hits. A blank query yields no results.
func (s *Store) Search(query string) []Result {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Result
	for _, e := range s.entries {
		if desc, ok := e.Match(query); ok {
			out = append(out, Result{Entry: e, Match: desc})
		}
	}
	return out
}

// TagCounts returns the tag-frequency table sorted descending by count.
func (s *Store) TagCounts() []TagCount {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TagCount, len(s.tags))
	copy(out, s.tags)
	return out
}

// Entries returns all current entries in iteration order.
func (s *Store) Entries() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Entry returns the entry for the given relative path, or nil.
func (s *Store) Entry(rel string) *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.RelativePath == rel {
			return e
		}
	}
	return nil
}

// upsertLocked inserts the entry, replacing any existing entry with the
// same relative path in place.
func (s *Store) upsertLocked(e *Entry) {
	for i, have := range s.entries {
		if have.RelativePath == e.RelativePath {
			s.entries[i] = e
			return
		}
	}
	s.entries = append(s.entries, e)
}

func (s *Store) removeEntryLocked(rel string) bool {
	for i, e := range s.entries {
		if e.RelativePath == rel {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

// removePrefixLocked drops every entry under the directory rel and returns
// the removed relative paths.
func (s *Store) removePrefixLocked(rel string) []string {
	prefix := rel + "/"
	all := rel == "." || rel == ""

	var removed []string
	kept := s.entries[:0]
	for _, e := range s.entries {
		if all || strings.HasPrefix(e.RelativePath, prefix) {
			removed = append(removed, e.RelativePath)
		} else {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	return removed
}

// indexUnderLocked scans the directory rel and indexes every qualifying
// file found, returning the indexed relative paths.
func (s *Store) indexUnderLocked(rel string) []string {
	files, err := s.fs.ListMarkdown(rel)
	if err != nil {
		s.logger.Warn("index: scan dir failed",
			slog.String("path", rel), slog.String("error", err.Error()))
		return nil
	}
	var indexed []string
	for _, f := range files {
		data, readErr := s.fs.Read(f)
		if readErr != nil {
			s.logger.Warn("index: read failed, skipping",
				slog.String("path", f), slog.String("error", readErr.Error()))
			continue
		}
		s.upsertLocked(NewEntry(f, data))
		indexed = append(indexed, f)
	}
	return indexed
}

// recountLocked rebuilds the tag-frequency table from scratch over all
// entries: tags compared lower-cased and trimmed, table sorted descending
// by count with first-occurrence order breaking ties.
func (s *Store) recountLocked() {
	counts := make(map[string]int)
	var order []string
	for _, e := range s.entries {
		for _, tag := range e.Tags {
			norm := strings.ToLower(strings.TrimSpace(tag))
			if norm == "" {
				continue
			}
			if _, seen := counts[norm]; !seen {
				order = append(order, norm)
			}
			counts[norm]++
		}
	}

	tags := make([]TagCount, 0, len(order))
	for _, tag := range order {
		tags = append(tags, TagCount{Tag: tag, Count: counts[tag]})
	}
	sort.SliceStable(tags, func(i, j int) bool {
		return tags[i].Count > tags[j].Count
	})
	s.tags = tags
}

// persistLocked serializes the store to the index file. A write failure is
// logged, not returned: the in-memory state stays authoritative for the
// rest of the session.
func (s *Store) persistLocked() {
	data := encodeIndex(s.fs.Root(), s.entries, s.tags)
	if err := s.fs.WriteFile(FileName, data); err != nil {
		s.logger.Warn("index: persist failed", slog.String("error", err.Error()))
	}
}

func (s *Store) emit(kind, path string) {
	if s.notify != nil {
		s.notify(kind, path)
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
