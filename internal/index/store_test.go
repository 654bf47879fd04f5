package index

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/mcgivrer/marknote/internal/storage"
)

func testStore(t *testing.T) (string, *Store) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return dir, NewStore(fs, logger, nil)
}

// storeOver creates a second, independent store over an existing directory.
func storeOver(dir string) (*Store, error) {
	fs, err := storage.NewFS(dir)
	if err != nil {
		return nil, err
	}
	return NewStore(fs, slog.New(slog.NewTextHandler(io.Discard, nil)), nil), nil
}

func writeDoc(t *testing.T, dir, rel string, fmLines []string, body string) {
	t.Helper()
	content := ""
	if len(fmLines) > 0 {
		content = "---\n"
		for _, l := range fmLines {
			content += l + "\n"
		}
		content += "---\n"
	}
	content += body
	abs := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// byPath maps a store's entries by relative path for order-insensitive
// comparison.
func byPath(entries []*Entry) map[string]Entry {
	out := make(map[string]Entry, len(entries))
	for _, e := range entries {
		out[e.RelativePath] = *e
	}
	return out
}

func tagMap(tags []TagCount) map[string]int {
	out := make(map[string]int, len(tags))
	for _, tc := range tags {
		out[tc.Tag] = tc.Count
	}
	return out
}

// rebuildOracle builds a second store over the same directory and compares
// its state against got: full rebuild is the correctness oracle for every
// incremental operation.
func rebuildOracle(t *testing.T, dir string, got *Store) {
	t.Helper()
	oracleDir := dir
	fs, err := storage.NewFS(oracleDir)
	if err != nil {
		t.Fatal(err)
	}
	oracle := NewStore(fs, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	if err := oracle.Build(); err != nil {
		t.Fatalf("oracle Build: %v", err)
	}

	gotEntries := byPath(got.Entries())
	wantEntries := byPath(oracle.Entries())
	if !reflect.DeepEqual(gotEntries, wantEntries) {
		t.Errorf("entries diverge from rebuild oracle:\ngot  %v\nwant %v", gotEntries, wantEntries)
	}
	gotTags := tagMap(got.TagCounts())
	wantTags := tagMap(oracle.TagCounts())
	if !reflect.DeepEqual(gotTags, wantTags) {
		t.Errorf("tags diverge from rebuild oracle:\ngot  %v\nwant %v", gotTags, wantTags)
	}
}

func TestBuild_Scenario1(t *testing.T) {
	dir, s := testStore(t)
	writeDoc(t, dir, "a.md", []string{"title: Getting Started", "tags: [tutorial, guide]"}, "body\n")

	if err := s.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}

	results := s.Search("start")
	if len(results) != 1 {
		t.Fatalf("Search(start) = %d results, want 1", len(results))
	}
	if results[0].Match != "Title: Getting Started" {
		t.Errorf("match = %q", results[0].Match)
	}

	tags := tagMap(s.TagCounts())
	if tags["tutorial"] != 1 || tags["guide"] != 1 {
		t.Errorf("tags = %v", tags)
	}
}

func TestBuild_FiltersNonQualifying(t *testing.T) {
	dir, s := testStore(t)
	writeDoc(t, dir, "keep.md", []string{"title: Keep"}, "")
	writeDoc(t, dir, "upper.MD", nil, "no front matter")
	writeDoc(t, dir, ".dot.md", []string{"title: Hidden"}, "")
	writeDoc(t, dir, "note.txt", nil, "plain")

	if err := s.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	entries := byPath(s.Entries())
	if len(entries) != 2 {
		t.Fatalf("entries = %v, want keep.md and upper.MD", entries)
	}
	if _, ok := entries["upper.MD"]; !ok {
		t.Error("case-insensitive .md extension should qualify")
	}
	// A document with no front matter still gets a blank-field entry.
	if e := entries["upper.MD"]; e.Title != "" || e.UUID != "" {
		t.Errorf("expected blank metadata, got %+v", e)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	dir, s := testStore(t)
	writeDoc(t, dir, "a.md", []string{"title: A", "tags: [x]"}, "")
	writeDoc(t, dir, "sub/b.md", []string{"title: B", "tags: [x, y]"}, "")

	if err := s.Build(); err != nil {
		t.Fatal(err)
	}
	first := byPath(s.Entries())
	firstTags := tagMap(s.TagCounts())

	if err := s.Build(); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, byPath(s.Entries())) {
		t.Error("second build changed the entry set")
	}
	if !reflect.DeepEqual(firstTags, tagMap(s.TagCounts())) {
		t.Error("second build changed the tag counts")
	}
}

func TestUpdateFile_NewFileMatchesRebuild(t *testing.T) {
	dir, s := testStore(t)
	writeDoc(t, dir, "a.md", []string{"title: A"}, "")
	if err := s.Build(); err != nil {
		t.Fatal(err)
	}

	writeDoc(t, dir, "b.md", []string{"title: B", "tags: [fresh]"}, "")
	if err := s.UpdateFile(filepath.Join(dir, "b.md")); err != nil {
		t.Fatalf("UpdateFile: %v", err)
	}
	rebuildOracle(t, dir, s)
}

func TestUpdateFile_ReplacesNotDuplicates(t *testing.T) {
	dir, s := testStore(t)
	writeDoc(t, dir, "a.md", []string{"title: Old", "tags: [one]"}, "")
	if err := s.Build(); err != nil {
		t.Fatal(err)
	}

	writeDoc(t, dir, "a.md", []string{"title: New", "tags: [two]"}, "")
	if err := s.UpdateFile("a.md"); err != nil {
		t.Fatal(err)
	}

	entries := s.Entries()
	if len(entries) != 1 {
		t.Fatalf("len = %d, want 1", len(entries))
	}
	if entries[0].Title != "New" {
		t.Errorf("title = %q", entries[0].Title)
	}
	tags := tagMap(s.TagCounts())
	if tags["two"] != 1 || tags["one"] != 0 {
		t.Errorf("tags = %v", tags)
	}
}

func TestUpdateFile_DeletedOnDisk(t *testing.T) {
	dir, s := testStore(t)
	writeDoc(t, dir, "gone.md", []string{"title: Gone"}, "")
	if err := s.Build(); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(filepath.Join(dir, "gone.md")); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateFile("gone.md"); err != nil {
		t.Fatal(err)
	}
	if len(s.Entries()) != 0 {
		t.Error("entry for deleted file should be dropped")
	}
	rebuildOracle(t, dir, s)
}

func TestUpdateFile_IgnoresNonQualifying(t *testing.T) {
	dir, s := testStore(t)
	writeDoc(t, dir, "notes.txt", nil, "plain")
	if err := s.UpdateFile("notes.txt"); err != nil {
		t.Fatal(err)
	}
	if len(s.Entries()) != 0 {
		t.Error("non-markdown file must not be indexed")
	}
}

func TestRemoveFile_Scenario2(t *testing.T) {
	dir, s := testStore(t)
	writeDoc(t, dir, "a.md", []string{"tags: draft"}, "")
	writeDoc(t, dir, "b.md", []string{"tags: draft"}, "")
	if err := s.Build(); err != nil {
		t.Fatal(err)
	}
	if got := tagMap(s.TagCounts())["draft"]; got != 2 {
		t.Fatalf("draft count = %d, want 2", got)
	}

	if err := os.Remove(filepath.Join(dir, "a.md")); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveFile("a.md"); err != nil {
		t.Fatal(err)
	}
	if got := tagMap(s.TagCounts())["draft"]; got != 1 {
		t.Errorf("draft count = %d, want 1", got)
	}
	rebuildOracle(t, dir, s)
}

func TestRemoveFilesUnder(t *testing.T) {
	dir, s := testStore(t)
	writeDoc(t, dir, "keep.md", []string{"title: Keep"}, "")
	writeDoc(t, dir, "old/a.md", []string{"tags: [x]"}, "")
	writeDoc(t, dir, "old/deep/b.md", []string{"tags: [x]"}, "")
	if err := s.Build(); err != nil {
		t.Fatal(err)
	}

	if err := os.RemoveAll(filepath.Join(dir, "old")); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveFilesUnder("old"); err != nil {
		t.Fatal(err)
	}

	entries := byPath(s.Entries())
	if len(entries) != 1 {
		t.Fatalf("entries = %v, want only keep.md", entries)
	}
	if _, ok := tagMap(s.TagCounts())["x"]; ok {
		t.Error("tags from removed entries must disappear")
	}
	rebuildOracle(t, dir, s)
}

func TestRename_Scenario3(t *testing.T) {
	dir, s := testStore(t)
	writeDoc(t, dir, "notes/a.md", []string{"title: Alpha", "tags: [keep]"}, "")
	if err := s.Build(); err != nil {
		t.Fatal(err)
	}

	oldAbs := filepath.Join(dir, "notes", "a.md")
	newAbs := filepath.Join(dir, "notes", "b.md")
	if err := os.Rename(oldAbs, newAbs); err != nil {
		t.Fatal(err)
	}
	if err := s.Rename(oldAbs, newAbs); err != nil {
		t.Fatal(err)
	}

	entries := s.Entries()
	if len(entries) != 1 {
		t.Fatalf("len = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.RelativePath != "notes/b.md" || e.Filename != "b.md" {
		t.Errorf("entry = %q / %q", e.RelativePath, e.Filename)
	}
	if e.Title != "Alpha" {
		t.Errorf("title = %q, other fields must be unchanged", e.Title)
	}
	rebuildOracle(t, dir, s)
}

func TestRename_DirectoryFallsBackToRebuild(t *testing.T) {
	dir, s := testStore(t)
	writeDoc(t, dir, "old/a.md", []string{"title: A"}, "")
	writeDoc(t, dir, "old/b.md", []string{"title: B"}, "")
	if err := s.Build(); err != nil {
		t.Fatal(err)
	}

	oldAbs := filepath.Join(dir, "old")
	newAbs := filepath.Join(dir, "new")
	if err := os.Rename(oldAbs, newAbs); err != nil {
		t.Fatal(err)
	}
	if err := s.Rename(oldAbs, newAbs); err != nil {
		t.Fatal(err)
	}

	entries := byPath(s.Entries())
	if len(entries) != 2 {
		t.Fatalf("entries = %v", entries)
	}
	for rel := range entries {
		if rel != "new/a.md" && rel != "new/b.md" {
			t.Errorf("stale path %q", rel)
		}
	}
	rebuildOracle(t, dir, s)
}

func TestMove_Scenario4(t *testing.T) {
	dir, s := testStore(t)
	writeDoc(t, dir, "stuff/a.md", []string{"title: A", "tags: [m]"}, "")
	writeDoc(t, dir, "stuff/b.md", []string{"title: B", "tags: [m]"}, "")
	writeDoc(t, dir, "parent/.keep.md", nil, "")
	if err := s.Build(); err != nil {
		t.Fatal(err)
	}

	// Move the directory under a new parent.
	oldAbs := filepath.Join(dir, "stuff")
	if err := os.Rename(oldAbs, filepath.Join(dir, "parent", "stuff")); err != nil {
		t.Fatal(err)
	}
	if err := s.Move([]string{oldAbs}, filepath.Join(dir, "parent")); err != nil {
		t.Fatal(err)
	}

	entries := byPath(s.Entries())
	if len(entries) != 2 {
		t.Fatalf("entries = %v, want 2", entries)
	}
	for _, rel := range []string{"parent/stuff/a.md", "parent/stuff/b.md"} {
		if _, ok := entries[rel]; !ok {
			t.Errorf("missing %q", rel)
		}
	}
	rebuildOracle(t, dir, s)
}

func TestMove_SingleFile(t *testing.T) {
	dir, s := testStore(t)
	writeDoc(t, dir, "a.md", []string{"title: A"}, "")
	if err := s.Build(); err != nil {
		t.Fatal(err)
	}

	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	oldAbs := filepath.Join(dir, "a.md")
	if err := os.Rename(oldAbs, filepath.Join(dir, "sub", "a.md")); err != nil {
		t.Fatal(err)
	}
	if err := s.Move([]string{oldAbs}, filepath.Join(dir, "sub")); err != nil {
		t.Fatal(err)
	}

	entries := byPath(s.Entries())
	if _, ok := entries["sub/a.md"]; !ok || len(entries) != 1 {
		t.Errorf("entries = %v", entries)
	}
	rebuildOracle(t, dir, s)
}

func TestCopy_OriginalsUntouched(t *testing.T) {
	dir, s := testStore(t)
	writeDoc(t, dir, "a.md", []string{"title: A", "tags: [c]"}, "")
	if err := s.Build(); err != nil {
		t.Fatal(err)
	}

	if err := os.MkdirAll(filepath.Join(dir, "dup"), 0o755); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "a.md"))
	if err := os.WriteFile(filepath.Join(dir, "dup", "a.md"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Copy([]string{filepath.Join(dir, "a.md")}, filepath.Join(dir, "dup")); err != nil {
		t.Fatal(err)
	}

	entries := byPath(s.Entries())
	if len(entries) != 2 {
		t.Fatalf("entries = %v, want original plus copy", entries)
	}
	if got := tagMap(s.TagCounts())["c"]; got != 2 {
		t.Errorf("tag c = %d, want 2", got)
	}
	rebuildOracle(t, dir, s)
}

func TestReset_ClearsWithoutRebuilding(t *testing.T) {
	dir, s := testStore(t)
	writeDoc(t, dir, "a.md", []string{"title: A"}, "")
	if err := s.Build(); err != nil {
		t.Fatal(err)
	}

	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if len(s.Entries()) != 0 || len(s.TagCounts()) != 0 {
		t.Error("reset must clear in-memory state")
	}
	if _, err := os.Stat(filepath.Join(dir, FileName)); !os.IsNotExist(err) {
		t.Error("reset must delete the persisted index file")
	}
}

func TestTagInvariant(t *testing.T) {
	dir, s := testStore(t)
	writeDoc(t, dir, "a.md", []string{"tags: [Go, focus]"}, "")
	writeDoc(t, dir, "b.md", []string{"tags: [ go , other]"}, "")
	if err := s.Build(); err != nil {
		t.Fatal(err)
	}

	tags := tagMap(s.TagCounts())
	if tags["go"] != 2 {
		t.Errorf("go = %d, want 2 (case-insensitive, trimmed)", tags["go"])
	}
	for tag, count := range tags {
		if count == 0 {
			t.Errorf("tag %q has count 0, must not appear", tag)
		}
	}

	// Stored entries keep tags as written.
	entries := byPath(s.Entries())
	if got := entries["a.md"].Tags[0]; got != "Go" {
		t.Errorf("stored tag = %q, want original casing", got)
	}
}

func TestTagCounts_SortedDescending(t *testing.T) {
	dir, s := testStore(t)
	writeDoc(t, dir, "a.md", []string{"tags: [common, rare]"}, "")
	writeDoc(t, dir, "b.md", []string{"tags: [common]"}, "")
	writeDoc(t, dir, "c.md", []string{"tags: [common]"}, "")
	if err := s.Build(); err != nil {
		t.Fatal(err)
	}

	tags := s.TagCounts()
	for i := 1; i < len(tags); i++ {
		if tags[i].Count > tags[i-1].Count {
			t.Fatalf("tags not sorted descending: %v", tags)
		}
	}
	if tags[0].Tag != "common" || tags[0].Count != 3 {
		t.Errorf("top tag = %+v", tags[0])
	}
}

func TestSearch_BlankQuery(t *testing.T) {
	dir, s := testStore(t)
	writeDoc(t, dir, "a.md", []string{"title: A"}, "")
	if err := s.Build(); err != nil {
		t.Fatal(err)
	}
	if got := s.Search(""); got != nil {
		t.Errorf("blank query = %v, want none", got)
	}
	if got := s.Search("   "); got != nil {
		t.Errorf("whitespace query = %v, want none", got)
	}
}

func TestSearch_OnlyMatchingEntries(t *testing.T) {
	dir, s := testStore(t)
	writeDoc(t, dir, "a.md", []string{"title: Apples"}, "")
	writeDoc(t, dir, "b.md", []string{"title: Bananas"}, "")
	if err := s.Build(); err != nil {
		t.Fatal(err)
	}

	results := s.Search("apple")
	if len(results) != 1 || results[0].Entry.RelativePath != "a.md" {
		t.Errorf("results = %v", results)
	}
	for _, r := range results {
		if _, ok := r.Entry.Match("apple"); !ok {
			t.Errorf("returned entry %q does not match", r.Entry.RelativePath)
		}
	}
}

func TestEventCallback(t *testing.T) {
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	var events []string
	s := NewStore(fs, slog.New(slog.NewTextHandler(io.Discard, nil)), func(kind, path string) {
		events = append(events, kind+":"+path)
	})

	writeDoc(t, dir, "a.md", []string{"title: A"}, "")
	if err := s.Build(); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateFile("a.md"); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveFile("a.md"); err != nil {
		t.Fatal(err)
	}

	want := []string{"rebuilt:", "updated:a.md", "removed:a.md"}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestResolveFile(t *testing.T) {
	dir, s := testStore(t)
	writeDoc(t, dir, "sub/a.md", []string{"title: A"}, "")
	if err := s.Build(); err != nil {
		t.Fatal(err)
	}
	e := s.Entry("sub/a.md")
	if e == nil {
		t.Fatal("entry missing")
	}
	want := filepath.Join(dir, "sub", "a.md")
	if got := s.ResolveFile(e); got != want {
		t.Errorf("ResolveFile = %q, want %q", got, want)
	}
}
