package index

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestCodec_RoundTrip(t *testing.T) {
	entries := []*Entry{
		{
			RelativePath: "notes/a.md",
			Filename:     "a.md",
			UUID:         "u-1",
			Title:        "Alpha",
			Authors:      []string{"Alice", "Bob"},
			Tags:         []string{"x", "y"},
			Summary:      "first",
			CreatedAt:    "2024-01-01",
			Draft:        true,
			Links:        []string{"u-2"},
		},
		{
			RelativePath: "b.md",
			Filename:     "b.md",
		},
	}
	tags := []TagCount{{Tag: "x", Count: 1}, {Tag: "y", Count: 1}}

	data := encodeIndex("/proj", entries, tags)
	got, err := decodeIndex(data)
	if err != nil {
		t.Fatalf("decodeIndex: %v", err)
	}
	if !reflect.DeepEqual(got, entries) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got[0], entries[0])
	}
}

func TestCodec_OutputIsValidJSONWithSchema(t *testing.T) {
	entries := []*Entry{{RelativePath: "a.md", Filename: "a.md", Tags: []string{"t"}}}
	data := encodeIndex("/proj", entries, []TagCount{{Tag: "t", Count: 1}})

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, data)
	}
	if v, ok := doc["version"].(float64); !ok || int(v) != 1 {
		t.Errorf("version = %v", doc["version"])
	}
	if doc["projectDir"] != "/proj" {
		t.Errorf("projectDir = %v", doc["projectDir"])
	}
	if _, ok := doc["entries"].([]any); !ok {
		t.Error("entries missing")
	}
	counts, ok := doc["tagCounts"].(map[string]any)
	if !ok || counts["t"] != float64(1) {
		t.Errorf("tagCounts = %v", doc["tagCounts"])
	}
}

func TestCodec_Escaping(t *testing.T) {
	e := &Entry{
		RelativePath: "a.md",
		Filename:     "a.md",
		Title:        "quote \" slash \\ newline \n tab \t cr \r end",
		Summary:      `path C:\notes`,
	}
	data := encodeIndex("/proj", []*Entry{e}, nil)

	got, err := decodeIndex(data)
	if err != nil {
		t.Fatalf("decodeIndex: %v", err)
	}
	if got[0].Title != e.Title {
		t.Errorf("title = %q, want %q", got[0].Title, e.Title)
	}
	if got[0].Summary != e.Summary {
		t.Errorf("summary = %q, want %q", got[0].Summary, e.Summary)
	}
}

func TestCodec_BooleansUnquoted(t *testing.T) {
	data := encodeIndex("/p", []*Entry{{RelativePath: "a.md", Filename: "a.md", Draft: true}}, nil)
	if !strings.Contains(string(data), `"draft": true`) {
		t.Errorf("draft not rendered as a bare boolean:\n%s", data)
	}
}

func TestDecode_CorruptInput(t *testing.T) {
	cases := map[string]string{
		"truncated":     `{"version": 1, "entries": [{"relativePath": "a.md"`,
		"not json":      "hello world",
		"wrong version": `{"version": 99, "entries": []}`,
		"no entries":    `{"version": 1}`,
		"pathless":      `{"version": 1, "entries": [{"title": "x"}]}`,
	}
	for name, input := range cases {
		if _, err := decodeIndex([]byte(input)); err == nil {
			t.Errorf("%s: expected decode error", name)
		}
	}
}

// The tagCounts block on disk is informational only: the loader rebuilds
// counts from entry tags, so a tampered file cannot break the invariant.
func TestLoad_IgnoresPersistedTagCounts(t *testing.T) {
	dir, s := testStore(t)
	writeDoc(t, dir, "a.md", []string{"tags: [real]"}, "")
	if err := s.Build(); err != nil {
		t.Fatal(err)
	}

	// Tamper with the persisted aggregate.
	file := filepath.Join(dir, FileName)
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	tampered := strings.Replace(string(data), `"real": 1`, `"real": 42, "ghost": 7`, 1)
	if err := os.WriteFile(file, []byte(tampered), 0o644); err != nil {
		t.Fatal(err)
	}

	fresh, err := storeOver(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := fresh.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	tags := tagMap(fresh.TagCounts())
	if tags["real"] != 1 {
		t.Errorf("real = %d, want recomputed 1", tags["real"])
	}
	if _, ok := tags["ghost"]; ok {
		t.Error("ghost tag from disk must not survive load")
	}
}

func TestLoad_Scenario5_CorruptFile(t *testing.T) {
	dir, s := testStore(t)
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(`{"version": 1, "entr`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Load(); err == nil {
		t.Fatal("expected failure for truncated index file")
	}
	if len(s.Entries()) != 0 {
		t.Error("store must stay empty after failed load")
	}
}

func TestLoad_AbsentFile(t *testing.T) {
	_, s := testStore(t)
	if err := s.Load(); err == nil {
		t.Fatal("expected failure when index file is absent")
	}
}

func TestLoad_RestoresEntries(t *testing.T) {
	dir, s := testStore(t)
	writeDoc(t, dir, "a.md", []string{"title: Alpha", "tags: [x]"}, "")
	writeDoc(t, dir, "sub/b.md", []string{"title: Beta"}, "")
	if err := s.Build(); err != nil {
		t.Fatal(err)
	}

	fresh, err := storeOver(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := fresh.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(byPath(fresh.Entries()), byPath(s.Entries())) {
		t.Error("loaded entries differ from built entries")
	}
	if !reflect.DeepEqual(tagMap(fresh.TagCounts()), tagMap(s.TagCounts())) {
		t.Error("loaded tag counts differ")
	}
}
