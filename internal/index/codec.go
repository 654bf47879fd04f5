package index

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// FileName is the persisted index file at the project root. The leading dot
// keeps it out of normal directory listings, and it never qualifies for
// indexing itself.
const FileName = ".marknote-index.json"

// formatVersion is the on-disk schema version this codec writes and accepts.
const formatVersion = 1

// encodeIndex serializes the store to the on-disk JSON document. The
// serializer is written by hand to keep the exact schema stable: field
// order, `[ "a", "b" ]` list layout, unquoted booleans, and the trailing
// tagCounts block.
func encodeIndex(projectDir string, entries []*Entry, tags []TagCount) []byte {
	var b bytes.Buffer
	b.WriteString("{\n")
	fmt.Fprintf(&b, "  \"version\": %d,\n", formatVersion)
	fmt.Fprintf(&b, "  \"projectDir\": \"%s\",\n", escape(projectDir))

	b.WriteString("  \"entries\": [")
	for i, e := range entries {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("\n    ")
		encodeEntry(&b, e)
	}
	if len(entries) > 0 {
		b.WriteString("\n  ")
	}
	b.WriteString("],\n")

	b.WriteString("  \"tagCounts\": {")
	for i, tc := range tags {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "\n    \"%s\": %d", escape(tc.Tag), tc.Count)
	}
	if len(tags) > 0 {
		b.WriteString("\n  ")
	}
	b.WriteString("}\n")

	b.WriteString("}\n")
	return b.Bytes()
}

func encodeEntry(b *bytes.Buffer, e *Entry) {
	b.WriteString("{ ")
	fmt.Fprintf(b, "\"relativePath\": \"%s\", ", escape(e.RelativePath))
	fmt.Fprintf(b, "\"filename\": \"%s\", ", escape(e.Filename))
	fmt.Fprintf(b, "\"uuid\": \"%s\", ", escape(e.UUID))
	fmt.Fprintf(b, "\"title\": \"%s\", ", escape(e.Title))
	fmt.Fprintf(b, "\"authors\": %s, ", encodeList(e.Authors))
	fmt.Fprintf(b, "\"tags\": %s, ", encodeList(e.Tags))
	fmt.Fprintf(b, "\"summary\": \"%s\", ", escape(e.Summary))
	fmt.Fprintf(b, "\"createdAt\": \"%s\", ", escape(e.CreatedAt))
	fmt.Fprintf(b, "\"draft\": %s, ", strconv.FormatBool(e.Draft))
	fmt.Fprintf(b, "\"links\": %s ", encodeList(e.Links))
	b.WriteString("}")
}

func encodeList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	var b bytes.Buffer
	b.WriteString("[ ")
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "\"%s\"", escape(item))
	}
	b.WriteString(" ]")
	return b.String()
}

// escape applies the manual string escaping the format requires: backslash,
// double quote, newline, carriage return, and tab.
func escape(s string) string {
	var b bytes.Buffer
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// decodeIndex parses the persisted document and returns the entries. The
// document is read through a generic JSON tree rather than a positional
// scanner, which removes a whole class of bracket-matching bugs. The
// persisted tagCounts block is informational only and deliberately ignored:
// the store recomputes counts from the entries after every load.
func decodeIndex(data []byte) ([]*Entry, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse index document: %w", err)
	}

	version, ok := doc["version"].(float64)
	if !ok || int(version) != formatVersion {
		return nil, fmt.Errorf("unsupported index version %v", doc["version"])
	}

	rawEntries, ok := doc["entries"].([]any)
	if !ok {
		return nil, fmt.Errorf("missing entries array")
	}

	entries := make([]*Entry, 0, len(rawEntries))
	for i, raw := range rawEntries {
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("entry %d is not an object", i)
		}
		e := &Entry{
			RelativePath: decodeString(obj, "relativePath"),
			Filename:     decodeString(obj, "filename"),
			UUID:         decodeString(obj, "uuid"),
			Title:        decodeString(obj, "title"),
			Authors:      decodeStrings(obj, "authors"),
			Tags:         decodeStrings(obj, "tags"),
			Summary:      decodeString(obj, "summary"),
			CreatedAt:    decodeString(obj, "createdAt"),
			Draft:        decodeBool(obj, "draft"),
			Links:        decodeStrings(obj, "links"),
		}
		if e.RelativePath == "" {
			return nil, fmt.Errorf("entry %d has no relativePath", i)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func decodeString(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

func decodeBool(obj map[string]any, key string) bool {
	b, _ := obj[key].(bool)
	return b
}

func decodeStrings(obj map[string]any, key string) []string {
	raw, _ := obj[key].([]any)
	var out []string
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
