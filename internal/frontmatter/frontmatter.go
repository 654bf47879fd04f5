// Package frontmatter parses and serializes the key/value metadata block at
// the head of a Markdown document.
//
// The block is not YAML. Each line is split at the first colon; keys are
// lower-cased, values kept verbatim. Unknown keys round-trip in their
// original insertion order.
package frontmatter

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Well-known keys. Serialization emits them in this order, before any
// unknown keys.
const (
	KeyUUID      = "uuid"
	KeyTitle     = "title"
	KeyAuthor    = "author"
	KeyCreatedAt = "created_at"
	KeyTags      = "tags"
	KeySummary   = "summary"
	KeyDraft     = "draft"
	KeyLinks     = "links"
)

var knownKeys = []string{
	KeyUUID, KeyTitle, KeyAuthor, KeyCreatedAt,
	KeyTags, KeySummary, KeyDraft, KeyLinks,
}

const delim = "---"

// Accepted created_at layouts.
const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

// FrontMatter is an ordered mapping from lower-case keys to string values.
type FrontMatter struct {
	keys   []string
	values map[string]string
}

// New returns an empty front matter block.
func New() *FrontMatter {
	return &FrontMatter{values: make(map[string]string)}
}

// Parse extracts the leading front-matter block from content. The block must
// start at byte 0 and be delimited by lines containing exactly "---". The
// second return value is false when no block is present; malformed blocks
// (no closing delimiter) count as absent.
func Parse(content string) (*FrontMatter, bool) {
	block, _, ok := split(content)
	if !ok {
		return nil, false
	}

	fm := New()
	for _, line := range block {
		i := strings.Index(line, ":")
		if i < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:i]))
		if key == "" {
			continue
		}
		fm.Set(key, strings.TrimSpace(line[i+1:]))
	}
	return fm, true
}

// Strip returns content with the front-matter block removed, or content
// unchanged when no block is present.
func Strip(content string) string {
	_, rest, ok := split(content)
	if !ok {
		return content
	}
	return rest
}

// split separates the interior lines of the block from the remaining body.
func split(content string) (block []string, rest string, ok bool) {
	line, after := cutLine(content)
	if strings.TrimRight(line, "\r") != delim {
		return nil, "", false
	}
	for after != "" {
		line, after = cutLine(after)
		if strings.TrimRight(line, "\r") == delim {
			return block, after, true
		}
		block = append(block, line)
	}
	// No closing delimiter.
	return nil, "", false
}

func cutLine(s string) (line, rest string) {
	if i := strings.Index(s, "\n"); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

// Get returns the raw value for key, or "" when absent.
func (f *FrontMatter) Get(key string) string {
	return f.values[key]
}

// Set stores value under key, preserving the insertion order of new keys.
func (f *FrontMatter) Set(key, value string) {
	if _, exists := f.values[key]; !exists {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Keys returns all keys in insertion order.
func (f *FrontMatter) Keys() []string {
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// List returns the value for key parsed as a list. A bracketed value
// "[a, b, c]" splits on commas; a bare non-blank scalar is a one-element
// list (older documents wrote single authors and tags without brackets).
func (f *FrontMatter) List(key string) []string {
	return SplitList(f.values[key])
}

// SetList stores items under key in canonical list form.
func (f *FrontMatter) SetList(key string, items []string) {
	f.Set(key, FormatList(items))
}

// SplitList parses a raw front-matter value as a list.
func SplitList(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if !strings.HasPrefix(value, "[") || !strings.HasSuffix(value, "]") {
		return []string{value}
	}
	var out []string
	for _, item := range strings.Split(value[1:len(value)-1], ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// FormatList renders items as a front-matter value: one item serializes as
// the bare scalar, two or more as "[a, b]".
func FormatList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return "[" + strings.Join(items, ", ") + "]"
	}
}

// Draft reports whether the draft flag is set.
func (f *FrontMatter) Draft() bool {
	return f.values[KeyDraft] == "true"
}

// IsEmpty reports whether every stored value is blank.
func (f *FrontMatter) IsEmpty() bool {
	for _, v := range f.values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// EnsureUUID assigns a fresh random UUID if none is present and returns the
// document's UUID. Called once per document the first time it is loaded or
// created without one, so every indexed or linked document acquires a stable
// identity.
func (f *FrontMatter) EnsureUUID() string {
	if id := strings.TrimSpace(f.values[KeyUUID]); id != "" {
		return id
	}
	id := uuid.NewString()
	f.Set(KeyUUID, id)
	return id
}

// ValidCreatedAt reports whether value is an accepted created_at form:
// "yyyy-MM-dd", "yyyy-MM-dd HH:mm", or blank. Invalid values are advisory
// only and never block a save or an index pass.
func ValidCreatedAt(value string) bool {
	if value == "" {
		return true
	}
	if _, err := time.Parse(dateLayout, value); err == nil {
		return true
	}
	_, err := time.Parse(dateTimeLayout, value)
	return err == nil
}

// Serialize renders the block: known keys in canonical order, then unknown
// keys in insertion order. Blank values are never written, and draft is
// omitted when false (absence means "not draft").
func (f *FrontMatter) Serialize() string {
	var b strings.Builder
	b.WriteString(delim)
	b.WriteByte('\n')

	emit := func(key string) {
		value := f.values[key]
		if strings.TrimSpace(value) == "" {
			return
		}
		if key == KeyDraft && value == "false" {
			return
		}
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteByte('\n')
	}

	for _, key := range knownKeys {
		emit(key)
	}
	for _, key := range f.keys {
		if !isKnown(key) {
			emit(key)
		}
	}

	b.WriteString(delim)
	b.WriteByte('\n')
	return b.String()
}

func isKnown(key string) bool {
	for _, k := range knownKeys {
		if k == key {
			return true
		}
	}
	return false
}
