package api

import "github.com/mcgivrer/marknote/internal/index"

// EntryDTO is the wire representation of one index entry.
type EntryDTO struct {
	RelativePath   string   `json:"relativePath"`
	Filename       string   `json:"filename"`
	UUID           string   `json:"uuid,omitempty"`
	Title          string   `json:"title,omitempty"`
	DisplayTitle   string   `json:"displayTitle"`
	Authors        []string `json:"authors"`
	Tags           []string `json:"tags"`
	Summary        string   `json:"summary,omitempty"`
	CreatedAt      string   `json:"createdAt,omitempty"`
	CreatedAtValid bool     `json:"createdAtValid"`
	Draft          bool     `json:"draft"`
	Links          []string `json:"links"`
}

func toEntryDTO(e *index.Entry) EntryDTO {
	return EntryDTO{
		RelativePath:   e.RelativePath,
		Filename:       e.Filename,
		UUID:           e.UUID,
		Title:          e.Title,
		DisplayTitle:   e.DisplayTitle(),
		Authors:        nonNilSlice(e.Authors),
		Tags:           nonNilSlice(e.Tags),
		Summary:        e.Summary,
		CreatedAt:      e.CreatedAt,
		CreatedAtValid: e.CreatedAtValid(),
		Draft:          e.Draft,
		Links:          nonNilSlice(e.Links),
	}
}

// EntryListResponse wraps an entry listing.
type EntryListResponse struct {
	Entries []EntryDTO `json:"entries"`
	Total   int        `json:"total"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Entry EntryDTO `json:"entry"`
	Match string   `json:"match"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// TagCountDTO is one row of the ranked tag-frequency table.
type TagCountDTO struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TagsResponse wraps the ranked tag table.
type TagsResponse struct {
	Tags []TagCountDTO `json:"tags"`
}

// FileRequest names a single file or directory for an incremental update.
type FileRequest struct {
	Path string `json:"path"`
}

// RenameRequest names both endpoints of a rename.
type RenameRequest struct {
	OldPath string `json:"oldPath"`
	NewPath string `json:"newPath"`
}

// TransferRequest carries a move or copy batch.
type TransferRequest struct {
	Paths     []string `json:"paths"`
	TargetDir string   `json:"targetDir"`
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
