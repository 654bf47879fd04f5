package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mcgivrer/marknote/internal/index"
	"github.com/mcgivrer/marknote/internal/sse"
)

// Handler holds API route handlers over the index store.
type Handler struct {
	idx    *index.Store
	broker *sse.Broker
}

// NewHandler creates a new Handler. broker may be nil when the caller does
// not stream rebuild progress.
func NewHandler(idx *index.Store, broker *sse.Broker) *Handler {
	return &Handler{idx: idx, broker: broker}
}

// entryPath extracts the entry path from the URL (everything after
// /entries/). Supports encoded slashes from generated clients.
func entryPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListEntries handles GET /entries.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries := h.idx.Entries()
	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, EntryListResponse{Entries: dtos, Total: len(dtos)})
}

// GetEntry handles GET /entries/*.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	path := entryPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	e := h.idx.Entry(path)
	if e == nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(e))
}

// Search handles GET /search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	results := h.idx.Search(q)
	out := make([]SearchResult, len(results))
	for i, res := range results {
		out[i] = SearchResult{Entry: toEntryDTO(res.Entry), Match: res.Match}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: out})
}

// Tags handles GET /tags: the tag-frequency table, ranked descending.
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	counts := h.idx.TagCounts()
	out := make([]TagCountDTO, len(counts))
	for i, tc := range counts {
		out[i] = TagCountDTO{Tag: tc.Tag, Count: tc.Count}
	}
	writeJSON(w, http.StatusOK, TagsResponse{Tags: out})
}

// Rebuild handles POST /rebuild: kicks off an asynchronous full rebuild.
// Progress and completion stream over the events endpoint.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	var onProgress index.ProgressFunc
	if h.broker != nil {
		onProgress = h.broker.PublishProgress
	}
	h.idx.BuildAsync(onProgress, func(err error) {
		if err != nil {
			slog.Error("async rebuild failed", slog.String("error", err.Error()))
		}
	})
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "rebuilding"})
}

// Reset handles POST /reset: deletes the persisted index and clears state
// without rebuilding.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.idx.Reset(); err != nil {
		slog.Error("reset failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// UpdateFile handles POST /files/update.
func (h *Handler) UpdateFile(w http.ResponseWriter, r *http.Request) {
	var req FileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.idx.UpdateFile(req.Path); err != nil {
		slog.Error("update file failed", slog.String("path", req.Path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveFile handles POST /files/remove.
func (h *Handler) RemoveFile(w http.ResponseWriter, r *http.Request) {
	var req FileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.idx.RemoveFile(req.Path); err != nil {
		slog.Error("remove file failed", slog.String("path", req.Path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveFilesUnder handles POST /files/remove-under.
func (h *Handler) RemoveFilesUnder(w http.ResponseWriter, r *http.Request) {
	var req FileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.idx.RemoveFilesUnder(req.Path); err != nil {
		slog.Error("remove dir failed", slog.String("path", req.Path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RenameFile handles POST /files/rename.
func (h *Handler) RenameFile(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.OldPath == "" || req.NewPath == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("oldPath and newPath are required"))
		return
	}
	if err := h.idx.Rename(req.OldPath, req.NewPath); err != nil {
		slog.Error("rename failed", slog.String("old", req.OldPath), slog.String("new", req.NewPath),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveFiles handles POST /files/move.
func (h *Handler) MoveFiles(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Paths) == 0 || req.TargetDir == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("paths and targetDir are required"))
		return
	}
	if err := h.idx.Move(req.Paths, req.TargetDir); err != nil {
		slog.Error("move failed", slog.String("target", req.TargetDir), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CopyFiles handles POST /files/copy.
func (h *Handler) CopyFiles(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Paths) == 0 || req.TargetDir == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("paths and targetDir are required"))
		return
	}
	if err := h.idx.Copy(req.Paths, req.TargetDir); err != nil {
		slog.Error("copy failed", slog.String("target", req.TargetDir), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
