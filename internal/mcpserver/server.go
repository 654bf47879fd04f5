// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the document index to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mcgivrer/marknote/internal/frontmatter"
	"github.com/mcgivrer/marknote/internal/index"
	"github.com/mcgivrer/marknote/internal/storage"
)

// Server wraps the MCP server with index tools.
type Server struct {
	mcp *server.MCPServer
	fs  storage.Provider
	idx *index.Store
}

// New creates a new MCP server with all tools registered.
func New(fs storage.Provider, idx *index.Store) *Server {
	s := &Server{fs: fs, idx: idx}

	s.mcp = server.NewMCPServer(
		"MarkNote",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_index",
		mcp.WithDescription("Search indexed documents by title, filename, tag, summary, author or UUID. "+
			"Each result reports which field matched."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchIndex)

	s.mcp.AddTool(mcp.NewTool("list_entries",
		mcp.WithDescription("List all indexed documents, or only those under a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to filter by (empty for all)")),
	), s.listEntries)

	s.mcp.AddTool(mcp.NewTool("get_entry",
		mcp.WithDescription("Return the index entry for a document as JSON."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Project-relative path (e.g. folder/doc.md)")),
	), s.getEntry)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("Return the tag-frequency table, ranked by document count descending."),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("create_document",
		mcp.WithDescription("Create a new Markdown document at the specified path and index it. "+
			"Content MUST follow the canonical front-matter format. Read the contract first via "+
			"the get_front_matter_contract tool or the marknote://front-matter resource. "+
			"A uuid field is generated automatically when missing."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new document (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content following the front-matter contract")),
	), s.createDocument)

	s.mcp.AddTool(mcp.NewTool("get_front_matter_contract",
		mcp.WithDescription("Returns the canonical front-matter format contract. "+
			"Call this before creating documents to ensure correct structure."),
	), s.getContract)

	// Resource: front-matter contract.
	s.mcp.AddResource(
		mcp.NewResource("marknote://front-matter", "Front Matter Contract",
			mcp.WithResourceDescription("Canonical front-matter format that all documents must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchIndex(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results := s.idx.Search(query)
	type hit struct {
		Path  string `json:"path"`
		Title string `json:"title"`
		Match string `json:"match"`
	}
	hits := make([]hit, len(results))
	for i, r := range results {
		hits[i] = hit{Path: r.Entry.RelativePath, Title: r.Entry.DisplayTitle(), Match: r.Match}
	}
	out, _ := json.MarshalIndent(hits, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = strings.Trim(f, "/")
	}

	var paths []string
	for _, e := range s.idx.Entries() {
		if folder != "" && !strings.HasPrefix(e.RelativePath, folder+"/") {
			continue
		}
		paths = append(paths, e.RelativePath)
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText("no documents indexed"), nil
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) getEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e := s.idx.Entry(path)
	if e == nil {
		return mcp.NewToolResultError(fmt.Sprintf("not indexed: %s", path)), nil
	}
	out, _ := json.MarshalIndent(e, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	counts := s.idx.TagCounts()
	if len(counts) == 0 {
		return mcp.NewToolResultText("no tags"), nil
	}
	var b strings.Builder
	for _, tc := range counts {
		fmt.Fprintf(&b, "%s: %d\n", tc.Tag, tc.Count)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) createDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !storage.Qualifies(path) {
		return mcp.NewToolResultError(fmt.Sprintf("not a Markdown document path: %s", path)), nil
	}
	if _, readErr := s.fs.Read(path); readErr == nil {
		return mcp.NewToolResultError(fmt.Sprintf("document already exists: %s", path)), nil
	}

	// Stamp a uuid into the front matter when one is missing.
	if fm, ok := frontmatter.Parse(content); ok {
		had := strings.TrimSpace(fm.Get(frontmatter.KeyUUID)) != ""
		fm.EnsureUUID()
		if !had {
			content = fm.Serialize() + frontmatter.Strip(content)
		}
	}

	if err := s.fs.WriteFile(path, []byte(content)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.idx.UpdateFile(path); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", path)), nil
}

func (s *Server) getContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FrontMatterContract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "marknote://front-matter",
			MIMEType: "text/markdown",
			Text:     FrontMatterContract,
		},
	}, nil
}
