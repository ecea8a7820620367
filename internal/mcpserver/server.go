// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes thoughtmap tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/thoughtmap/internal/apperr"
	"github.com/starford/thoughtmap/internal/graphview"
	"github.com/starford/thoughtmap/internal/thought"
	"github.com/starford/thoughtmap/internal/thoughtservice"
)

// FormatURI names the document format resource.
const FormatURI = "thoughtmap://document-format"

// Server wraps the MCP server with thoughtmap tools.
type Server struct {
	mcp *server.MCPServer
	svc *thoughtservice.Service
}

// New creates a new MCP server with all thoughtmap tools registered.
func New(svc *thoughtservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"thoughtmap",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_thoughts",
		mcp.WithDescription("Full-text search through thought content, ids and types."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchThoughts)

	s.mcp.AddTool(mcp.NewTool("get_thought",
		mcp.WithDescription("Get one thought with its document, parent, sub-thoughts and the thoughts aliasing it."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Thought id")),
	), s.getThought)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List thought documents in the vault."),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the raw YAML of a thought document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. traces/cache.yaml)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("create_document",
		mcp.WithDescription("Create a new thought document at the specified path. "+
			"Content MUST follow the document format (YAML with a list of thoughts, "+
			"each with id and type). Read the contract first via the "+
			"get_document_format tool or the "+FormatURI+" resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new document (must end with .yaml)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("YAML content following the document format contract")),
	), s.createDocument)

	s.mcp.AddTool(mcp.NewTool("move_document",
		mcp.WithDescription("Rename a thought document. Thought ids are unchanged."),
		mcp.WithString("from", mcp.Required(), mcp.Description("Current relative path")),
		mcp.WithString("to", mcp.Required(), mcp.Description("New relative path (must end with .yaml)")),
	), s.moveDocument)

	s.mcp.AddTool(mcp.NewTool("set_status",
		mcp.WithDescription("Set the evaluation status of a thought."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Thought id")),
		mcp.WithString("status", mcp.Required(), mcp.Description("One of pending, in-progress, complete, error, memoized")),
	), s.setStatus)

	s.mcp.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Flatten the forest into the graph the map draws: nodes, structural and alias links."),
		mcp.WithNumber("max_depth", mcp.Description("Structural depth to descend (default 5, 0 for roots only)")),
	), s.getGraph)

	s.mcp.AddTool(mcp.NewTool("get_document_format",
		mcp.WithDescription("Returns the thought document format contract. "+
			"Call this before creating documents to ensure correct structure."),
	), s.getDocumentFormat)

	// Resource: document format contract.
	s.mcp.AddResource(
		mcp.NewResource(FormatURI, "Document Format Contract",
			mcp.WithResourceDescription("YAML thought document format that all documents must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
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

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func errorResult(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("not found")
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) searchThoughts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(results), nil
}

func (s *Server) getThought(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.GetThought(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(d), nil
}

func (s *Server) listDocuments(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, _, err := s.svc.ListDocuments(ctx, 1000, 0)
	if err != nil {
		return errorResult(err), nil
	}
	paths := make([]string, 0, len(items))
	for _, it := range items {
		paths = append(paths, it.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.GetDocument(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(doc.Content), nil
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

	if _, err := s.svc.CreateDocument(ctx, path, []byte(content)); err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return mcp.NewToolResultError(fmt.Sprintf("document already exists: %s", path)), nil
		}
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", path)), nil
}

func (s *Server) moveDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, err := req.RequireString("from")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := req.RequireString("to")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if _, err := s.svc.MoveDocument(ctx, from, to); err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return mcp.NewToolResultError(fmt.Sprintf("document already exists: %s", to)), nil
		}
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("moved: %s -> %s", from, to)), nil
}

func (s *Server) setStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status, err := req.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.UpdateStatus(ctx, id, thought.Status(status))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(d), nil
}

type graphNode struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Depth     int    `json:"depth"`
	Reflexive bool   `json:"reflexive,omitempty"`
}

type graphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Alias  bool   `json:"alias,omitempty"`
}

type graphSummary struct {
	Stats graphview.Stats `json:"stats"`
	Nodes []graphNode     `json:"nodes"`
	Links []graphLink     `json:"links"`
}

func (s *Server) getGraph(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	depth := req.GetInt("max_depth", graphview.DefaultMaxDepth)
	if depth < 0 {
		return mcp.NewToolResultError("max_depth must not be negative"), nil
	}
	roots, res := s.svc.Forest()
	g := graphview.Flatten(roots, depth, res)

	out := graphSummary{
		Stats: g.Stats(),
		Nodes: make([]graphNode, 0, len(g.Nodes)),
		Links: make([]graphLink, 0, len(g.Links)),
	}
	for _, n := range g.Nodes {
		out.Nodes = append(out.Nodes, graphNode{
			ID:        n.ID,
			Type:      string(n.Thought.Type),
			Depth:     n.Thought.Metadata.RecursionDepth,
			Reflexive: n.Reflexive,
		})
	}
	for _, l := range g.Links {
		out.Links = append(out.Links, graphLink{Source: l.Source.ID, Target: l.Target.ID, Alias: l.IsAlias})
	}
	return jsonResult(out), nil
}

func (s *Server) getDocumentFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocumentFormatContract), nil
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatURI,
			MIMEType: "text/markdown",
			Text:     DocumentFormatContract,
		},
	}, nil
}
