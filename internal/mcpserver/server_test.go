package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/thoughtmap/internal/codec"
	"github.com/starford/thoughtmap/internal/testutil"
	"github.com/starford/thoughtmap/internal/thoughtservice"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	_, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	svc := thoughtservice.NewService(store, db, testutil.DiscardLogger())
	if err := svc.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	return New(svc)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so we call the
	// handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_thoughts":
		result, err = srv.searchThoughts(ctx, req)
	case "get_thought":
		result, err = srv.getThought(ctx, req)
	case "list_documents":
		result, err = srv.listDocuments(ctx, req)
	case "read_document":
		result, err = srv.readDocument(ctx, req)
	case "create_document":
		result, err = srv.createDocument(ctx, req)
	case "move_document":
		result, err = srv.moveDocument(ctx, req)
	case "set_status":
		result, err = srv.setStatus(ctx, req)
	case "get_graph":
		result, err = srv.getGraph(ctx, req)
	case "get_document_format":
		result, err = srv.getDocumentFormat(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func create(t *testing.T, srv *Server) {
	t.Helper()
	r := callTool(t, srv, "create_document", map[string]interface{}{
		"path":    "trace.yaml",
		"content": codec.Template,
	})
	if text := resultText(r); text != "created: trace.yaml" {
		t.Fatalf("create result = %q", text)
	}
}

func TestCreateAndReadDocument(t *testing.T) {
	srv := testServer(t)
	create(t, srv)

	r := callTool(t, srv, "read_document", map[string]interface{}{"path": "trace.yaml"})
	if text := resultText(r); text != codec.Template {
		t.Errorf("read result = %q", text)
	}

	r = callTool(t, srv, "create_document", map[string]interface{}{
		"path":    "trace.yaml",
		"content": codec.Template,
	})
	if !r.IsError || !strings.Contains(resultText(r), "already exists") {
		t.Errorf("duplicate create = %q", resultText(r))
	}
}

func TestCreateDocumentInvalid(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "create_document", map[string]interface{}{
		"path":    "bad.yaml",
		"content": "thoughts:\n  - id: a\n    type: guess\n",
	})
	if !r.IsError {
		t.Error("expected error for invalid document")
	}
	r = callTool(t, srv, "create_document", map[string]interface{}{"path": "x.yaml"})
	if !r.IsError {
		t.Error("expected error for missing content")
	}
}

func TestListDocuments(t *testing.T) {
	srv := testServer(t)
	create(t, srv)

	r := callTool(t, srv, "list_documents", map[string]interface{}{})
	if text := resultText(r); text != "trace.yaml" {
		t.Errorf("list = %q", text)
	}
}

func TestMoveDocument(t *testing.T) {
	srv := testServer(t)
	create(t, srv)

	r := callTool(t, srv, "move_document", map[string]interface{}{"from": "trace.yaml", "to": "old/trace.yaml"})
	if text := resultText(r); text != "moved: trace.yaml -> old/trace.yaml" {
		t.Fatalf("move = %q", text)
	}
	r = callTool(t, srv, "list_documents", map[string]interface{}{})
	if text := resultText(r); text != "old/trace.yaml" {
		t.Errorf("list after move = %q", text)
	}
	r = callTool(t, srv, "move_document", map[string]interface{}{"from": "trace.yaml", "to": "x.yaml"})
	if !r.IsError || !strings.Contains(resultText(r), "not found") {
		t.Errorf("move missing = %q", resultText(r))
	}
}

func TestReadDocumentMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "read_document", map[string]interface{}{"path": "nope.yaml"})
	if !r.IsError {
		t.Error("expected error for missing document")
	}
}

func TestGetThoughtAndSearch(t *testing.T) {
	srv := testServer(t)
	create(t, srv)

	r := callTool(t, srv, "get_thought", map[string]interface{}{"id": "q1"})
	var d thoughtservice.ThoughtDetail
	if err := json.Unmarshal([]byte(resultText(r)), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Path != "trace.yaml" || len(d.AliasedBy) != 1 || d.AliasedBy[0] != "e1" {
		t.Errorf("q1 = %+v", d)
	}

	r = callTool(t, srv, "get_thought", map[string]interface{}{"id": "nope"})
	if !r.IsError || resultText(r) != "not found" {
		t.Errorf("missing thought = %q", resultText(r))
	}

	r = callTool(t, srv, "search_thoughts", map[string]interface{}{"query": "normalized"})
	if !strings.Contains(resultText(r), `"id": "h1"`) {
		t.Errorf("search = %s", resultText(r))
	}
}

func TestSetStatus(t *testing.T) {
	srv := testServer(t)
	create(t, srv)

	r := callTool(t, srv, "set_status", map[string]interface{}{"id": "q1", "status": "complete"})
	if r.IsError || !strings.Contains(resultText(r), `"status": "complete"`) {
		t.Errorf("set_status = %s", resultText(r))
	}
	r = callTool(t, srv, "set_status", map[string]interface{}{"id": "q1", "status": "done"})
	if !r.IsError {
		t.Error("expected error for invalid status")
	}
}

func TestGetGraph(t *testing.T) {
	srv := testServer(t)
	create(t, srv)

	var g graphSummary
	r := callTool(t, srv, "get_graph", map[string]interface{}{})
	if err := json.Unmarshal([]byte(resultText(r)), &g); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if g.Stats.Nodes != 3 || g.Stats.AliasLinks != 1 || len(g.Links) != 3 {
		t.Errorf("graph = %+v", g)
	}

	r = callTool(t, srv, "get_graph", map[string]interface{}{"max_depth": float64(0)})
	g = graphSummary{}
	_ = json.Unmarshal([]byte(resultText(r)), &g)
	if len(g.Nodes) != 1 || g.Nodes[0].ID != "q1" || len(g.Links) != 0 {
		t.Errorf("roots only = %+v", g)
	}

	r = callTool(t, srv, "get_graph", map[string]interface{}{"max_depth": float64(-1)})
	if !r.IsError {
		t.Error("expected error for negative depth")
	}
}

func TestDocumentFormat(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_document_format", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "sub_thoughts") || !strings.Contains(text, codec.Template) {
		t.Errorf("contract missing template:\n%s", text)
	}

	contents, err := srv.readFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
	if tc, ok := contents[0].(mcp.TextResourceContents); !ok || tc.URI != FormatURI {
		t.Errorf("resource = %+v", contents[0])
	}
}
