//go:build sqlite_fts5

package index

import (
	"testing"
	"time"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM thoughts_fts`).Scan(&count); err != nil {
		t.Fatalf("thoughts_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	err := db.UpsertDocument(DocumentRow{Path: "fts.yaml", Checksum: "f1", UpdatedAt: time.Now()}, []ThoughtRow{
		{ID: "f1", Type: "hypothesis", Content: "Memoization gives powerful reuse of prior reasoning."},
	})
	if err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}

	results, err := db.Search("powerful", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].ID != "f1" || results[0].Path != "fts.yaml" {
		t.Errorf("result = %+v", results[0])
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{Path: "gone.yaml", Checksum: "g", UpdatedAt: time.Now()}, []ThoughtRow{
		{ID: "g1", Type: "question", Content: "vanishing content"},
	})
	_ = db.DeleteDocument("gone.yaml")

	results, _ := db.Search("vanishing", 10)
	if len(results) != 0 {
		t.Errorf("deleted document still in FTS index: %+v", results)
	}
}

func TestFTS5_UpsertReplacesContent(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertDocument(DocumentRow{Path: "evo.yaml", Checksum: "1", UpdatedAt: now}, []ThoughtRow{
		{ID: "e1", Type: "question", Content: "original text"},
	})
	_ = db.UpsertDocument(DocumentRow{Path: "evo.yaml", Checksum: "2", UpdatedAt: now}, []ThoughtRow{
		{ID: "e1", Type: "question", Content: "replacement text"},
	})

	if results, _ := db.Search("original", 10); len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	if results, _ := db.Search("replacement", 10); len(results) != 1 {
		t.Errorf("FTS not updated: %+v", results)
	}
}
