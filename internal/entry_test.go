package internal

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/thoughtmap/internal/storage"
	"github.com/starford/thoughtmap/internal/testutil"
)

const entryDoc = `title: Entry
thoughts:
  - id: root
    content: Where is the time spent?
    type: question
    sub_thoughts:
      - id: guess
        content: In the parser
        type: hypothesis
`

func renderConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Vault.Path = filepath.Join(dir, "vault")
	cfg.SQLite.Path = filepath.Join(dir, "index.db")
	return cfg
}

func TestRender_WritesSVG(t *testing.T) {
	cfg := renderConfig(t)
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		t.Fatal(err)
	}
	testutil.WriteDoc(t, store, "entry.yaml", entryDoc)

	var buf bytes.Buffer
	steps, err := Render(context.Background(), &buf,
		RenderOptions{Ticks: 5, Highlight: "guess"},
		WithConfig(cfg), WithLogger(testutil.DiscardLogger()))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if steps != 5 {
		t.Errorf("steps = %d, want 5", steps)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "<svg") {
		t.Fatalf("output does not start with <svg: %.40q", out)
	}
	for _, id := range []string{`data-id="root"`, `data-id="guess"`} {
		if !strings.Contains(out, id) {
			t.Errorf("missing %s", id)
		}
	}
}

func TestRender_EmptyVault(t *testing.T) {
	var buf bytes.Buffer
	steps, err := Render(context.Background(), &buf, RenderOptions{Ticks: 10},
		WithConfig(renderConfig(t)), WithLogger(testutil.DiscardLogger()))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if steps > 10 {
		t.Errorf("steps = %d, want at most 10", steps)
	}
	if strings.Contains(buf.String(), "data-id") {
		t.Error("empty vault rendered nodes")
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Error("Run without config succeeded")
	}
	if _, err := Render(context.Background(), &bytes.Buffer{}, RenderOptions{}); err == nil {
		t.Error("Render without config succeeded")
	}
}
