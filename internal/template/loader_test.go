package template

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadTemplate_Builtin(t *testing.T) {
	l := NewLoader("", testLogger())

	def, err := l.LoadTemplate("default")
	if err != nil {
		t.Fatalf("LoadTemplate failed: %v", err)
	}
	if def.Engine != "xelatex" {
		t.Errorf("expected xelatex engine, got %s", def.Engine)
	}
	if len(def.Args) == 0 {
		t.Error("builtin default must carry args")
	}
}

func TestLoadTemplate_Unknown(t *testing.T) {
	l := NewLoader("", testLogger())
	if _, err := l.LoadTemplate("nope"); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestLoadTemplate_FileOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	content := []byte("name: default\nengine: pdflatex\nargs:\n  - --standalone\nvariables:\n  fontsize: 12pt\n")
	if err := os.WriteFile(filepath.Join(dir, "default.yaml"), content, 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	def, err := NewLoader(dir, testLogger()).LoadTemplate("default")
	if err != nil {
		t.Fatalf("LoadTemplate failed: %v", err)
	}
	if def.Engine != "pdflatex" {
		t.Errorf("expected file override, got engine %s", def.Engine)
	}
	if def.Variables["fontsize"] != "12pt" {
		t.Errorf("expected fontsize variable, got %v", def.Variables)
	}
}

func TestLoadMetadata_FrontMatter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	content := "---\ntitle: My Doc\nauthor: someone\n---\n\n# Body\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	meta, err := NewLoader("", testLogger()).LoadMetadata(path)
	if err != nil {
		t.Fatalf("LoadMetadata failed: %v", err)
	}
	if meta["title"] != "My Doc" {
		t.Errorf("expected title, got %v", meta)
	}
}

func TestLoadMetadata_NoFrontMatter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	if err := os.WriteFile(path, []byte("# Just a heading\n"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	meta, err := NewLoader("", testLogger()).LoadMetadata(path)
	if err != nil {
		t.Fatalf("LoadMetadata failed: %v", err)
	}
	if len(meta) != 0 {
		t.Errorf("expected empty metadata, got %v", meta)
	}
}

func TestLoadMetadata_UnclosedFrontMatter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	if err := os.WriteFile(path, []byte("---\ntitle: x\n# never closed\n"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	meta, err := NewLoader("", testLogger()).LoadMetadata(path)
	if err != nil {
		t.Fatalf("LoadMetadata failed: %v", err)
	}
	if len(meta) != 0 {
		t.Errorf("unclosed front matter must yield no metadata, got %v", meta)
	}
}

func TestMerge_DeterministicOrder(t *testing.T) {
	l := NewLoader("", testLogger())
	def := Definition{
		Args:      []string{"--standalone"},
		Variables: map[string]string{"geometry": "margin=1in", "fontsize": "11pt"},
	}
	meta := map[string]any{"title": "Doc", "author": "me"}

	got := l.Merge(def, meta)
	want := []string{
		"--standalone",
		"-V", "fontsize=11pt",
		"-V", "geometry=margin=1in",
		"-M", "author=me",
		"-M", "title=Doc",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}
