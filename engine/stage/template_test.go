package stage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTemplate_Render(t *testing.T) {
	tmpl := NewTemplate("code: $src_code target: ${tgt_code}")
	got := tmpl.Render(map[string]string{"src_code": "A", "tgt_code": "B"})
	if got != "code: A target: B" {
		t.Errorf("got %q", got)
	}
}

func TestTemplate_UnknownPlaceholderSurvives(t *testing.T) {
	tmpl := NewTemplate("cost is $price for $item")
	got := tmpl.Render(map[string]string{"item": "x"})
	if got != "cost is $price for x" {
		t.Errorf("got %q", got)
	}
}

func TestTemplate_DollarEscape(t *testing.T) {
	tmpl := NewTemplate("literal $$src_code")
	got := tmpl.Render(map[string]string{"src_code": "A"})
	if got != "literal $src_code" {
		t.Errorf("got %q", got)
	}
}

func TestLoadTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.txt")
	os.WriteFile(path, []byte("analyze $program"), 0o644)

	tmpl, err := LoadTemplate(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := tmpl.Render(map[string]string{"program": "p"}); got != "analyze p" {
		t.Errorf("got %q", got)
	}

	if _, err := LoadTemplate(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}
