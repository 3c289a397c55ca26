package jsonl

import (
	"os"
	"path/filepath"
	"testing"
)

type rec struct {
	Name string `json:"name"`
	N    int    `json:"n"`
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.jsonl")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRead_SkipsBlankAndMalformedLines(t *testing.T) {
	path := writeFile(t, `{"name":"a","n":1}

not json at all
{"name":"b","n":2}
`)
	got, err := Read[rec](path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].Name != "a" || got[1].N != 2 {
		t.Errorf("records = %+v", got)
	}
}

func TestReadLimit_CapsRecords(t *testing.T) {
	path := writeFile(t, `{"name":"a","n":1}
{"name":"b","n":2}
{"name":"c","n":3}
`)
	got, err := ReadLimit[rec](path, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1].Name != "b" {
		t.Errorf("records = %+v", got)
	}
}

func TestRead_MissingFile(t *testing.T) {
	if _, err := Read[rec](filepath.Join(t.TempDir(), "nope.jsonl")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	in := []rec{{Name: "x", N: 7}, {Name: "y", N: 8}}
	if err := Write(path, in); err != nil {
		t.Fatal(err)
	}
	got, err := Read[rec](path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != in[0] || got[1] != in[1] {
		t.Errorf("round trip = %+v", got)
	}
}
