package extract

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestJSON_ValidInputPassesThrough(t *testing.T) {
	in := `[{"a": 1}, {"b": "two"}]`
	got := JSON(in)
	want := []any{
		map[string]any{"a": float64(1)},
		map[string]any{"b": "two"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("JSON(%q) = %#v", in, got)
	}
}

func TestJSON_IdempotentOnSerializedValue(t *testing.T) {
	orig := map[string]any{"k": []any{"x", "y"}}
	b, _ := json.Marshal(orig)
	if got := JSON(string(b)); !reflect.DeepEqual(got, orig) {
		t.Errorf("round trip = %#v", got)
	}
}

func TestJSON_LastFencedBlockWins(t *testing.T) {
	raw := "draft attempt:\n```json\n{\"v\": 1}\n```\nfinal answer:\n```json\n{\"v\": 2}\n```\n"
	got, ok := JSON(raw).(map[string]any)
	if !ok {
		t.Fatalf("JSON returned %T", JSON(raw))
	}
	if got["v"] != float64(2) {
		t.Errorf("v = %v, want 2", got["v"])
	}
}

func TestJSON_LabeledFenceOutranksTrailingCodeFence(t *testing.T) {
	raw := "```json\n[1, 2]\n```\nExample usage:\n```cpp\nint x = v[0];\n```\n"
	if got := JSON(raw); !reflect.DeepEqual(got, []any{float64(1), float64(2)}) {
		t.Errorf("got %#v", got)
	}
}

func TestJSON_UnlabeledAndCppFences(t *testing.T) {
	raw := "```cpp\n[1, 2]\n```"
	if got := JSON(raw); !reflect.DeepEqual(got, []any{float64(1), float64(2)}) {
		t.Errorf("cpp fence = %#v", got)
	}
	raw = "```\n{\"x\": true}\n```"
	if got, ok := JSON(raw).(map[string]any); !ok || got["x"] != true {
		t.Errorf("bare fence = %#v", JSON(raw))
	}
}

func TestJSON_RepairsTrailingComma(t *testing.T) {
	raw := "```json\n[\"a\", \"b\",]\n```"
	if got := JSON(raw); !reflect.DeepEqual(got, []any{"a", "b"}) {
		t.Errorf("got %#v", got)
	}
}

func TestJSON_RepairsSingleQuotes(t *testing.T) {
	raw := "{'key': 'value'}"
	got, ok := JSON(raw).(map[string]any)
	if !ok || got["key"] != "value" {
		t.Errorf("got %#v", JSON(raw))
	}
}

func TestJSON_KeepsQuotesWhenMixed(t *testing.T) {
	// Single quotes inside a double-quoted string are content, not
	// delimiters. The raw text must come back unchanged.
	raw := `{"key": "it's fine"` // truncated on purpose
	if got := JSON(raw); got != raw {
		t.Errorf("got %#v, want raw text back", got)
	}
}

func TestJSON_RepairsStringSplitAcrossLines(t *testing.T) {
	raw := "[\"first\"\n\"second\"]"
	if got := JSON(raw); !reflect.DeepEqual(got, []any{"first", "second"}) {
		t.Errorf("got %#v", got)
	}
}

func TestJSON_RepairsStrayBackslash(t *testing.T) {
	raw := `{"path": "dir\x"}`
	got, ok := JSON(raw).(map[string]any)
	if !ok || got["path"] != `dir\x` {
		t.Errorf("got %#v", JSON(raw))
	}
}

func TestJSON_NeverFails(t *testing.T) {
	for _, raw := range []string{
		"",
		"   ",
		"plain prose, no structure here",
		`{"truncated": [1, 2`,
		"```json\nnot even close\n```",
	} {
		got := JSON(raw)
		if s, ok := got.(string); !ok || s != raw {
			t.Errorf("JSON(%q) = %#v, want the raw string back", raw, got)
		}
	}
}

func TestCodeBlock_LastBlock(t *testing.T) {
	raw := "```cpp\nint a;\n```\ntext\n```cpp\nint b;\n```"
	if got := CodeBlock(raw); got != "int b;" {
		t.Errorf("got %q", got)
	}
}

func TestCodeBlock_NoFence(t *testing.T) {
	if got := CodeBlock("  int main() {}\n"); got != "int main() {}" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_ShapeDispatch(t *testing.T) {
	if got := Extract("```cpp\ncode\n```", ShapeText); got != "code" {
		t.Errorf("ShapeText = %#v", got)
	}
	if _, ok := Extract(`[1]`, ShapeArray).([]any); !ok {
		t.Errorf("ShapeArray = %#v", Extract(`[1]`, ShapeArray))
	}
}

func TestRepair_LeavesValidEscapesAlone(t *testing.T) {
	raw := `{"s": "line\nnext\ttab \"q\" uA"}`
	if got := Repair(raw); got != raw {
		t.Errorf("Repair changed valid input:\n%q\n%q", raw, got)
	}
}
