// Package extract pulls structured payloads out of generative-model
// responses. Model output carries no format guarantee, so parsing is
// layered: fenced block, direct parse, deterministic repair, whole-text
// parse, and finally the raw string unchanged. Extraction never fails.
package extract

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
)

// Shape tells Extract what the caller expects back.
type Shape int

const (
	// ShapeArray and ShapeObject both request JSON extraction; the
	// parsed value is returned as-is and callers assert the type.
	ShapeArray Shape = iota
	ShapeObject
	// ShapeText requests the last fenced code block as plain text.
	ShapeText
)

var (
	fenceRe     = regexp.MustCompile("(?is)```(?:json|cpp)?\\s*(.*?)```")
	jsonFenceRe = regexp.MustCompile("(?is)```json\\s*(.*?)```")
)

// Extract dispatches on shape. ShapeText returns a string from
// CodeBlock; the JSON shapes return whatever JSON yields.
func Extract(raw string, shape Shape) any {
	if shape == ShapeText {
		return CodeBlock(raw)
	}
	return JSON(raw)
}

// CodeBlock returns the contents of the last fenced block in text, or
// the trimmed text when no block is present. Last, not first: models
// often emit draft blocks before the final one.
func CodeBlock(text string) string {
	m := fenceRe.FindAllStringSubmatch(text, -1)
	if len(m) > 0 {
		return strings.TrimSpace(m[len(m)-1][1])
	}
	return strings.TrimSpace(text)
}

// JSON decodes the structured payload in raw. On success the parsed
// value is returned (json.Unmarshal into any: []any, map[string]any,
// string, float64, ...). When every layer fails, the original raw
// string comes back unchanged and callers degrade gracefully.
func JSON(raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return raw
	}

	// A json-labeled fence outranks code or commentary fences that
	// may follow it; unlabeled fences are only trusted when no
	// labeled one exists.
	inner := s
	if m := jsonFenceRe.FindAllStringSubmatch(s, -1); len(m) > 0 {
		inner = strings.TrimSpace(m[len(m)-1][1])
	} else if m := fenceRe.FindAllStringSubmatch(s, -1); len(m) > 0 {
		inner = strings.TrimSpace(m[len(m)-1][1])
	}

	if v, err := parse(inner); err == nil {
		return v
	}
	if v, err := parse(Repair(inner)); err == nil {
		return v
	}
	// The fence heuristic may have picked the wrong span.
	if v, err := parse(s); err == nil {
		return v
	}
	slog.Debug("extract: returning raw text, no layer parsed", "len", len(raw))
	return raw
}

func parse(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}

var (
	splitStringRe   = regexp.MustCompile(`"\s*\n\s*"`)
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// Repair applies the deterministic fixes for the malformations models
// actually produce: embedded NULs, stray backslashes, string values
// split across lines without a comma, trailing commas, and
// single-quoted pseudo-JSON. It is not a general lenient parser; text
// outside these patterns stays broken.
func Repair(s string) string {
	s = strings.ReplaceAll(s, `\0`, `\\0`)
	s = strings.ReplaceAll(s, "'\x00'", `'\\0'`)
	s = splitStringRe.ReplaceAllString(s, "\",\n\"")
	s = escapeStrayBackslashes(s)
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		s = strings.ReplaceAll(s, "'", `"`)
	}
	return s
}

// A backslash not opening a recognized escape sequence gets doubled.
func escapeStrayBackslashes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && (i+1 >= len(s) || !opensEscape(s[i+1])) {
			b.WriteString(`\\`)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func opensEscape(c byte) bool {
	switch c {
	case 'n', 't', 'r', '"', '\\', 'u', '0':
		return true
	}
	return false
}
