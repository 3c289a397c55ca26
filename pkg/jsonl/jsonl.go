// Package jsonl reads and writes newline-delimited JSON files.
//
// Malformed lines are skipped with a diagnostic rather than aborting the
// whole file: batch inputs come from upstream model output and a single
// bad line should not cost the run.
package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Scanner buffer cap. Records carry whole source files on one line.
const maxLineBytes = 16 << 20

// Read decodes every well-formed line of the file at path into T.
// Blank lines are ignored; undecodable lines are logged and skipped.
func Read[T any](path string) ([]T, error) {
	return ReadLimit[T](path, 0)
}

// ReadLimit is Read capped at the first limit records. limit <= 0 means
// no cap.
func ReadLimit[T any](path string, limit int) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("jsonl: open %s: %w", path, err)
	}
	defer f.Close()

	var out []T
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64<<10), maxLineBytes)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var v T
		if err := json.Unmarshal([]byte(line), &v); err != nil {
			slog.Warn("jsonl: skipping malformed line",
				"path", path, "line", lineNo, "error", err)
			continue
		}
		out = append(out, v)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("jsonl: read %s: %w", path, err)
	}
	return out, nil
}

// Write encodes items one JSON object per line, replacing any existing
// file at path.
func Write[T any](path string, items []T) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("jsonl: create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	for i, v := range items {
		b, err := json.Marshal(v)
		if err != nil {
			f.Close()
			return fmt.Errorf("jsonl: encode record %d: %w", i, err)
		}
		w.Write(b)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("jsonl: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("jsonl: close %s: %w", path, err)
	}
	return nil
}
