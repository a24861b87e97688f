package source

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Fallback selects the span reported when a snippet cannot be found in its file.
type Fallback string

const (
	// FallbackSnippet reports (1, snippet line count).
	FallbackSnippet Fallback = "snippet"
	// FallbackHeader reports the Start Line/End Line declared in the report.
	FallbackHeader Fallback = "header"
)

// ParseFallback validates a fallback name, ignoring case and surrounding space.
// Empty means FallbackSnippet.
func ParseFallback(s string) (Fallback, error) {
	switch Fallback(strings.ToLower(strings.TrimSpace(s))) {
	case "", FallbackSnippet:
		return FallbackSnippet, nil
	case FallbackHeader:
		return FallbackHeader, nil
	default:
		return "", fmt.Errorf("unknown location fallback %q (want %q or %q)", s, FallbackSnippet, FallbackHeader)
	}
}

// Span is a 1-based inclusive line range.
type Span struct {
	Start   int
	End     int
	Matched bool // true when the snippet was found verbatim in the file
}

// Reconciler maps source snippets back onto the lines of their origin file.
type Reconciler struct {
	Root     string   // base for relative file paths; empty means the working directory
	Fallback Fallback // applied by Reconcile when Locate finds no match
}

// Locate finds the first place in filePath where every snippet line matches the
// file consecutively, comparing whitespace-trimmed text. When there is no such
// place, or the file cannot be read, it returns (1, snippet line count).
func (rc *Reconciler) Locate(snippet []string, filePath string) Span {
	lines := trimSnippet(snippet)
	if len(lines) == 0 {
		return Span{Start: 1, End: 1}
	}
	fallback := Span{Start: 1, End: len(lines)}

	fileLines, err := rc.readLines(filePath)
	if err != nil {
		return fallback
	}

	anchor := lines[0]
	for i, candidate := range fileLines {
		if candidate != anchor {
			continue
		}
		matched := 0
		for j := range lines {
			if i+j >= len(fileLines) || fileLines[i+j] != lines[j] {
				break
			}
			matched++
		}
		if matched == len(lines) {
			return Span{Start: i + 1, End: i + matched, Matched: true}
		}
	}

	return fallback
}

// Reconcile locates the snippet and applies the configured fallback when it is not found.
func (rc *Reconciler) Reconcile(snippet []string, filePath string, declared Span) Span {
	span := rc.Locate(snippet, filePath)
	if !span.Matched && rc.Fallback == FallbackHeader {
		return declared
	}
	return span
}

func (rc *Reconciler) resolve(filePath string) string {
	if rc.Root == "" || filepath.IsAbs(filePath) {
		return filePath
	}
	return filepath.Join(rc.Root, filePath)
}

func (rc *Reconciler) readLines(filePath string) ([]string, error) {
	f, err := os.Open(rc.resolve(filePath))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// trimSnippet trims every line and keeps the run from the first to the last non-blank line.
func trimSnippet(snippet []string) []string {
	first, last := -1, -1
	trimmed := make([]string, len(snippet))
	for i, line := range snippet {
		trimmed[i] = strings.TrimSpace(line)
		if trimmed[i] == "" {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	if first < 0 {
		return nil
	}
	return trimmed[first : last+1]
}
