package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Location Reconciler:
// - Snippet matching at line 42 reports (42, 42+N-1)
// - Indentation differences are ignored
// - A partial match at an earlier anchor does not stop the scan
// - Missing file falls back to (1, N)
// - Interior blank lines count toward N and must match the file
// - Header fallback returns the declared span when no match is found
// - Relative paths resolve against Root

func writeSource(t *testing.T, dir, name string, lines []string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
	return path
}

func fillerLines(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("// filler %d", i+1)
	}
	return lines
}

func TestLocate_FoundInFile(t *testing.T) {
	t.Parallel()

	body := []string{
		"pub fn withdraw(ctx: Context<Withdraw>, amount: u64) -> Result<()> {",
		"    let vault = &mut ctx.accounts.vault;",
		"    vault.balance -= amount;",
		"    Ok(())",
		"}",
	}
	lines := append(fillerLines(41), body...)
	lines = append(lines, "// trailing")
	path := writeSource(t, t.TempDir(), "lib.rs", lines)

	rc := &Reconciler{}
	span := rc.Locate(body, path)

	assert.True(t, span.Matched)
	assert.Equal(t, 42, span.Start)
	assert.Equal(t, 42+len(body)-1, span.End)
}

func TestLocate_IgnoresIndentation(t *testing.T) {
	t.Parallel()

	path := writeSource(t, t.TempDir(), "a.rs", []string{
		"mod inner {",
		"        fn deep() {",
		"            work();",
		"        }",
		"}",
	})

	span := (&Reconciler{}).Locate([]string{"fn deep() {", "  work();", "}"}, path)
	assert.Equal(t, Span{Start: 2, End: 4, Matched: true}, span)
}

func TestLocate_SkipsPartialCandidate(t *testing.T) {
	t.Parallel()

	path := writeSource(t, t.TempDir(), "a.rs", []string{
		"fn run() {",
		"    first();",
		"}",
		"fn run() {",
		"    second();",
		"}",
	})

	span := (&Reconciler{}).Locate([]string{"fn run() {", "second();", "}"}, path)
	assert.Equal(t, Span{Start: 4, End: 6, Matched: true}, span)
}

func TestLocate_LeadingBlankLinesIgnored(t *testing.T) {
	t.Parallel()

	path := writeSource(t, t.TempDir(), "a.rs", []string{"", "fn a() {}", "fn b() {}"})

	span := (&Reconciler{}).Locate([]string{"", "   ", "fn b() {}", ""}, path)
	assert.Equal(t, Span{Start: 3, End: 3, Matched: true}, span)
}

func TestLocate_MissingFile(t *testing.T) {
	t.Parallel()

	rc := &Reconciler{}
	span := rc.Locate([]string{"fn a() {", "}", ""}, filepath.Join(t.TempDir(), "nope.rs"))
	assert.Equal(t, Span{Start: 1, End: 2}, span)
}

func TestLocate_InteriorBlankLineCounted(t *testing.T) {
	t.Parallel()

	snippet := []string{"fn a() {", "", "    b();", "}"}

	span := (&Reconciler{}).Locate(snippet, filepath.Join(t.TempDir(), "nope.rs"))
	assert.Equal(t, Span{Start: 1, End: 4}, span)

	path := writeSource(t, t.TempDir(), "a.rs", []string{"// a", "fn a() {", "", "b();", "}"})
	span = (&Reconciler{}).Locate(snippet, path)
	assert.Equal(t, Span{Start: 2, End: 5, Matched: true}, span)
}

func TestLocate_NoMatch(t *testing.T) {
	t.Parallel()

	path := writeSource(t, t.TempDir(), "a.rs", []string{"fn a() {", "}"})
	span := (&Reconciler{}).Locate([]string{"fn other() {", "x();", "}"}, path)
	assert.Equal(t, Span{Start: 1, End: 3}, span)
}

func TestReconcile_HeaderFallback(t *testing.T) {
	t.Parallel()

	declared := Span{Start: 120, End: 140}
	missing := filepath.Join(t.TempDir(), "gone.rs")

	snippetRC := &Reconciler{Fallback: FallbackSnippet}
	assert.Equal(t, Span{Start: 1, End: 1}, snippetRC.Reconcile([]string{"fn a() {}"}, missing, declared))

	headerRC := &Reconciler{Fallback: FallbackHeader}
	assert.Equal(t, declared, headerRC.Reconcile([]string{"fn a() {}"}, missing, declared))
}

func TestLocate_RelativeToRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeSource(t, root, "programs/vault/src/lib.rs", []string{"use x;", "fn v() {}"})

	rc := &Reconciler{Root: root}
	span := rc.Locate([]string{"fn v() {}"}, "programs/vault/src/lib.rs")
	assert.Equal(t, Span{Start: 2, End: 2, Matched: true}, span)
}

func TestParseFallback(t *testing.T) {
	t.Parallel()

	f, err := ParseFallback("")
	require.NoError(t, err)
	assert.Equal(t, FallbackSnippet, f)

	f, err = ParseFallback("header")
	require.NoError(t, err)
	assert.Equal(t, FallbackHeader, f)

	f, err = ParseFallback(" Header ")
	require.NoError(t, err)
	assert.Equal(t, FallbackHeader, f)

	f, err = ParseFallback("SNIPPET")
	require.NoError(t, err)
	assert.Equal(t, FallbackSnippet, f)

	_, err = ParseFallback("guess")
	assert.Error(t, err)
}
