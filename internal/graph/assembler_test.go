package graph

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Graph Assembler:
// - Output matches the wire schema byte for byte for a two-edge trace
// - Identical input produces identical bytes across runs
// - Empty registry renders an empty functions object
// - Marshal then unmarshal preserves order and counts
// - &, < and > in paths and names are written unescaped
// - Output file name follows <project>_call_graph.json

func TestEncode_TwoEdgeTrace(t *testing.T) {
	t.Parallel()

	r, _, err := ParseTrace(strings.NewReader(twoEdgeTrace))
	require.NoError(t, err)

	want := `{
  "functions": {
    "a.rs:10:foo": {
      "file_path": "a.rs",
      "line": 10,
      "name": "foo",
      "call_count": 2,
      "calls": [
        "b.rs:20:bar",
        "c.rs:5:baz"
      ]
    },
    "b.rs:20:bar": {
      "file_path": "b.rs",
      "line": 20,
      "name": "bar",
      "call_count": 0,
      "calls": []
    },
    "c.rs:5:baz": {
      "file_path": "c.rs",
      "line": 5,
      "name": "baz",
      "call_count": 0,
      "calls": []
    }
  }
}
`
	assert.Equal(t, want, encodeString(t, r))
}

func TestEncode_Deterministic(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("src/f")
		b.WriteString(strings.Repeat("x", i%5))
		b.WriteString(".rs:1:caller -> src/g.rs:")
		b.WriteString(strings.Repeat("1", i%3+1))
		b.WriteString(":callee (call at 1:1)\n")
	}
	input := b.String()

	first, _, err := ParseTrace(strings.NewReader(input))
	require.NoError(t, err)
	want := encodeString(t, first)

	for i := 0; i < 5; i++ {
		again, _, err := ParseTrace(strings.NewReader(input))
		require.NoError(t, err)
		assert.Equal(t, want, encodeString(t, again))
	}
}

func TestEncode_Empty(t *testing.T) {
	t.Parallel()

	assert.JSONEq(t, `{"functions": {}}`, encodeString(t, NewRegistry()))
}

func TestRegistry_UnmarshalPreservesOrder(t *testing.T) {
	t.Parallel()

	r, _, err := ParseTrace(strings.NewReader(twoEdgeTrace))
	require.NoError(t, err)

	data, err := json.Marshal(r)
	require.NoError(t, err)

	loaded := NewRegistry()
	require.NoError(t, json.Unmarshal(data, loaded))

	require.Equal(t, r.Len(), loaded.Len())
	for i, fn := range loaded.Functions() {
		orig := r.Functions()[i]
		assert.Equal(t, orig.String(), fn.String())
		assert.Equal(t, orig.CallCount, fn.CallCount)
		assert.Equal(t, orig.Calls, fn.Calls)
	}
}

func TestEncode_NoHTMLEscaping(t *testing.T) {
	t.Parallel()

	r, _, err := ParseTrace(strings.NewReader("src/a&b.rs:1:cmp<T> -> src/ord.rs:4:max>min (call at 2:3)\n"))
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, Encode(&sb, r))
	out := sb.String()

	assert.Contains(t, out, `"src/a&b.rs:1:cmp<T>": {`)
	assert.Contains(t, out, `"file_path": "src/a&b.rs"`)
	assert.Contains(t, out, `"name": "cmp<T>"`)
	assert.Contains(t, out, `"src/ord.rs:4:max>min"`)
	assert.NotContains(t, out, `\u00`)

	compact, err := Marshal(r)
	require.NoError(t, err)
	assert.NotContains(t, string(compact), `\u00`)
	assert.True(t, json.Valid(compact))
}

func TestOutputFileName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "mango-v3_call_graph.json", OutputFileName("mango-v3"))
}
