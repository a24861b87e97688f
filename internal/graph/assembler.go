package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// OutputSuffix is appended to the project name to form the call graph file name.
const OutputSuffix = "_call_graph.json"

// callGraphJSON is the top-level wire document, used when reading.
type callGraphJSON struct {
	Functions *orderedmap.OrderedMap[string, functionJSON] `json:"functions"`
}

// OutputFileName returns the call graph file name for a project: <project>_call_graph.json.
func OutputFileName(project string) string {
	return project + OutputSuffix
}

// MarshalJSON renders the registry as {"functions": {...}} keeping first-insertion
// order. Entries are written one by one so that no step escapes HTML characters.
func (r *Registry) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"functions":{`)
	for i, fn := range r.Functions() {
		calls := fn.Calls
		if calls == nil {
			calls = []string{}
		}

		key, err := marshalRaw(fn.String())
		if err != nil {
			return nil, err
		}
		value, err := marshalRaw(functionJSON{
			FilePath:  fn.FilePath,
			Line:      fn.Line,
			Name:      fn.Name,
			CallCount: fn.CallCount,
			Calls:     calls,
		})
		if err != nil {
			return nil, err
		}

		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

// Marshal renders the registry as compact JSON without HTML escaping.
func Marshal(r *Registry) ([]byte, error) {
	return marshalRaw(r)
}

// marshalRaw is json.Marshal without escaping &, < and >, which are common in
// generic Rust names.
func marshalRaw(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON rebuilds a registry from a previously written call graph document.
func (r *Registry) UnmarshalJSON(data []byte) error {
	wire := callGraphJSON{
		Functions: orderedmap.New[string, functionJSON](),
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	r.functions = orderedmap.New[string, *Function](wire.Functions.Len())
	for pair := wire.Functions.Oldest(); pair != nil; pair = pair.Next() {
		v := pair.Value
		r.add(&Function{
			FunctionID: FunctionID{FilePath: v.FilePath, Line: v.Line, Name: v.Name},
			Calls:      v.Calls,
		})
	}
	return nil
}

// Encode writes the registry as indented JSON. Output is byte-identical for identical input.
func Encode(w io.Writer, r *Registry) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode call graph: %w", err)
	}
	return nil
}
