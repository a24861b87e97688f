package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Record is the consolidated result of one symbol lookup.
type Record struct {
	Contract   string      `json:"contract"`
	Function   string      `json:"function"` // canonical signature, name(type1,type2)
	Source     string      `json:"source"`
	Location   Location    `json:"location"`
	Parameters []Parameter `json:"parameter"`
	Calls      []Call      `json:"calls"`
}

// Location is the span a symbol occupies in its origin file (1-based, inclusive).
type Location struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// Parameter is one named, typed function parameter.
type Parameter struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Call is an outgoing call reference listed in a symbol report.
// The "functiion" key is part of the established output format.
type Call struct {
	File     string `json:"file"`
	Function string `json:"functiion"`
	Module   string `json:"module"`
}

// Empty reports whether the record carries no symbol at all.
func (r Record) Empty() bool {
	return r.Contract == "" && r.Function == "" && r.Source == "" &&
		r.Location == (Location{}) && len(r.Parameters) == 0 && len(r.Calls) == 0
}

// MarshalJSON renders an empty record as {} and never emits null lists.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.Empty() {
		return []byte("{}"), nil
	}

	type plain Record
	p := plain(r)
	if p.Parameters == nil {
		p.Parameters = []Parameter{}
	}
	if p.Calls == nil {
		p.Calls = []Call{}
	}

	// Source snippets are full of & and <; keep them readable.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Encode writes the record as JSON. Indented output uses two spaces.
func Encode(w io.Writer, r *Record, indent bool) error {
	if r == nil {
		r = &Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode symbol record: %w", err)
	}
	return nil
}
