package graph

import (
	"strconv"
	"strings"
)

// FunctionID identifies a function by where it is defined.
// Two references with the same file, definition line and name are the same function.
type FunctionID struct {
	FilePath string // Path as reported by the analyzer (may contain colons)
	Line     int    // Definition line (1-indexed)
	Name     string // Function name
}

// String renders the identity as file_path:line:name.
func (id FunctionID) String() string {
	var b strings.Builder
	b.Grow(len(id.FilePath) + len(id.Name) + 8)
	b.WriteString(id.FilePath)
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(id.Line))
	b.WriteByte(':')
	b.WriteString(id.Name)
	return b.String()
}

// Function is one entry of the call graph.
type Function struct {
	FunctionID

	// CallCount is the number of call edges recorded with this function as caller.
	// It always equals len(Calls).
	CallCount int

	// Calls lists callee identities in the order they were encountered.
	// Duplicates are kept: a function calling bar twice lists bar twice.
	Calls []string
}

// Edge is a single caller -> callee relationship read from a trace line.
// Edges are consumed by the Registry and not retained.
type Edge struct {
	Caller FunctionID
	Callee FunctionID
	Line   int // Call site line
	Column int // Call site column
}

// functionJSON is the wire shape of a Function inside the "functions" object.
type functionJSON struct {
	FilePath  string   `json:"file_path"`
	Line      int      `json:"line"`
	Name      string   `json:"name"`
	CallCount int      `json:"call_count"`
	Calls     []string `json:"calls"`
}
