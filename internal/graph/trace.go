package graph

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/gobwas/glob"
)

// maxTraceLine bounds a single trace line. Longer lines are drained and counted
// as skipped.
const maxTraceLine = 16 * 1024 * 1024

// edgePattern matches: <caller> -> <callee> (call at <line>:<column>)
var edgePattern = regexp.MustCompile(`^(.+?)\s*->\s*(.+?)\s*\(call at (\d+):(\d+)\)$`)

// TraceStats summarizes one pass over a trace.
type TraceStats struct {
	Lines   int // Lines read, including blank and comment lines
	Edges   int // Edges recorded into the registry
	Skipped int // Non-blank lines that did not match the trace grammar
	Ignored int // Valid edges dropped by ignore patterns
}

// TraceParser turns call-hierarchy trace text into a Registry.
type TraceParser struct {
	ignore  []glob.Glob
	logger  *slog.Logger
	maxLine int
}

// TraceOption configures a TraceParser.
type TraceOption func(*traceConfig)

type traceConfig struct {
	ignorePatterns []string
	logger         *slog.Logger
	maxLine        int
}

// WithIgnorePatterns drops edges whose caller or callee file matches any glob pattern.
func WithIgnorePatterns(patterns []string) TraceOption {
	return func(c *traceConfig) {
		c.ignorePatterns = append(c.ignorePatterns, patterns...)
	}
}

// WithLogger sets the logger used for skipped-line diagnostics.
func WithLogger(logger *slog.Logger) TraceOption {
	return func(c *traceConfig) {
		c.logger = logger
	}
}

// WithMaxLineLength sets the longest line, in bytes, that is parsed. Non-positive
// values keep the default of 16MB.
func WithMaxLineLength(n int) TraceOption {
	return func(c *traceConfig) {
		if n > 0 {
			c.maxLine = n
		}
	}
}

// NewTraceParser creates a parser. It fails only if an ignore pattern does not compile.
func NewTraceParser(opts ...TraceOption) (*TraceParser, error) {
	cfg := &traceConfig{maxLine: maxTraceLine}
	for _, opt := range opts {
		opt(cfg)
	}

	p := &TraceParser{logger: cfg.logger, maxLine: cfg.maxLine}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}

	for _, pattern := range cfg.ignorePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		p.ignore = append(p.ignore, g)
	}

	return p, nil
}

// ParseTrace parses r with a default parser.
func ParseTrace(r io.Reader, opts ...TraceOption) (*Registry, *TraceStats, error) {
	p, err := NewTraceParser(opts...)
	if err != nil {
		return nil, nil, err
	}
	return p.Parse(r)
}

// Parse reads the whole trace and returns a fresh registry.
// Malformed and over-long lines are skipped; only read failures are returned as errors.
func (p *TraceParser) Parse(r io.Reader) (*Registry, *TraceStats, error) {
	registry := NewRegistry()
	stats := &TraceStats{}

	br := bufio.NewReaderSize(r, 64*1024)
	for {
		raw, tooLong, err := readLine(br, p.maxLine)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("failed to read trace: %w", err)
		}
		stats.Lines++

		if tooLong {
			stats.Skipped++
			p.logger.Debug("skipping over-long trace line", "line", stats.Lines, "max_bytes", p.maxLine)
			continue
		}

		line := strings.TrimSpace(string(raw))
		if line == "" {
			continue
		}

		edge, ok := ParseEdge(line)
		if !ok {
			stats.Skipped++
			p.logger.Debug("skipping trace line", "line", stats.Lines)
			continue
		}

		if p.ignored(edge.Caller.FilePath) || p.ignored(edge.Callee.FilePath) {
			stats.Ignored++
			continue
		}

		registry.RecordEdge(edge.Caller, edge.Callee)
		stats.Edges++
	}

	return registry, stats, nil
}

// readLine returns the next line without its terminator. A line longer than max
// is consumed in full but its bytes are dropped and tooLong is set.
// io.EOF is returned only when no line remains.
func readLine(br *bufio.Reader, max int) (line []byte, tooLong bool, err error) {
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			return nil, false, err
		}
		if !tooLong {
			if len(line)+len(chunk) > max {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if !isPrefix {
			return line, tooLong, nil
		}
	}
}

func (p *TraceParser) ignored(path string) bool {
	for _, g := range p.ignore {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// ParseEdge parses one trimmed trace line. It reports false for any line that does not
// match the outer grammar or whose caller/callee is not a valid function identity.
func ParseEdge(line string) (Edge, bool) {
	m := edgePattern.FindStringSubmatch(line)
	if m == nil {
		return Edge{}, false
	}

	caller, ok := ParseFunctionID(m[1])
	if !ok {
		return Edge{}, false
	}
	callee, ok := ParseFunctionID(m[2])
	if !ok {
		return Edge{}, false
	}

	callLine, err := strconv.Atoi(m[3])
	if err != nil {
		return Edge{}, false
	}
	callCol, err := strconv.Atoi(m[4])
	if err != nil {
		return Edge{}, false
	}

	return Edge{Caller: caller, Callee: callee, Line: callLine, Column: callCol}, true
}

// ParseFunctionID parses <file_path>:<def_line>:<name>, splitting from the right so the
// file path may itself contain colons (Windows drives, URIs).
func ParseFunctionID(s string) (FunctionID, bool) {
	s = strings.TrimSpace(s)

	nameSep := strings.LastIndexByte(s, ':')
	if nameSep < 0 {
		return FunctionID{}, false
	}
	name := s[nameSep+1:]
	rest := s[:nameSep]

	lineSep := strings.LastIndexByte(rest, ':')
	if lineSep < 0 {
		return FunctionID{}, false
	}
	lineText := rest[lineSep+1:]
	path := rest[:lineSep]

	if name == "" || path == "" || !isDigits(lineText) {
		return FunctionID{}, false
	}

	line, err := strconv.Atoi(lineText)
	if err != nil {
		return FunctionID{}, false
	}

	return FunctionID{FilePath: path, Line: line, Name: name}, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
