package source

import (
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
)

// Report section markers.
const (
	filePathHeader  = "File Path:"
	startLineHeader = "Start Line:"
	endLineHeader   = "End Line:"
	sourceHeader    = "Source Code:"
	callsHeader     = "Function Calls:"
	callPrefix      = "->"
	noCallsToken    = "None"
)

// ReportOption configures ParseReport.
type ReportOption func(*reportConfig)

type reportConfig struct {
	reconciler *Reconciler
	logger     *slog.Logger
}

// WithReconciler sets how snippet locations are resolved against source files.
func WithReconciler(rc *Reconciler) ReportOption {
	return func(c *reportConfig) {
		if rc != nil {
			c.reconciler = rc
		}
	}
}

// WithReportLogger sets the logger used for parse diagnostics.
func WithReportLogger(logger *slog.Logger) ReportOption {
	return func(c *reportConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// ParseReport turns a symbol report into a Record. Only the first File Path block
// is consumed; a report without one yields an empty Record.
func ParseReport(text string, opts ...ReportOption) *Record {
	cfg := reportConfig{
		reconciler: &Reconciler{Fallback: FallbackSnippet},
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), filePathHeader) {
			return parseBlock(lines, i, &cfg)
		}
	}

	cfg.logger.Debug("symbol report has no File Path block")
	return &Record{}
}

type block struct {
	filePath string
	declared Span
	snippet  string
	calls    []Call
}

func parseBlock(lines []string, i int, cfg *reportConfig) *Record {
	b := block{
		filePath: headerValue(lines[i], filePathHeader),
		declared: Span{Start: 1, End: 1},
		calls:    []Call{},
	}
	i++

	if i < len(lines) && hasPrefixTrimmed(lines[i], startLineHeader) {
		b.declared.Start = headerInt(lines[i], startLineHeader, cfg.logger)
		i++
	}
	if i < len(lines) && hasPrefixTrimmed(lines[i], endLineHeader) {
		b.declared.End = headerInt(lines[i], endLineHeader, cfg.logger)
		i++
	}

	if i < len(lines) && strings.TrimSpace(lines[i]) == sourceHeader {
		i++
		var src []string
		for ; i < len(lines); i++ {
			if hasPrefixTrimmed(lines[i], callsHeader) || blockBoundary(lines, i) {
				break
			}
			src = append(src, lines[i])
		}
		b.snippet = strings.TrimSpace(strings.Join(src, "\n"))
	}

	if i < len(lines) && hasPrefixTrimmed(lines[i], callsHeader) {
		if !strings.Contains(lines[i], noCallsToken) {
			b.calls = parseCalls(lines, i+1)
		}
	}

	return b.record(cfg.reconciler)
}

// parseCalls reads "-> path:x:name" lines until the next block starts.
func parseCalls(lines []string, i int) []Call {
	calls := []Call{}
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if blockBoundary(lines, i) || strings.HasPrefix(line, filePathHeader) {
			break
		}
		if !strings.HasPrefix(line, callPrefix) {
			continue
		}

		info := strings.TrimSpace(strings.ReplaceAll(line, callPrefix, ""))
		path, name, ok := splitCallRef(info)
		if !ok {
			continue
		}
		calls = append(calls, Call{File: path, Function: name, Module: fileStem(path)})
	}
	return calls
}

func (b block) record(rc *Reconciler) *Record {
	rec := &Record{
		Contract:   fileStem(b.filePath),
		Source:     b.snippet,
		Location:   Location{File: b.filePath, StartLine: b.declared.Start, EndLine: b.declared.End},
		Parameters: []Parameter{},
		Calls:      b.calls,
	}
	if b.snippet == "" {
		return rec
	}

	snippet := strings.Split(b.snippet, "\n")
	sig := ExtractSignature(snippet)
	rec.Function = sig.Canonical()
	if sig.Parameters != nil {
		rec.Parameters = sig.Parameters
	}

	span := rc.Reconcile(snippet, b.filePath, b.declared)
	rec.Location.StartLine = span.Start
	rec.Location.EndLine = span.End
	return rec
}

// splitCallRef takes the two right-most colon fields: the last is the callee,
// the one before it is dropped, everything earlier is the file path.
func splitCallRef(s string) (string, string, bool) {
	last := strings.LastIndexByte(s, ':')
	if last < 0 {
		return "", "", false
	}
	mid := strings.LastIndexByte(s[:last], ':')
	if mid < 0 {
		return "", "", false
	}
	return s[:mid], s[last+1:], true
}

// blockBoundary reports a blank line directly before the next File Path header.
func blockBoundary(lines []string, i int) bool {
	return strings.TrimSpace(lines[i]) == "" && i+1 < len(lines) && hasPrefixTrimmed(lines[i+1], filePathHeader)
}

func hasPrefixTrimmed(line, prefix string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), prefix)
}

func headerValue(line, header string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), header))
}

func headerInt(line, header string, logger *slog.Logger) int {
	v := headerValue(line, header)
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Debug("ignoring non-numeric report header", "header", header, "value", v)
		return 1
	}
	return n
}

// fileStem strips directory and extension: programs/vault/src/lib.rs -> lib.
func fileStem(path string) string {
	if path == "" {
		return ""
	}
	base := filepath.Base(filepath.ToSlash(path))
	if stem := strings.TrimSuffix(base, filepath.Ext(base)); stem != "" {
		return stem
	}
	return base
}
