package source

import (
	"regexp"
	"strings"
)

// Dialect identifies which surface syntax produced a signature.
type Dialect string

const (
	DialectNone     Dialect = ""
	DialectRust     Dialect = "rust"
	DialectSolidity Dialect = "solidity"
	DialectFallback Dialect = "fallback"
)

// Signature is a function name plus its ordered parameters.
type Signature struct {
	Name       string
	Parameters []Parameter
	Dialect    Dialect
}

// Canonical renders name(type1,type2,...), or "" when no name was found.
func (s Signature) Canonical() string {
	if s.Name == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteByte('(')
	for i, p := range s.Parameters {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.Type)
	}
	b.WriteByte(')')
	return b.String()
}

var callPattern = regexp.MustCompile(`(\w+)\s*\(`)

// rustQualifiers may precede fn in a Rust definition.
var rustQualifiers = []string{"pub ", "async ", "const ", "unsafe ", "default ", "extern "}

// ExtractSignature finds the defining line in a source snippet and derives its signature.
// A Rust definition anywhere in the snippet wins over a Solidity one, which wins over the
// bare call-like fallback.
func ExtractSignature(lines []string) Signature {
	for i, line := range lines {
		if rest, ok := rustDefinition(strings.TrimSpace(line)); ok {
			if sig := parseRust(rest, lines[i+1:]); sig.Name != "" {
				return sig
			}
			return fallbackSignature(lines)
		}
	}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if isComment(trimmed) {
			continue
		}
		if idx := strings.Index(trimmed, "function "); idx >= 0 {
			if sig := parseSolidity(trimmed[idx+len("function "):], lines[i+1:]); sig.Name != "" {
				return sig
			}
			break
		}
	}

	return fallbackSignature(lines)
}

// rustDefinition strips visibility and qualifiers and returns what follows "fn ".
func rustDefinition(line string) (string, bool) {
	rest := line
	for {
		switch {
		case strings.HasPrefix(rest, "fn "):
			return strings.TrimSpace(rest[len("fn "):]), true
		case strings.HasPrefix(rest, "pub("):
			end := strings.IndexByte(rest, ')')
			if end < 0 {
				return "", false
			}
			rest = strings.TrimSpace(rest[end+1:])
		case strings.HasPrefix(rest, `extern "`):
			abi := rest[len(`extern "`):]
			end := strings.IndexByte(abi, '"')
			if end < 0 {
				return "", false
			}
			rest = strings.TrimSpace(abi[end+1:])
		default:
			stripped := false
			for _, q := range rustQualifiers {
				if strings.HasPrefix(rest, q) {
					rest = strings.TrimSpace(rest[len(q):])
					stripped = true
					break
				}
			}
			if !stripped {
				return "", false
			}
		}
	}
}

func parseRust(rest string, following []string) Signature {
	name, after := leadingIdent(rest)
	if name == "" {
		return Signature{}
	}

	after = strings.TrimSpace(after)
	if strings.HasPrefix(after, "<") {
		after = skipGenerics(after)
	}

	params := make([]Parameter, 0)
	for _, raw := range splitTopLevel(paramList(after, following)) {
		if isReceiver(raw) {
			continue
		}
		colon := strings.IndexByte(raw, ':')
		if colon < 0 {
			continue
		}
		params = append(params, Parameter{
			Name: strings.TrimSpace(raw[:colon]),
			Type: strings.TrimSpace(raw[colon+1:]),
		})
	}

	return Signature{Name: name, Parameters: params, Dialect: DialectRust}
}

func parseSolidity(rest string, following []string) Signature {
	name, after := leadingIdent(strings.TrimSpace(rest))
	if name == "" {
		return Signature{}
	}

	params := make([]Parameter, 0)
	for _, raw := range splitTopLevel(paramList(after, following)) {
		fields := strings.Fields(raw)
		if len(fields) < 2 {
			continue
		}
		// uint256 amount, bytes memory data: type first, name last
		params = append(params, Parameter{Name: fields[len(fields)-1], Type: fields[0]})
	}

	return Signature{Name: name, Parameters: params, Dialect: DialectSolidity}
}

func fallbackSignature(lines []string) Signature {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isComment(trimmed) {
			continue
		}
		if m := callPattern.FindStringSubmatch(trimmed); m != nil {
			return Signature{Name: m[1], Parameters: []Parameter{}, Dialect: DialectFallback}
		}
	}
	return Signature{}
}

func isComment(line string) bool {
	return strings.HasPrefix(line, "//") || strings.HasPrefix(line, "/*") || strings.HasPrefix(line, "*")
}

// isReceiver matches self, &self, &mut self, &'a self, mut self and self: Type.
func isReceiver(param string) bool {
	p := strings.TrimPrefix(param, "&")
	if strings.HasPrefix(p, "'") {
		if sp := strings.IndexByte(p, ' '); sp >= 0 {
			p = strings.TrimSpace(p[sp+1:])
		}
	}
	p = strings.TrimSpace(strings.TrimPrefix(p, "mut "))

	if p == "self" {
		return true
	}
	if strings.HasPrefix(p, "self") {
		return strings.HasPrefix(strings.TrimSpace(p[len("self"):]), ":")
	}
	return false
}

func leadingIdent(s string) (string, string) {
	end := 0
	for end < len(s) && isIdentByte(s[end]) {
		end++
	}
	return s[:end], s[end:]
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// skipGenerics drops a leading balanced <...> group.
func skipGenerics(s string) string {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if i > 0 && s[i-1] == '-' {
				continue
			}
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[i+1:])
			}
		}
	}
	return ""
}

// paramList returns the text inside the parenthesized group that opens s,
// pulling in following lines while the group is still open.
func paramList(s string, following []string) string {
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return ""
	}

	text := s[open+1:]
	depth := 1
	for i, next := 0, 0; ; i++ {
		if i == len(text) {
			if next >= len(following) {
				return text
			}
			text += " " + strings.TrimSpace(following[next])
			next++
		}
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return text[:i]
			}
		}
	}
}

// splitTopLevel splits on commas outside (), [], {} and <>.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{', '<':
			depth++
		case ')', ']', '}':
			depth--
		case '>':
			if i > 0 && s[i-1] == '-' {
				continue
			}
			depth--
		case ',':
			if depth == 0 {
				parts = appendTrimmed(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return appendTrimmed(parts, s[start:])
}

func appendTrimmed(parts []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		parts = append(parts, s)
	}
	return parts
}
