package mapping

import (
	"fmt"
	"strings"
)

// Rule is the parsed form of a checked_when expression. The grammar is a
// single equality over a canonical key:
//
//	key == 'literal'
//
// Anything else fails to parse and the mapping carrying it is skipped.
// Keeping the expression a closed tagged value instead of matching it with
// regular expressions at evaluation time makes "unparseable" an explicit
// state callers must handle.
type Rule struct {
	Key     string
	Literal string
}

// ParseRule parses a checked_when expression. An empty expression is not a
// rule; it returns an error like any other non-conforming input.
func ParseRule(expr string) (Rule, error) {
	s := strings.TrimSpace(expr)
	if s == "" {
		return Rule{}, fmt.Errorf("mapping: empty checked_when expression")
	}

	key, rest := scanKey(s)
	if key == "" {
		return Rule{}, fmt.Errorf("mapping: checked_when %q: expected key", expr)
	}
	rest = strings.TrimLeft(rest, " \t")
	if !strings.HasPrefix(rest, "==") {
		return Rule{}, fmt.Errorf("mapping: checked_when %q: expected ==", expr)
	}
	rest = strings.TrimLeft(rest[2:], " \t")

	lit, rest, err := scanLiteral(rest)
	if err != nil {
		return Rule{}, fmt.Errorf("mapping: checked_when %q: %w", expr, err)
	}
	if strings.TrimSpace(rest) != "" {
		return Rule{}, fmt.Errorf("mapping: checked_when %q: trailing input", expr)
	}
	return Rule{Key: strings.ToLower(key), Literal: lit}, nil
}

// Eval evaluates the rule against a canonical value map. Values are compared
// trimmed, literally and case-sensitively.
func (r Rule) Eval(values map[string]string) bool {
	return strings.TrimSpace(values[r.Key]) == r.Literal
}

func scanKey(s string) (key, rest string) {
	i := 0
	for i < len(s) {
		c := s[i]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' {
			i++
			continue
		}
		break
	}
	return s[:i], s[i:]
}

func scanLiteral(s string) (lit, rest string, err error) {
	if s == "" {
		return "", "", fmt.Errorf("expected quoted literal")
	}
	quote := s[0]
	if quote != '\'' && quote != '"' {
		return "", "", fmt.Errorf("expected quoted literal")
	}
	end := strings.IndexByte(s[1:], quote)
	if end < 0 {
		return "", "", fmt.Errorf("unterminated literal")
	}
	lit = strings.TrimSpace(s[1 : 1+end])
	if lit == "" {
		return "", "", fmt.Errorf("empty literal")
	}
	return lit, s[2+end:], nil
}
