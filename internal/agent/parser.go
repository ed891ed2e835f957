package agent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Strategy locates the structured payload inside free-text model output.
// Extract returns ok=false when the strategy finds nothing to offer.
type Strategy interface {
	Name() string
	Extract(text string) (span string, ok bool)
}

// Parser tries its strategies in order. The first strategy that yields a
// span wins; that span is decoded and a decode failure is final.
type Parser struct {
	Strategies []Strategy
}

// DefaultParser returns the standard chain: fenced json block, first
// balanced span, whole text.
func DefaultParser() *Parser {
	return &Parser{Strategies: []Strategy{FencedBlock{}, BalancedSpan{}, WholeText{}}}
}

// Decode extracts the payload from text and unmarshals it into v.
func (p *Parser) Decode(text string, v any) error {
	for _, s := range p.Strategies {
		span, ok := s.Extract(text)
		if !ok {
			continue
		}
		if err := json.Unmarshal([]byte(span), v); err != nil {
			return &ParseError{Strategy: s.Name(), Err: err, Snippet: snippet(span)}
		}
		return nil
	}
	return &ParseError{Err: fmt.Errorf("no strategy matched"), Snippet: snippet(text)}
}

// Parse decodes the payload generically. The result is a map[string]any
// for objects and []any for arrays.
func (p *Parser) Parse(text string) (any, error) {
	var v any
	if err := p.Decode(text, &v); err != nil {
		return nil, err
	}
	return v, nil
}

var fencedJSON = regexp.MustCompile("(?is)```[ \t]*json[ \t]*\r?\n(.*?)```")

// FencedBlock takes the body of the first ```json fenced block.
type FencedBlock struct{}

func (FencedBlock) Name() string { return "fenced_block" }

func (FencedBlock) Extract(text string) (string, bool) {
	m := fencedJSON.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// BalancedSpan takes the first balanced {...} or [...] span. Brackets
// inside JSON strings are ignored.
type BalancedSpan struct{}

func (BalancedSpan) Name() string { return "balanced_span" }

func (BalancedSpan) Extract(text string) (string, bool) {
	for start := 0; start < len(text); start++ {
		if text[start] != '{' && text[start] != '[' {
			continue
		}
		if end := matchSpan(text, start); end > 0 {
			return text[start:end], true
		}
	}
	return "", false
}

// matchSpan returns the index just past the bracket closing text[start],
// or -1 when the span is unbalanced or mismatched.
func matchSpan(text string, start int) int {
	stack := make([]byte, 0, 8)
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i + 1
			}
		}
	}
	return -1
}

// WholeText offers the entire trimmed text. It always matches.
type WholeText struct{}

func (WholeText) Name() string { return "whole_text" }

func (WholeText) Extract(text string) (string, bool) {
	return strings.TrimSpace(text), true
}

var trailingComma = regexp.MustCompile(`,\s*([}\]])`)

// Lenient wraps a strategy and repairs two common model artifacts in the
// span it returns: // line comments outside strings and trailing commas.
type Lenient struct {
	Inner Strategy
}

func (l Lenient) Name() string { return "lenient_" + l.Inner.Name() }

func (l Lenient) Extract(text string) (string, bool) {
	span, ok := l.Inner.Extract(text)
	if !ok {
		return "", false
	}
	return cleanJSON(span), true
}

func cleanJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return trailingComma.ReplaceAllString(strings.Join(lines, "\n"), "$1")
}

// stripLineComment drops a trailing // comment that is not inside a
// string value.
func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}
	inString, escaped := false, false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if !inString && c == '/' && i+1 < len(line) && line[i+1] == '/' {
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}

const snippetLen = 200

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= snippetLen {
		return s
	}
	return s[:snippetLen] + "..."
}
