package coursemd

import (
	"regexp"
	"strings"
)

// The structural token shapes of the dialect. Everything the scanner does not
// recognize is body text; the parser decides what body text means in context.
type tokenType int

const (
	tokModule tokenType = iota
	tokItem
	tokMeta
	tokDelim
	tokAnnotation
	tokComment
	tokText
)

type token struct {
	typ  tokenType
	line int
	// text is the line verbatim (right-trimmed), kept so the parser can fall
	// back to treating a structured-looking line as plain body content.
	text  string
	tag   string
	title string
	key   string
	value string
}

var (
	moduleRe     = regexp.MustCompile(`^# (.+)$`)
	itemRe       = regexp.MustCompile(`^## \[(\w+)\] (.+)$`)
	metaRe       = regexp.MustCompile(`^(\w+):\s*(.+)$`)
	annotationRe = regexp.MustCompile(`^<!-- canvas_(\w+): (\S+) -->$`)
	delimRe      = regexp.MustCompile(`^-{3,}$`)
)

// scanner yields tokens one line at a time.
type scanner struct {
	lines []string
	pos   int
	// offset shifts reported line numbers when frontmatter was stripped
	offset int
}

func newScanner(text string, lineOffset int) *scanner {
	return &scanner{lines: strings.Split(text, "\n"), offset: lineOffset}
}

func (s *scanner) next() (token, bool) {
	if s.pos >= len(s.lines) {
		return token{}, false
	}
	raw := strings.TrimRight(s.lines[s.pos], " \t\r")
	lineNo := s.pos + 1 + s.offset
	s.pos++

	if m := moduleRe.FindStringSubmatch(raw); m != nil {
		return token{typ: tokModule, line: lineNo, text: raw, title: m[1]}, true
	}
	if m := itemRe.FindStringSubmatch(raw); m != nil {
		return token{typ: tokItem, line: lineNo, text: raw, tag: strings.ToLower(m[1]), title: m[2]}, true
	}
	if m := annotationRe.FindStringSubmatch(raw); m != nil {
		return token{typ: tokAnnotation, line: lineNo, text: raw, key: m[1], value: m[2]}, true
	}
	if strings.HasPrefix(raw, "<!--") {
		return token{typ: tokComment, line: lineNo, text: raw}, true
	}
	if delimRe.MatchString(raw) {
		return token{typ: tokDelim, line: lineNo, text: raw}, true
	}
	if m := metaRe.FindStringSubmatch(raw); m != nil {
		return token{typ: tokMeta, line: lineNo, text: raw, key: strings.ToLower(m[1]), value: strings.TrimSpace(m[2])}, true
	}
	return token{typ: tokText, line: lineNo, text: raw}, true
}
