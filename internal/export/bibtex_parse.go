package export

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/helixir/labmanager-service/internal/domain"
	"github.com/helixir/labmanager-service/internal/names"
)

// SyntaxError reports malformed BibTeX input.
type SyntaxError struct {
	Line    int
	Message string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("bibtex syntax error on line %d: %s", e.Line, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *SyntaxError) Unwrap() error {
	return domain.ErrInvalidInput
}

// Entry is one raw BibTeX entry. Field names are lowercase and values keep
// their inner braces.
type Entry struct {
	Type   string
	Key    string
	Fields map[string]string
	Line   int
}

// ParsePublications reads every entry of a BibTeX database and converts it
// into a publication whose TemporaryAuthors hold the pending author names.
// Text outside entries is ignored, as are @comment and @preamble blocks.
func (b *BibTeX) ParsePublications(text string) ([]*domain.Publication, error) {
	entries, err := ParseEntries(text)
	if err != nil {
		return nil, err
	}

	pubs := make([]*domain.Publication, 0, len(entries))
	for _, e := range entries {
		pub, err := e.Publication()
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, pub)
	}
	return pubs, nil
}

// Publication converts the entry into a publication.
func (e Entry) Publication() (*domain.Publication, error) {
	title := plainValue(e.Fields["title"])
	if title == "" {
		return nil, &SyntaxError{Line: e.Line, Message: fmt.Sprintf("entry %q has no title", e.Key)}
	}

	pubType := domain.ParsePublicationType(e.Type)
	pub := &domain.Publication{
		Type:      pubType,
		Title:     title,
		Year:      parseYear(e.Fields["year"]),
		Journal:   plainValue(e.Fields["journal"]),
		BookTitle: plainValue(e.Fields["booktitle"]),
		Publisher: plainValue(e.Fields[publisherField(pubType)]),
		Volume:    plainValue(e.Fields["volume"]),
		Number:    plainValue(e.Fields["number"]),
		Pages:     strings.ReplaceAll(plainValue(e.Fields["pages"]), "--", "-"),
		DOI:       rawValue(e.Fields["doi"]),
		URL:       rawValue(e.Fields["url"]),
		Abstract:  plainValue(e.Fields["abstract"]),
		Keywords:  plainValue(e.Fields["keywords"]),
	}
	if pub.Publisher == "" {
		pub.Publisher = plainValue(e.Fields["publisher"])
	}

	if raw := e.Fields["author"]; strings.TrimSpace(raw) != "" {
		parsed, err := names.ParseNames(raw)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", e.Key, err)
		}
		pub.TemporaryAuthors = make([]domain.AuthorRef, 0, len(parsed))
		for _, n := range parsed {
			pub.TemporaryAuthors = append(pub.TemporaryAuthors, domain.Pending(n.FirstNameWithVon(), n.Last))
		}
	}

	return pub, nil
}

// plainValue decodes LaTeX markup and collapses whitespace.
func plainValue(raw string) string {
	return strings.Join(strings.Fields(names.DecodeLaTeX(raw)), " ")
}

// rawValue strips grouping braces only.
func rawValue(raw string) string {
	return strings.TrimSpace(strings.NewReplacer("{", "", "}", "").Replace(raw))
}

func parseYear(raw string) int {
	digits := strings.TrimFunc(plainValue(raw), func(r rune) bool { return !unicode.IsDigit(r) })
	if len(digits) > 4 {
		digits = digits[:4]
	}
	year, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return year
}

// ParseEntries splits a BibTeX database into raw entries. @string macros are
// expanded, and the standard month abbreviations are predefined.
func ParseEntries(text string) ([]Entry, error) {
	p := &bibParser{src: text, line: 1, macros: map[string]string{
		"jan": "January", "feb": "February", "mar": "March", "apr": "April",
		"may": "May", "jun": "June", "jul": "July", "aug": "August",
		"sep": "September", "oct": "October", "nov": "November", "dec": "December",
	}}

	var entries []Entry
	for p.skipToEntry() {
		entry, ok, err := p.entry()
		if err != nil {
			return nil, err
		}
		if ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

type bibParser struct {
	src    string
	pos    int
	line   int
	macros map[string]string
}

func (p *bibParser) errorf(format string, args ...interface{}) error {
	return &SyntaxError{Line: p.line, Message: fmt.Sprintf(format, args...)}
}

func (p *bibParser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *bibParser) peek() byte {
	return p.src[p.pos]
}

func (p *bibParser) advance() byte {
	c := p.src[p.pos]
	p.pos++
	if c == '\n' {
		p.line++
	}
	return c
}

// isSpace reports ASCII whitespace only; bytes of multi-byte runes never match.
func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func (p *bibParser) skipSpace() {
	for !p.eof() && isSpace(p.peek()) {
		p.advance()
	}
}

// skipToEntry moves past free text up to the next '@'.
func (p *bibParser) skipToEntry() bool {
	for !p.eof() {
		if p.advance() == '@' {
			return true
		}
	}
	return false
}

func (p *bibParser) identifier() string {
	start := p.pos
	for !p.eof() {
		c := p.peek()
		if isSpace(c) || strings.IndexByte(`{}(),="#@%`, c) >= 0 {
			break
		}
		p.advance()
	}
	return p.src[start:p.pos]
}

// entry parses what follows an '@'. ok is false for blocks that carry no
// publication.
func (p *bibParser) entry() (Entry, bool, error) {
	line := p.line
	p.skipSpace()
	entryType := strings.ToLower(p.identifier())
	if entryType == "" {
		return Entry{}, false, p.errorf("missing entry type after '@'")
	}
	p.skipSpace()
	if p.eof() {
		return Entry{}, false, p.errorf("unexpected end of input after @%s", entryType)
	}

	var closer byte
	switch p.advance() {
	case '{':
		closer = '}'
	case '(':
		closer = ')'
	default:
		return Entry{}, false, p.errorf("expected '{' or '(' after @%s", entryType)
	}

	switch entryType {
	case "comment":
		return Entry{}, false, p.skipGroup(closer)
	case "preamble":
		p.skipSpace()
		if _, err := p.value(); err != nil {
			return Entry{}, false, err
		}
		return Entry{}, false, p.expectClose(closer)
	case "string":
		return Entry{}, false, p.stringMacro(closer)
	}

	p.skipSpace()
	key := strings.TrimSpace(p.identifier())
	entry := Entry{Type: entryType, Key: key, Fields: make(map[string]string), Line: line}

	for {
		p.skipSpace()
		if p.eof() {
			return Entry{}, false, p.errorf("unterminated entry %q", key)
		}
		c := p.peek()
		if c == closer {
			p.advance()
			return entry, true, nil
		}
		if c != ',' {
			return Entry{}, false, p.errorf("expected ',' in entry %q", key)
		}
		p.advance()
		p.skipSpace()
		if !p.eof() && p.peek() == closer {
			continue
		}

		name, val, err := p.field()
		if err != nil {
			return Entry{}, false, err
		}
		entry.Fields[name] = val
	}
}

func (p *bibParser) field() (string, string, error) {
	name := strings.ToLower(p.identifier())
	if name == "" {
		return "", "", p.errorf("missing field name")
	}
	p.skipSpace()
	if p.eof() || p.peek() != '=' {
		return "", "", p.errorf("expected '=' after field %q", name)
	}
	p.advance()
	p.skipSpace()
	val, err := p.value()
	if err != nil {
		return "", "", err
	}
	return name, val, nil
}

func (p *bibParser) stringMacro(closer byte) error {
	p.skipSpace()
	name, val, err := p.field()
	if err != nil {
		return err
	}
	p.macros[name] = val
	return p.expectClose(closer)
}

func (p *bibParser) expectClose(closer byte) error {
	p.skipSpace()
	if p.eof() || p.peek() != closer {
		return p.errorf("expected %q", closer)
	}
	p.advance()
	return nil
}

// value parses a field value: braced or quoted strings, numbers and macro
// names, concatenated with '#'.
func (p *bibParser) value() (string, error) {
	var b strings.Builder
	for {
		if p.eof() {
			return "", p.errorf("unexpected end of input in field value")
		}
		switch c := p.peek(); {
		case c == '{':
			p.advance()
			s, err := p.balanced('}')
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		case c == '"':
			p.advance()
			s, err := p.balanced('"')
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		default:
			word := p.identifier()
			if word == "" {
				return "", p.errorf("unexpected character %q in field value", c)
			}
			if _, err := strconv.Atoi(word); err == nil {
				b.WriteString(word)
			} else if m, ok := p.macros[strings.ToLower(word)]; ok {
				b.WriteString(m)
			} else {
				return "", p.errorf("undefined macro %q", word)
			}
		}

		p.skipSpace()
		if p.eof() || p.peek() != '#' {
			return b.String(), nil
		}
		p.advance()
		p.skipSpace()
	}
}

// balanced reads up to the unnested terminator and returns the text before
// it. Inner braces are kept.
func (p *bibParser) balanced(terminator byte) (string, error) {
	start := p.pos
	depth := 0
	for !p.eof() {
		c := p.peek()
		switch {
		case c == '\\' && p.pos+1 < len(p.src):
			p.advance()
		case c == '{':
			depth++
		case c == '}' && depth > 0:
			depth--
		case c == terminator && depth == 0:
			s := p.src[start:p.pos]
			p.advance()
			return s, nil
		case c == '}':
			return "", p.errorf("unbalanced '}' in field value")
		}
		p.advance()
	}
	return "", p.errorf("unterminated field value")
}

func (p *bibParser) skipGroup(closer byte) error {
	opener := byte('{')
	if closer == ')' {
		opener = '('
	}
	depth := 0
	for !p.eof() {
		switch p.advance() {
		case opener:
			depth++
		case closer:
			if depth == 0 {
				return nil
			}
			depth--
		}
	}
	return p.errorf("unterminated @comment")
}
