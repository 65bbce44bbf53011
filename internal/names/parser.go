package names

import (
	"fmt"
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/helixir/labmanager-service/internal/domain"
)

// ParsedName is one author found in a BibTeX author list.
type ParsedName struct {
	First    string
	Von      string
	Last     string
	Position int
}

// FirstNameWithVon returns the first name with the von particle folded in,
// separated by a single space. Persons store the particle this way.
func (n ParsedName) FirstNameWithVon() string {
	if n.Von == "" {
		return n.First
	}
	if n.First == "" {
		return n.Von
	}
	return n.First + " " + n.Von
}

// ParseError reports author text that cannot be split into names unambiguously.
type ParseError struct {
	// Position is the index of the offending author, or -1 for the whole text.
	Position int
	Author   string
	Reason   string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Position < 0 {
		return fmt.Sprintf("parse author list: %s", e.Reason)
	}
	return fmt.Sprintf("parse author %d %q: %s", e.Position, e.Author, e.Reason)
}

// Unwrap returns domain.ErrParseAmbiguity for use with errors.Is.
func (e *ParseError) Unwrap() error {
	return domain.ErrParseAmbiguity
}

// Names returns a lazy sequence over the authors of a BibTeX author list,
// left to right with positions starting at 0. Authors are separated by the
// word "and" outside braces; a list without "and" may use ";" instead.
//
// On malformed text the sequence yields a *ParseError and stops.
func Names(text string) iter.Seq2[ParsedName, error] {
	return func(yield func(ParsedName, error) bool) {
		if strings.TrimSpace(text) == "" {
			return
		}

		authors, err := splitAuthors(text)
		if err != nil {
			yield(ParsedName{}, err)
			return
		}

		for i, author := range authors {
			name, err := parseAuthor(author, i)
			if err != nil {
				yield(ParsedName{}, err)
				return
			}
			if !yield(name, nil) {
				return
			}
		}
	}
}

// ParseNames collects Names(text) into a slice.
func ParseNames(text string) ([]ParsedName, error) {
	var out []ParsedName
	for name, err := range Names(text) {
		if err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, nil
}

// splitAuthors splits an author list into per-author strings.
func splitAuthors(text string) ([]string, error) {
	words, err := splitWords(text)
	if err != nil {
		return nil, err
	}

	var (
		authors []string
		current []string
		sawAnd  bool
	)
	for _, w := range words {
		if strings.EqualFold(w, "and") {
			sawAnd = true
			authors = append(authors, strings.Join(current, " "))
			current = nil
			continue
		}
		current = append(current, w)
	}
	authors = append(authors, strings.Join(current, " "))

	if !sawAnd && strings.Contains(text, ";") {
		authors = splitTopLevel(text, ';')
	}
	return authors, nil
}

// splitWords splits text on whitespace that is not enclosed in braces.
func splitWords(text string) ([]string, error) {
	var (
		words []string
		sb    strings.Builder
		depth int
	)
	for _, r := range text {
		switch {
		case r == '{':
			depth++
		case r == '}':
			depth--
			if depth < 0 {
				return nil, &ParseError{Position: -1, Reason: "unbalanced braces"}
			}
		case unicode.IsSpace(r) && depth == 0:
			if sb.Len() > 0 {
				words = append(words, sb.String())
				sb.Reset()
			}
			continue
		}
		sb.WriteRune(r)
	}
	if depth != 0 {
		return nil, &ParseError{Position: -1, Reason: "unbalanced braces"}
	}
	if sb.Len() > 0 {
		words = append(words, sb.String())
	}
	return words, nil
}

// splitTopLevel splits s on sep outside braces. Braces must be balanced.
func splitTopLevel(s string, sep rune) []string {
	var (
		parts []string
		sb    strings.Builder
		depth int
	)
	for _, r := range s {
		switch {
		case r == '{':
			depth++
		case r == '}':
			depth--
		case r == sep && depth == 0:
			parts = append(parts, sb.String())
			sb.Reset()
			continue
		}
		sb.WriteRune(r)
	}
	return append(parts, sb.String())
}

// parseAuthor splits one author into first, von and last parts following the
// three BibTeX forms "First von Last", "von Last, First" and
// "von Last, Jr, First".
func parseAuthor(author string, pos int) (ParsedName, error) {
	author = strings.TrimSpace(author)
	if author == "" {
		return ParsedName{}, &ParseError{Position: pos, Reason: "empty author"}
	}

	parts := splitTopLevel(author, ',')
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	var first, von, last []string
	switch len(parts) {
	case 1:
		first, von, last = splitFirstVonLast(fields(parts[0]))
	case 2:
		von, last = splitVonLast(fields(parts[0]))
		first = fields(parts[1])
	case 3:
		von, last = splitVonLast(fields(parts[0]))
		if jr := fields(parts[1]); len(jr) > 0 {
			last = append(last, jr...)
		}
		first = fields(parts[2])
	default:
		return ParsedName{}, &ParseError{Position: pos, Author: author, Reason: "too many commas"}
	}

	lastName := joinWords(last)
	if lastName == "" {
		return ParsedName{}, &ParseError{Position: pos, Author: author, Reason: "missing last name"}
	}

	return ParsedName{
		First:    joinWords(first),
		Von:      joinWords(von),
		Last:     lastName,
		Position: pos,
	}, nil
}

// splitFirstVonLast handles the "First von Last" form. The von part is the
// run from the first to the last lowercase word, excluding the final word.
func splitFirstVonLast(words []string) (first, von, last []string) {
	if len(words) == 0 {
		return nil, nil, nil
	}
	n := len(words)
	start, end := -1, -1
	for i := 0; i < n-1; i++ {
		if isLowerWord(words[i]) {
			if start < 0 {
				start = i
			}
			end = i
		}
	}
	if start < 0 {
		return words[:n-1], nil, words[n-1:]
	}
	return words[:start], words[start : end+1], words[end+1:]
}

// splitVonLast handles the "von Last" part before the first comma. Leading
// lowercase words are the von part; at least one word stays in the last name.
func splitVonLast(words []string) (von, last []string) {
	n := len(words)
	end := -1
	for i := 0; i < n-1; i++ {
		if isLowerWord(words[i]) {
			end = i
		}
	}
	if end < 0 {
		return nil, words
	}
	return words[:end+1], words[end+1:]
}

// isLowerWord reports whether a word starts with a lowercase letter at brace
// depth zero. Fully braced words are never von particles.
func isLowerWord(w string) bool {
	if strings.HasPrefix(w, "{") {
		return false
	}
	r, _ := utf8.DecodeRuneInString(w)
	return unicode.IsLower(r)
}

func fields(s string) []string {
	words, _ := splitWords(s)
	return words
}

// joinWords joins words with single spaces and decodes LaTeX markup.
func joinWords(words []string) string {
	if len(words) == 0 {
		return ""
	}
	return strings.TrimSpace(DecodeLaTeX(strings.Join(words, " ")))
}
