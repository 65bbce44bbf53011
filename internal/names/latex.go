package names

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Combining marks for the LaTeX accent commands.
var accentMarks = map[string]rune{
	`"`: '\u0308',
	`'`: '\u0301',
	"`": '\u0300',
	"^": '\u0302',
	"~": '\u0303',
	"=": '\u0304',
	".": '\u0307',
	"c": '\u0327',
	"v": '\u030C',
	"u": '\u0306',
	"H": '\u030B',
	"k": '\u0328',
	"r": '\u030A',
}

var specialLetters = map[string]string{
	"ss": "ß",
	"o":  "ø",
	"O":  "Ø",
	"ae": "æ",
	"AE": "Æ",
	"oe": "œ",
	"OE": "Œ",
	"aa": "å",
	"AA": "Å",
	"l":  "ł",
	"L":  "Ł",
	"i":  "ı",
	"j":  "ȷ",

	"textasciitilde":  "~",
	"textasciicircum": "^",
	"textbackslash":   "\\",
}

// DecodeLaTeX turns LaTeX markup found in BibTeX values into plain Unicode
// text. Accent commands become precomposed letters and escaped symbols lose
// their backslash. Grouping braces are dropped and ties become spaces.
// Unknown commands are removed while their arguments are kept.
func DecodeLaTeX(s string) string {
	if !strings.ContainsAny(s, `\{}~`) {
		return s
	}

	var b strings.Builder
	for i := 0; i < len(s); {
		c := s[i]
		switch c {
		case '{', '}':
			i++
		case '~':
			b.WriteByte(' ')
			i++
		case '\\':
			i = decodeCommand(&b, s, i+1)
		default:
			r, size := utf8.DecodeRuneInString(s[i:])
			b.WriteRune(r)
			i += size
		}
	}
	return norm.NFC.String(b.String())
}

// decodeCommand writes the expansion of the command starting at s[i] (just
// after the backslash) and returns the index following it.
func decodeCommand(b *strings.Builder, s string, i int) int {
	if i >= len(s) {
		return i
	}

	if !isASCIILetter(s[i]) {
		sym := s[i : i+1]
		if mark, ok := accentMarks[sym]; ok {
			arg, next := commandArgument(s, i+1)
			writeAccented(b, arg, mark)
			return next
		}
		// \& \% \_ \$ \# \{ \} and friends
		b.WriteByte(s[i])
		return i + 1
	}

	j := i
	for j < len(s) && isASCIILetter(s[j]) {
		j++
	}
	name := s[i:j]

	if letter, ok := specialLetters[name]; ok {
		b.WriteString(letter)
		return skipCommandSpace(s, j)
	}
	if mark, ok := accentMarks[name]; ok {
		arg, next := commandArgument(s, skipCommandSpace(s, j))
		writeAccented(b, arg, mark)
		return next
	}
	return skipCommandSpace(s, j)
}

// commandArgument reads a braced group or a single character.
func commandArgument(s string, i int) (string, int) {
	if i >= len(s) {
		return "", i
	}
	if s[i] == '\\' {
		j := i + 1
		for j < len(s) && isASCIILetter(s[j]) {
			j++
		}
		return s[i:j], j
	}
	if s[i] != '{' {
		_, size := utf8.DecodeRuneInString(s[i:])
		return s[i : i+size], i + size
	}
	end := strings.IndexByte(s[i:], '}')
	if end < 0 {
		return s[i+1:], len(s)
	}
	return s[i+1 : i+end], i + end + 1
}

func writeAccented(b *strings.Builder, arg string, mark rune) {
	arg = strings.TrimSpace(arg)
	switch arg {
	case `\i`:
		arg = "i"
	case `\j`:
		arg = "j"
	}
	if arg == "" {
		return
	}
	r, size := utf8.DecodeRuneInString(arg)
	b.WriteRune(r)
	b.WriteRune(mark)
	b.WriteString(arg[size:])
}

func skipCommandSpace(s string, i int) int {
	if i < len(s) && s[i] == ' ' {
		return i + 1
	}
	return i
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
