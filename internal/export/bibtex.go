package export

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/helixir/labmanager-service/internal/domain"
)

// BibTeX converts publications to and from BibTeX.
type BibTeX struct{}

// NewBibTeX creates a BibTeX codec.
func NewBibTeX() *BibTeX {
	return &BibTeX{}
}

// ExportPublications renders the publications as one BibTeX database, in
// the given order. Citation keys are unique within the output.
func (b *BibTeX) ExportPublications(pubs []*domain.Publication) ([]byte, error) {
	var buf bytes.Buffer
	used := make(map[string]bool, len(pubs))

	for i, pub := range pubs {
		if pub == nil {
			continue
		}
		key := uniqueKey(CitationKey(pub), used)
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(ToBibTeX(pub, key))
	}

	return buf.Bytes(), nil
}

// ToBibTeX converts a publication to a BibTeX entry with the given key.
func ToBibTeX(pub *domain.Publication, key string) string {
	entryType := pub.Type
	if entryType == "" {
		entryType = domain.PublicationTypeMisc
	}

	var b strings.Builder
	fmt.Fprintf(&b, "@%s{%s,\n", entryType, key)

	if authors := authorsOf(pub); len(authors) > 0 {
		writeField(&b, "author", formatAuthors(authors))
	}
	writeField(&b, "title", escapeLatex(pub.Title))

	if pub.Journal != "" {
		writeField(&b, "journal", escapeLatex(pub.Journal))
	}
	if pub.BookTitle != "" {
		writeField(&b, "booktitle", escapeLatex(pub.BookTitle))
	}
	if pub.Publisher != "" {
		writeField(&b, publisherField(entryType), escapeLatex(pub.Publisher))
	}
	if pub.Year > 0 {
		writeField(&b, "year", strconv.Itoa(pub.Year))
	}
	if pub.Volume != "" {
		writeField(&b, "volume", escapeLatex(pub.Volume))
	}
	if pub.Number != "" {
		writeField(&b, "number", escapeLatex(pub.Number))
	}
	if pub.Pages != "" {
		writeField(&b, "pages", strings.ReplaceAll(pub.Pages, "-", "--"))
	}
	if pub.DOI != "" {
		writeField(&b, "doi", pub.DOI)
	}
	if pub.URL != "" {
		writeField(&b, "url", pub.URL)
	}
	if pub.Keywords != "" {
		writeField(&b, "keywords", escapeLatex(pub.Keywords))
	}
	if pub.Abstract != "" {
		writeField(&b, "abstract", escapeLatex(pub.Abstract))
	}

	b.WriteString("}\n")
	return b.String()
}

func writeField(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "  %s = {%s},\n", name, value)
}

// publisherField names the field that carries the publisher of an entry type.
func publisherField(t domain.PublicationType) string {
	switch t {
	case domain.PublicationTypePhDThesis, domain.PublicationTypeMastersThesis:
		return "school"
	case domain.PublicationTypeTechReport:
		return "institution"
	default:
		return "publisher"
	}
}

// CitationKey builds a key from the first author's last name, the year and
// the first significant title word, e.g. "knuth1984literate".
func CitationKey(pub *domain.Publication) string {
	var b strings.Builder

	if authors := authorsOf(pub); len(authors) > 0 {
		b.WriteString(keyPart(authors[0].LastName))
	}
	if b.Len() == 0 {
		b.WriteString("anonymous")
	}
	if pub.Year > 0 {
		b.WriteString(strconv.Itoa(pub.Year))
	}
	for _, w := range strings.Fields(pub.Title) {
		part := keyPart(w)
		if len(part) > 3 && !stopWords[part] {
			b.WriteString(part)
			break
		}
	}
	return b.String()
}

var stopWords = map[string]bool{
	"from": true, "into": true, "over": true, "that": true, "this": true,
	"with": true, "towards": true, "toward": true, "their": true, "about": true,
}

var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// keyPart lowercases s and keeps its ASCII letters and digits.
func keyPart(s string) string {
	folded, _, err := transform.String(asciiFold, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// uniqueKey appends a, b, c... to key until it is not in used.
func uniqueKey(key string, used map[string]bool) string {
	candidate := key
	for i := 0; used[candidate]; i++ {
		candidate = key + suffix(i)
	}
	used[candidate] = true
	return candidate
}

func suffix(i int) string {
	s := ""
	for {
		s = string(rune('a'+i%26)) + s
		i = i/26 - 1
		if i < 0 {
			return s
		}
	}
}

// formatAuthors formats authors in BibTeX style: "Last, First and Last, First"
func formatAuthors(authors []*domain.Person) string {
	formatted := make([]string, 0, len(authors))
	for _, a := range authors {
		last := escapeLatex(a.LastName)
		if strings.Contains(a.LastName, " ") {
			last = "{" + last + "}"
		}
		if a.FirstName != "" {
			formatted = append(formatted, fmt.Sprintf("%s, %s", last, escapeLatex(a.FirstName)))
		} else {
			formatted = append(formatted, last)
		}
	}
	return strings.Join(formatted, " and ")
}

// authorsOf returns the ranked authors of a stored publication, or the
// pending author names of a freshly parsed one.
func authorsOf(pub *domain.Publication) []*domain.Person {
	if len(pub.Authors) > 0 {
		return pub.Authors
	}
	persons := make([]*domain.Person, 0, len(pub.TemporaryAuthors))
	for _, ref := range pub.TemporaryAuthors {
		if ref.LastName == "" {
			continue
		}
		persons = append(persons, domain.NewTransientPerson(ref.FirstName, ref.LastName))
	}
	return persons
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	return latexEscaper.Replace(s)
}

var latexEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	"&", `\&`,
	"%", `\%`,
	"$", `\$`,
	"#", `\#`,
	"_", `\_`,
	"{", `\{`,
	"}", `\}`,
	"~", `\textasciitilde{}`,
	"^", `\textasciicircum{}`,
)
