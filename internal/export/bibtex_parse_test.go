package export

import (
	"errors"
	"strings"
	"testing"

	"github.com/helixir/labmanager-service/internal/domain"
	"github.com/helixir/labmanager-service/internal/names"
)

const sampleDatabase = `
This line is a free comment and ignored.

@string{tcj = "The Computer Journal"}

@comment{ old entry @article{x, title={y}} }

@Article{knuth1984,
  author  = {Donald E. Knuth},
  title   = {Literate {P}rogramming},
  journal = tcj,
  year    = 1984,
  month   = may,
  volume  = {27},
  number  = "2",
  pages   = {97--111},
  doi     = {10.1093/comjnl/27.2.97},
}

@inproceedings(vangogh2020,
  author    = "van Gogh, Vincent and Erd{\H o}s, Paul and Jos{\'e} Mart{\'\i}nez",
  title     = {Painting {with} Graphs},
  booktitle = {Proc. of the Art } # {Conference},
  year      = {2020}
)

@phdthesis{doe2019,
  author = {Doe, Jane},
  title  = {A Thesis},
  school = {Univ. of Nowhere},
  year   = {2019},
}
`

func TestParsePublications(t *testing.T) {
	pubs, err := NewBibTeX().ParsePublications(sampleDatabase)
	if err != nil {
		t.Fatalf("ParsePublications() error = %v", err)
	}
	if len(pubs) != 3 {
		t.Fatalf("expected 3 publications, got %d", len(pubs))
	}

	knuth := pubs[0]
	if knuth.Type != domain.PublicationTypeArticle {
		t.Errorf("type = %q, want article", knuth.Type)
	}
	if knuth.Title != "Literate Programming" {
		t.Errorf("title = %q", knuth.Title)
	}
	if knuth.Journal != "The Computer Journal" {
		t.Errorf("journal = %q, want macro expansion", knuth.Journal)
	}
	if knuth.Year != 1984 || knuth.Volume != "27" || knuth.Number != "2" {
		t.Errorf("year/volume/number = %d/%q/%q", knuth.Year, knuth.Volume, knuth.Number)
	}
	if knuth.Pages != "97-111" {
		t.Errorf("pages = %q, want 97-111", knuth.Pages)
	}
	if knuth.DOI != "10.1093/comjnl/27.2.97" {
		t.Errorf("doi = %q", knuth.DOI)
	}
	wantKnuth := []domain.AuthorRef{domain.Pending("Donald E.", "Knuth")}
	if !equalRefs(knuth.TemporaryAuthors, wantKnuth) {
		t.Errorf("authors = %v, want %v", knuth.TemporaryAuthors, wantKnuth)
	}

	vg := pubs[1]
	if vg.Type != domain.PublicationTypeInProceedings {
		t.Errorf("type = %q, want inproceedings", vg.Type)
	}
	if vg.BookTitle != "Proc. of the Art Conference" {
		t.Errorf("booktitle = %q, want concatenation", vg.BookTitle)
	}
	if vg.Title != "Painting with Graphs" {
		t.Errorf("title = %q", vg.Title)
	}
	wantVG := []domain.AuthorRef{
		domain.Pending("Vincent van", "Gogh"),
		domain.Pending("Paul", "Erdős"),
		domain.Pending("José", "Martínez"),
	}
	if !equalRefs(vg.TemporaryAuthors, wantVG) {
		t.Errorf("authors = %v, want %v", vg.TemporaryAuthors, wantVG)
	}

	thesis := pubs[2]
	if thesis.Type != domain.PublicationTypePhDThesis || thesis.Publisher != "Univ. of Nowhere" {
		t.Errorf("thesis = %q / %q", thesis.Type, thesis.Publisher)
	}
}

func equalRefs(a, b []domain.AuthorRef) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestParsePublications_Empty(t *testing.T) {
	for _, in := range []string{"", "   \n", "no entries here"} {
		pubs, err := NewBibTeX().ParsePublications(in)
		if err != nil {
			t.Errorf("ParsePublications(%q) error = %v", in, err)
		}
		if len(pubs) != 0 {
			t.Errorf("ParsePublications(%q) = %d publications, want 0", in, len(pubs))
		}
	}
}

func TestParsePublications_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		line int
	}{
		{name: "unterminated entry", in: "@article{k,\n title = {T},\n", line: 3},
		{name: "missing equals", in: "@article{k,\n title {T}}", line: 2},
		{name: "undefined macro", in: "@article{k, title = nosuchmacro}", line: 1},
		{name: "unterminated value", in: "@article{k, title = {T", line: 1},
		{name: "missing title", in: "\n\n@misc{k, year = 2001}", line: 3},
		{name: "bad opener", in: "@article[k]", line: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBibTeX().ParsePublications(tt.in)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("error %v should wrap ErrInvalidInput", err)
			}
			var syntaxErr *SyntaxError
			if !errors.As(err, &syntaxErr) {
				t.Fatalf("error %v should be a *SyntaxError", err)
			}
			if syntaxErr.Line != tt.line {
				t.Errorf("line = %d, want %d", syntaxErr.Line, tt.line)
			}
		})
	}
}

func TestParsePublications_AmbiguousAuthors(t *testing.T) {
	in := `@article{k, title = {T}, author = {Smith, John, Jr, Extra}}`
	_, err := NewBibTeX().ParsePublications(in)
	if !errors.Is(err, domain.ErrParseAmbiguity) {
		t.Fatalf("expected ErrParseAmbiguity, got %v", err)
	}
	var parseErr *names.ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("expected *names.ParseError in chain, got %T", err)
	}
	if !strings.Contains(err.Error(), `"k"`) {
		t.Errorf("error should name the entry key: %v", err)
	}
}

func TestBibTeXRoundTrip(t *testing.T) {
	orig := samplePublication()
	orig.Title = "Data & Code: 100% {Reproducible}"
	orig.Authors = append(orig.Authors, &domain.Person{FirstName: "Vincent", LastName: "van Gogh"})

	out, err := NewBibTeX().ExportPublications([]*domain.Publication{orig})
	if err != nil {
		t.Fatalf("ExportPublications() error = %v", err)
	}
	pubs, err := NewBibTeX().ParsePublications(string(out))
	if err != nil {
		t.Fatalf("ParsePublications() error = %v\n%s", err, out)
	}
	if len(pubs) != 1 {
		t.Fatalf("expected 1 publication, got %d", len(pubs))
	}

	got := pubs[0]
	if got.Title != orig.Title {
		t.Errorf("title = %q, want %q", got.Title, orig.Title)
	}
	if got.Pages != orig.Pages || got.Journal != orig.Journal || got.Year != orig.Year {
		t.Errorf("fields differ: %+v", got)
	}
	want := []domain.AuthorRef{
		domain.Pending("Donald E.", "Knuth"),
		domain.Pending("Vincent", "van Gogh"),
	}
	if !equalRefs(got.TemporaryAuthors, want) {
		t.Errorf("authors = %v, want %v", got.TemporaryAuthors, want)
	}
}
