package export

import (
	"errors"
	"strings"
	"testing"

	"github.com/helixir/labmanager-service/internal/domain"
)

// FuzzParsePublications checks that arbitrary uploads never panic the
// importer and fail only with input errors.
func FuzzParsePublications(f *testing.F) {
	seeds := []string{
		"",
		"@article{k, title={T}, author={Lovelace, Ada}, year=1843}",
		"@book{k, title = \"Quoted\" # \" concat\", year = {2001}}",
		"@string{acm = {ACM}} @inproceedings{k, booktitle = acm, title={X}}",
		"@comment{ignored} @preamble{\"\\newcommand\"}",
		"@article(k, title={Parens})",
		"@article{k, title={unterminated",
		"@article{k, title={T}} trailing junk @",
		"@{}",
		"@@@@",
		"{{{{}}}}",
		"@misc{k, author={a, b, c, d}, title={Ambiguous}}",
		"@misc{k, title={<script>alert('xss')</script>}}",
		"@misc{k, title={T}, year={" + strings.Repeat("9", 40) + "}}",
		string([]byte{'@', 'm', 'i', 's', 'c', '{', 0xfe, 0xff, '}'}),
		strings.Repeat("@misc{k, title={T}}\n", 200),
	}
	for _, s := range seeds {
		f.Add(s)
	}

	codec := NewBibTeX()
	f.Fuzz(func(t *testing.T, text string) {
		pubs, err := codec.ParsePublications(text)
		if err != nil {
			if !errors.Is(err, domain.ErrInvalidInput) && !errors.Is(err, domain.ErrParseAmbiguity) {
				t.Fatalf("ParsePublications returned unexpected error type: %v", err)
			}
			return
		}
		for _, p := range pubs {
			if p == nil {
				t.Fatal("ParsePublications returned a nil publication")
			}
		}
	})
}
