package export

import (
	"sort"
	"strconv"
	"strings"

	"github.com/helixir/labmanager-service/internal/domain"
)

// documentView is the format-independent model of a document export.
type documentView struct {
	Title    string
	Language string
	Groups   []groupView
}

type groupView struct {
	Heading string
	Entries []entryView
}

type entryView struct {
	Authors  string
	Title    string
	Venue    string
	Details  string
	DOI      string
	URL      string
	Abstract string
}

// buildDocument lays out the publications for rendering. Without grouping
// the request order is kept; with grouping years are sorted newest first
// and the request order is kept within a year.
func buildDocument(pubs []*domain.Publication, cfg Config) documentView {
	cfg = cfg.withDefaults()
	doc := documentView{Title: cfg.Title, Language: cfg.Language}

	if !cfg.GroupByYear {
		g := groupView{}
		for _, pub := range pubs {
			if pub != nil {
				g.Entries = append(g.Entries, entryOf(pub, cfg))
			}
		}
		if len(g.Entries) > 0 {
			doc.Groups = append(doc.Groups, g)
		}
		return doc
	}

	byYear := make(map[int][]entryView)
	var years []int
	for _, pub := range pubs {
		if pub == nil {
			continue
		}
		if _, seen := byYear[pub.Year]; !seen {
			years = append(years, pub.Year)
		}
		byYear[pub.Year] = append(byYear[pub.Year], entryOf(pub, cfg))
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))

	for _, y := range years {
		heading := strconv.Itoa(y)
		if y == 0 {
			heading = "Undated"
		}
		doc.Groups = append(doc.Groups, groupView{Heading: heading, Entries: byYear[y]})
	}
	return doc
}

func entryOf(pub *domain.Publication, cfg Config) entryView {
	e := entryView{
		Authors: displayAuthors(authorsOf(pub)),
		Title:   pub.Title,
		Venue:   pub.Venue(),
		Details: details(pub),
		DOI:     pub.DOI,
		URL:     pub.URL,
	}
	if cfg.IncludeAbstracts {
		e.Abstract = pub.Abstract
	}
	return e
}

// displayAuthors renders "Ada Lovelace, Grace Hopper and Alan Turing".
func displayAuthors(authors []*domain.Person) string {
	parts := make([]string, 0, len(authors))
	for _, a := range authors {
		parts = append(parts, a.FullName())
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
	}
}

// details renders volume, number, pages, publisher and year in citation order.
func details(pub *domain.Publication) string {
	var parts []string

	if pub.Volume != "" {
		v := pub.Volume
		if pub.Number != "" {
			v += "(" + pub.Number + ")"
		}
		parts = append(parts, v)
	} else if pub.Number != "" {
		parts = append(parts, "no. "+pub.Number)
	}
	if pub.Pages != "" {
		parts = append(parts, "pp. "+pub.Pages)
	}
	if pub.Publisher != "" {
		parts = append(parts, pub.Publisher)
	}
	if pub.Year > 0 {
		parts = append(parts, strconv.Itoa(pub.Year))
	}
	return strings.Join(parts, ", ")
}
