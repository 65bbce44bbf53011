package domain

import (
	"sort"
	"strings"
	"time"
)

// PublicationType classifies a publication the way BibTeX entry types do.
type PublicationType string

// Publication types.
const (
	PublicationTypeArticle       PublicationType = "article"
	PublicationTypeInProceedings PublicationType = "inproceedings"
	PublicationTypeBook          PublicationType = "book"
	PublicationTypeInCollection  PublicationType = "incollection"
	PublicationTypePhDThesis     PublicationType = "phdthesis"
	PublicationTypeMastersThesis PublicationType = "mastersthesis"
	PublicationTypeTechReport    PublicationType = "techreport"
	PublicationTypeMisc          PublicationType = "misc"
)

var validPublicationTypes = map[PublicationType]bool{
	PublicationTypeArticle:       true,
	PublicationTypeInProceedings: true,
	PublicationTypeBook:          true,
	PublicationTypeInCollection:  true,
	PublicationTypePhDThesis:     true,
	PublicationTypeMastersThesis: true,
	PublicationTypeTechReport:    true,
	PublicationTypeMisc:          true,
}

// ParsePublicationType maps a BibTeX entry type to a PublicationType.
// Unknown types map to PublicationTypeMisc.
func ParsePublicationType(s string) PublicationType {
	t := PublicationType(strings.ToLower(strings.TrimSpace(s)))
	if t == "conference" {
		return PublicationTypeInProceedings
	}
	if validPublicationTypes[t] {
		return t
	}
	return PublicationTypeMisc
}

// Publication is a scientific publication of the laboratory.
//
// TemporaryAuthors holds the author list of a freshly parsed publication.
// Once authorships are recorded it is cleared and Authorships becomes the
// source of truth.
type Publication struct {
	ID        int             `json:"id"`
	Type      PublicationType `json:"type"`
	Title     string          `json:"title"`
	Year      int             `json:"year,omitempty"`
	Journal   string          `json:"journal,omitempty"`
	BookTitle string          `json:"book_title,omitempty"`
	Publisher string          `json:"publisher,omitempty"`
	Volume    string          `json:"volume,omitempty"`
	Number    string          `json:"number,omitempty"`
	Pages     string          `json:"pages,omitempty"`
	DOI       string          `json:"doi,omitempty"`
	URL       string          `json:"url,omitempty"`
	Abstract  string          `json:"abstract,omitempty"`
	Keywords  string          `json:"keywords,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	TemporaryAuthors []AuthorRef  `json:"-"`
	Authorships      []Authorship `json:"authorships,omitempty"`
	// Authors is filled by read paths with the persons in rank order.
	Authors []*Person `json:"authors,omitempty"`
}

// Venue returns the journal or book title, whichever is set.
func (p *Publication) Venue() string {
	if p.Journal != "" {
		return p.Journal
	}
	return p.BookTitle
}

// Authorship links a person to a publication with a 1-based author rank.
// Within a publication ranks are unique and contiguous.
type Authorship struct {
	ID            int `json:"id"`
	PersonID      int `json:"person_id"`
	PublicationID int `json:"publication_id"`
	Rank          int `json:"rank"`
}

// SortByRankDesc orders authorships from the highest rank to the lowest.
func SortByRankDesc(a []Authorship) {
	sort.SliceStable(a, func(i, j int) bool {
		if a[i].PublicationID != a[j].PublicationID {
			return a[i].PublicationID < a[j].PublicationID
		}
		return a[i].Rank > a[j].Rank
	})
}
