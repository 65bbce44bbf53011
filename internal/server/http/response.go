package httpserver

import (
	"time"

	"github.com/helixir/labmanager-service/internal/domain"
)

// Person response types for JSON serialization.

type personResponse struct {
	ID        int       `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email,omitempty"`
	Transient bool      `json:"transient,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type listPersonsResponse struct {
	Persons    []personResponse `json:"persons"`
	TotalCount int              `json:"total_count"`
}

type createPersonResponse struct {
	ID int `json:"id"`
}

type lookupPersonResponse struct {
	Found  bool            `json:"found"`
	Person *personResponse `json:"person,omitempty"`
}

type clusterResponse struct {
	Persons []personResponse `json:"persons"`
}

type duplicatesResponse struct {
	Clusters []clusterResponse `json:"clusters"`
}

// Publication response types.

type authorResponse struct {
	PersonID int    `json:"person_id"`
	FullName string `json:"full_name"`
	Rank     int    `json:"rank"`
}

type publicationResponse struct {
	ID        int              `json:"id"`
	Type      string           `json:"type"`
	Title     string           `json:"title"`
	Year      int              `json:"year,omitempty"`
	Venue     string           `json:"venue,omitempty"`
	Publisher string           `json:"publisher,omitempty"`
	Volume    string           `json:"volume,omitempty"`
	Number    string           `json:"number,omitempty"`
	Pages     string           `json:"pages,omitempty"`
	DOI       string           `json:"doi,omitempty"`
	URL       string           `json:"url,omitempty"`
	Abstract  string           `json:"abstract,omitempty"`
	Keywords  string           `json:"keywords,omitempty"`
	Authors   []authorResponse `json:"authors"`
	CreatedAt time.Time        `json:"created_at"`
}

type listPublicationsResponse struct {
	Publications []publicationResponse `json:"publications"`
	TotalCount   int64                 `json:"total_count"`
}

type importResponse struct {
	PublicationIDs []int `json:"publication_ids"`
	Imported       int   `json:"imported"`
}

type authorshipResponse struct {
	ID            int `json:"id"`
	PersonID      int `json:"person_id"`
	PublicationID int `json:"publication_id"`
	Rank          int `json:"rank"`
}

// Conversion helpers.

func domainPersonToResponse(p *domain.Person) personResponse {
	return personResponse{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		FullName:  p.FullName(),
		Email:     p.Email,
		Transient: p.IsTransient(),
		CreatedAt: p.CreatedAt,
	}
}

func domainPersonsToResponse(persons []*domain.Person) []personResponse {
	out := make([]personResponse, 0, len(persons))
	for _, p := range persons {
		if p == nil {
			continue
		}
		out = append(out, domainPersonToResponse(p))
	}
	return out
}

func domainPublicationToResponse(p *domain.Publication) publicationResponse {
	resp := publicationResponse{
		ID:        p.ID,
		Type:      string(p.Type),
		Title:     p.Title,
		Year:      p.Year,
		Venue:     p.Venue(),
		Publisher: p.Publisher,
		Volume:    p.Volume,
		Number:    p.Number,
		Pages:     p.Pages,
		DOI:       p.DOI,
		URL:       p.URL,
		Abstract:  p.Abstract,
		Keywords:  p.Keywords,
		Authors:   make([]authorResponse, 0, len(p.Authors)),
		CreatedAt: p.CreatedAt,
	}
	for i, a := range p.Authors {
		if a == nil {
			continue
		}
		resp.Authors = append(resp.Authors, authorResponse{
			PersonID: a.ID,
			FullName: a.FullName(),
			Rank:     i + 1,
		})
	}
	return resp
}

func domainAuthorshipToResponse(a *domain.Authorship) authorshipResponse {
	return authorshipResponse{
		ID:            a.ID,
		PersonID:      a.PersonID,
		PublicationID: a.PublicationID,
		Rank:          a.Rank,
	}
}
