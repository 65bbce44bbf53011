package domain

import (
	"strconv"
	"strings"
	"time"
)

// Person is a member of the laboratory or an external co-author.
// A Person with ID 0 is transient: it only lives in memory until a caller
// persists it.
type Person struct {
	ID        int       `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTransientPerson creates an unsaved person with the given names.
func NewTransientPerson(firstName, lastName string) *Person {
	return &Person{FirstName: firstName, LastName: lastName}
}

// IsTransient reports whether the person has not been persisted yet.
func (p *Person) IsTransient() bool {
	return p.ID == 0
}

// FullName returns "First Last", or the last name alone when the first name is empty.
func (p *Person) FullName() string {
	first := strings.TrimSpace(p.FirstName)
	if first == "" {
		return strings.TrimSpace(p.LastName)
	}
	return first + " " + strings.TrimSpace(p.LastName)
}

// HasName reports whether the person carries exactly the given names.
func (p *Person) HasName(firstName, lastName string) bool {
	return p.FirstName == firstName && p.LastName == lastName
}

// AuthorRef identifies an author before authorship is recorded. It is either
// Resolved to a stored person or Pending with the names read from the source.
type AuthorRef struct {
	PersonID  int
	FirstName string
	LastName  string
}

// Resolved returns a reference to an already stored person.
func Resolved(personID int) AuthorRef {
	return AuthorRef{PersonID: personID}
}

// Pending returns a reference to a person that does not exist in the store yet.
func Pending(firstName, lastName string) AuthorRef {
	return AuthorRef{FirstName: firstName, LastName: lastName}
}

// RefOf returns the reference matching the state of p.
func RefOf(p *Person) AuthorRef {
	if p.IsTransient() {
		return Pending(p.FirstName, p.LastName)
	}
	return AuthorRef{PersonID: p.ID, FirstName: p.FirstName, LastName: p.LastName}
}

// IsResolved reports whether the reference points to a stored person.
func (r AuthorRef) IsResolved() bool {
	return r.PersonID > 0
}

// String implements fmt.Stringer.
func (r AuthorRef) String() string {
	if r.IsResolved() {
		return "person:" + strconv.Itoa(r.PersonID)
	}
	return "pending:" + strings.TrimSpace(r.FirstName+" "+r.LastName)
}

// SimilarityCluster is a group of persons judged to be the same individual
// by name. Clusters are computed on demand and never stored.
type SimilarityCluster struct {
	Persons []*Person `json:"persons"`
}

// Size returns the number of persons in the cluster.
func (c SimilarityCluster) Size() int {
	return len(c.Persons)
}

// IDs returns the person identifiers in cluster order.
func (c SimilarityCluster) IDs() []int {
	ids := make([]int, len(c.Persons))
	for i, p := range c.Persons {
		ids[i] = p.ID
	}
	return ids
}
