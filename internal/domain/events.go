package domain

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Event type constants for domain events.
const (
	EventTypePersonCreated        = "person.created"
	EventTypePersonUpdated        = "person.updated"
	EventTypePersonRemoved        = "person.removed"
	EventTypePublicationsImported = "publications.imported"
	EventTypePublicationRemoved   = "publication.removed"
)

// Aggregate types.
const (
	AggregatePerson      = "person"
	AggregatePublication = "publication"
)

// Event is a domain event published after a change has been committed.
type Event struct {
	EventID       string          `json:"event_id"`
	EventVersion  int             `json:"event_version"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewEvent creates a new event with the given parameters.
// The payload is JSON-serialized automatically.
func NewEvent(eventType, aggregateType string, aggregateID int, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		EventID:       uuid.New().String(),
		EventVersion:  1,
		AggregateID:   strconv.Itoa(aggregateID),
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payloadBytes,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// PersonPayload is the payload for person.created and person.updated events.
type PersonPayload struct {
	PersonID  int    `json:"person_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Origin    string `json:"origin,omitempty"`
}

// PersonRemovedPayload is the payload for person.removed events.
type PersonRemovedPayload struct {
	PersonID int `json:"person_id"`
	// ReRankedPublications lists the publications whose author ranks were shifted.
	ReRankedPublications []int `json:"reranked_publications,omitempty"`
}

// PublicationsImportedPayload is the payload for publications.imported events.
type PublicationsImportedPayload struct {
	PublicationIDs []int `json:"publication_ids"`
	CreatedPersons []int `json:"created_persons,omitempty"`
}

// PublicationRemovedPayload is the payload for publication.removed events.
type PublicationRemovedPayload struct {
	PublicationID int `json:"publication_id"`
}
