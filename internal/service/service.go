// Package service implements the person, publication and authorship
// operations of the lab manager on top of the repositories.
//
// Name resolution always scans persons in ascending identifier order, so
// when several stored persons match a name the one with the lowest
// identifier wins.
//
// Multi-step writes (imports, removals) run inside a repository.UnitOfWork.
// Domain events are published once the transaction has committed; a
// publishing failure is logged and never undoes the committed change.
package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/helixir/labmanager-service/internal/domain"
	"github.com/helixir/labmanager-service/internal/events"
	"github.com/helixir/labmanager-service/internal/names"
)

// matcher finds stored persons by name.
type matcher struct {
	comparator *names.Comparator
}

// similar returns the first person whose name is similar to the given one.
func (m matcher) similar(persons []*domain.Person, firstName, lastName string) *domain.Person {
	for _, p := range persons {
		if m.comparator.IsSimilar(firstName, lastName, p.FirstName, p.LastName) {
			return p
		}
	}
	return nil
}

// resolve returns the first person carrying exactly the given names, or
// failing that the first similar one.
func (m matcher) resolve(persons []*domain.Person, firstName, lastName string) *domain.Person {
	for _, p := range persons {
		if p.HasName(firstName, lastName) {
			return p
		}
	}
	return m.similar(persons, firstName, lastName)
}

// clusters partitions persons into groups of mutually similar names. Each
// person is consumed by at most one cluster and singletons are dropped.
func (m matcher) clusters(persons []*domain.Person) []domain.SimilarityCluster {
	consumed := make([]bool, len(persons))
	result := []domain.SimilarityCluster{}

	for i, seed := range persons {
		if consumed[i] {
			continue
		}
		consumed[i] = true
		members := []*domain.Person{seed}

		for j := i + 1; j < len(persons); j++ {
			if consumed[j] {
				continue
			}
			other := persons[j]
			if m.comparator.IsSimilar(seed.FirstName, seed.LastName, other.FirstName, other.LastName) {
				members = append(members, other)
				consumed[j] = true
			}
		}

		if len(members) > 1 {
			result = append(result, domain.SimilarityCluster{Persons: members})
		}
	}
	return result
}

// publish sends events after a commit. Failures are logged only.
func publish(ctx context.Context, publisher events.Publisher, logger zerolog.Logger, evts ...*domain.Event) {
	if len(evts) == 0 {
		return
	}
	if err := publisher.Publish(ctx, evts...); err != nil {
		logger.Warn().Err(err).Int("count", len(evts)).Msg("failed to publish domain events")
	}
}

// newEvent builds an event, logging and dropping it when the payload
// cannot be encoded.
func newEvent(logger zerolog.Logger, eventType, aggregateType string, aggregateID int, payload interface{}) []*domain.Event {
	e, err := domain.NewEvent(eventType, aggregateType, aggregateID, payload)
	if err != nil {
		logger.Error().Err(err).Str("event_type", eventType).Msg("failed to build domain event")
		return nil
	}
	return []*domain.Event{e}
}
