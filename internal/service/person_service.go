package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/helixir/labmanager-service/internal/domain"
	"github.com/helixir/labmanager-service/internal/events"
	"github.com/helixir/labmanager-service/internal/names"
	"github.com/helixir/labmanager-service/internal/observability"
	"github.com/helixir/labmanager-service/internal/repository"
)

// PersonService manages persons and resolves author names against them.
type PersonService struct {
	repos     repository.Repositories
	uow       repository.UnitOfWork
	matcher   matcher
	publisher events.Publisher
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

// NewPersonService creates a PersonService. A nil publisher discards events
// and nil metrics are not recorded.
func NewPersonService(
	repos repository.Repositories,
	uow repository.UnitOfWork,
	comparator *names.Comparator,
	publisher events.Publisher,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *PersonService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &PersonService{
		repos:     repos,
		uow:       uow,
		matcher:   matcher{comparator: comparator},
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.With().Str("component", "person_service").Logger(),
	}
}

// GetAllPersons returns every person in identifier order.
func (s *PersonService) GetAllPersons(ctx context.Context) ([]*domain.Person, error) {
	return s.repos.Persons.List(ctx)
}

// GetPerson returns the person with the given id, or nil when there is none.
func (s *PersonService) GetPerson(ctx context.Context, id int) (*domain.Person, error) {
	p, err := s.repos.Persons.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return p, err
}

// CreatePerson stores a new person and returns its identifier.
func (s *PersonService) CreatePerson(ctx context.Context, firstName, lastName, email string) (int, error) {
	p := &domain.Person{FirstName: firstName, LastName: lastName, Email: email}
	if err := s.repos.Persons.Create(ctx, p); err != nil {
		return 0, err
	}

	if s.metrics != nil {
		s.metrics.RecordPersonCreated()
	}
	s.logger.Info().Int("person_id", p.ID).Msg("person created")

	publish(ctx, s.publisher, s.logger, newEvent(s.logger, domain.EventTypePersonCreated, domain.AggregatePerson, p.ID,
		domain.PersonPayload{PersonID: p.ID, FirstName: p.FirstName, LastName: p.LastName, Origin: "api"})...)
	return p.ID, nil
}

// UpdatePerson changes the attributes of a stored person. Empty names keep
// the stored value while the email is always replaced. An unknown id is
// ignored.
func (s *PersonService) UpdatePerson(ctx context.Context, id int, firstName, lastName, email string) error {
	p, err := s.repos.Persons.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if firstName != "" {
		p.FirstName = firstName
	}
	if lastName != "" {
		p.LastName = lastName
	}
	p.Email = email

	if err := s.repos.Persons.Update(ctx, p); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	publish(ctx, s.publisher, s.logger, newEvent(s.logger, domain.EventTypePersonUpdated, domain.AggregatePerson, p.ID,
		domain.PersonPayload{PersonID: p.ID, FirstName: p.FirstName, LastName: p.LastName})...)
	return nil
}

// RemovePerson deletes a person together with their authorships and closes
// the rank gap they leave in every publication they co-authored. An unknown
// id is ignored.
func (s *PersonService) RemovePerson(ctx context.Context, id int) error {
	var (
		found    bool
		reranked int64
		touched  []int
	)

	err := s.uow.Do(ctx, func(repos repository.Repositories) error {
		found, reranked, touched = false, 0, nil

		if _, err := repos.Persons.GetByID(ctx, id); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return err
		}
		found = true

		authorships, err := repos.Authorships.ListByPerson(ctx, id)
		if err != nil {
			return err
		}
		if _, err := repos.Authorships.DeleteByPerson(ctx, id); err != nil {
			return err
		}

		// Highest rank first so earlier shifts do not move later targets.
		domain.SortByRankDesc(authorships)
		for _, a := range authorships {
			n, err := repos.Authorships.ShiftRanksAfter(ctx, a.PublicationID, a.Rank)
			if err != nil {
				return fmt.Errorf("failed to re-rank publication %d: %w", a.PublicationID, err)
			}
			reranked += n
			if len(touched) == 0 || touched[len(touched)-1] != a.PublicationID {
				touched = append(touched, a.PublicationID)
			}
		}

		return repos.Persons.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("failed to remove person %d: %w", id, err)
	}
	if !found {
		return nil
	}

	if s.metrics != nil {
		s.metrics.RecordPersonRemoved(int(reranked))
	}
	s.logger.Info().
		Int("person_id", id).
		Int("publications", len(touched)).
		Int64("reranked", reranked).
		Msg("person removed")

	publish(ctx, s.publisher, s.logger, newEvent(s.logger, domain.EventTypePersonRemoved, domain.AggregatePerson, id,
		domain.PersonRemovedPayload{PersonID: id, ReRankedPublications: touched})...)
	return nil
}

// FindIDByName returns the identifier of a person carrying exactly the given
// names, or 0 when there is none.
func (s *PersonService) FindIDByName(ctx context.Context, firstName, lastName string) (int, error) {
	persons, err := s.repos.Persons.FindByName(ctx, firstName, lastName)
	if err != nil {
		return 0, err
	}
	if len(persons) == 0 {
		return 0, nil
	}
	return persons[0].ID, nil
}

// FindIDBySimilarName returns the identifier of the first person with a
// similar name, or 0 when there is none.
func (s *PersonService) FindIDBySimilarName(ctx context.Context, firstName, lastName string) (int, error) {
	p, err := s.FindBySimilarName(ctx, firstName, lastName)
	if err != nil || p == nil {
		return 0, err
	}
	return p.ID, nil
}

// FindBySimilarName returns the first person with a similar name, or nil.
func (s *PersonService) FindBySimilarName(ctx context.Context, firstName, lastName string) (*domain.Person, error) {
	persons, err := s.repos.Persons.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.matcher.similar(persons, firstName, lastName), nil
}

// Resolve maps a name to a stored person, preferring an exact match over a
// similar one. When nothing matches it returns a pending reference and an
// unsaved person carrying the names. Resolve never writes.
func (s *PersonService) Resolve(ctx context.Context, firstName, lastName string) (domain.AuthorRef, *domain.Person, error) {
	persons, err := s.repos.Persons.List(ctx)
	if err != nil {
		return domain.AuthorRef{}, nil, err
	}
	if p := s.matcher.resolve(persons, firstName, lastName); p != nil {
		return domain.RefOf(p), p, nil
	}
	return domain.Pending(firstName, lastName), domain.NewTransientPerson(firstName, lastName), nil
}

// ExtractPersonsFrom parses a BibTeX author list. Authors already stored
// under exactly the parsed names are returned from the store; the others
// come back as unsaved persons. The von particle is folded into the first
// name.
func (s *PersonService) ExtractPersonsFrom(ctx context.Context, authorText string) ([]*domain.Person, error) {
	persons := []*domain.Person{}
	for name, err := range names.Names(authorText) {
		if err != nil {
			return nil, err
		}
		first := name.FirstNameWithVon()

		id, err := s.FindIDByName(ctx, first, name.Last)
		if err != nil {
			return nil, err
		}
		var p *domain.Person
		if id != 0 {
			if p, err = s.GetPerson(ctx, id); err != nil {
				return nil, err
			}
		}
		if p == nil {
			p = domain.NewTransientPerson(first, name.Last)
		}
		persons = append(persons, p)
	}
	return persons, nil
}

// ComputeDuplicateClusters groups stored persons whose names are similar.
// Clusters are seeded in identifier order and hold at least two persons;
// no person belongs to two clusters.
func (s *PersonService) ComputeDuplicateClusters(ctx context.Context) ([]domain.SimilarityCluster, error) {
	persons, err := s.repos.Persons.List(ctx)
	if err != nil {
		return nil, err
	}

	clusters := s.matcher.clusters(persons)
	if s.metrics != nil {
		s.metrics.RecordDuplicateScan(len(clusters))
	}
	s.logger.Debug().Int("persons", len(persons)).Int("clusters", len(clusters)).Msg("duplicate scan finished")
	return clusters, nil
}
