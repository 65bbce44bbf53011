package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/helixir/labmanager-service/internal/domain"
	"github.com/helixir/labmanager-service/internal/repository"
)

// AuthorshipService links persons to publications.
type AuthorshipService struct {
	repos  repository.Repositories
	uow    repository.UnitOfWork
	logger zerolog.Logger
}

// NewAuthorshipService creates an AuthorshipService.
func NewAuthorshipService(repos repository.Repositories, uow repository.UnitOfWork, logger zerolog.Logger) *AuthorshipService {
	return &AuthorshipService{
		repos:  repos,
		uow:    uow,
		logger: logger.With().Str("component", "authorship_service").Logger(),
	}
}

// AddAuthorship appends personID as the last author of pubID and returns
// the created authorship. Both records must exist.
func (s *AuthorshipService) AddAuthorship(ctx context.Context, personID, pubID int) (*domain.Authorship, error) {
	var a *domain.Authorship
	err := s.uow.Do(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Persons.GetByID(ctx, personID); err != nil {
			return err
		}
		if _, err := repos.Publications.GetByID(ctx, pubID); err != nil {
			return err
		}

		rank, err := repos.Authorships.NextRank(ctx, pubID)
		if err != nil {
			return err
		}
		a = &domain.Authorship{PersonID: personID, PublicationID: pubID, Rank: rank}
		return repos.Authorships.Create(ctx, a)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add person %d to publication %d: %w", personID, pubID, err)
	}

	s.logger.Info().
		Int("person_id", personID).
		Int("publication_id", pubID).
		Int("rank", a.Rank).
		Msg("authorship added")
	return a, nil
}

// GetAuthorsFor returns the authors of a publication in rank order. Authors
// whose person record is gone are skipped.
func (s *AuthorshipService) GetAuthorsFor(ctx context.Context, pubID int) ([]*domain.Person, error) {
	authorships, err := s.repos.Authorships.ListByPublication(ctx, pubID)
	if err != nil {
		return nil, err
	}

	persons := make([]*domain.Person, 0, len(authorships))
	for _, a := range authorships {
		p, err := s.repos.Persons.GetByID(ctx, a.PersonID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		persons = append(persons, p)
	}
	return persons, nil
}
