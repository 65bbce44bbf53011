package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/labmanager-service/internal/domain"
	"github.com/helixir/labmanager-service/internal/events"
	"github.com/helixir/labmanager-service/internal/export"
	"github.com/helixir/labmanager-service/internal/names"
	"github.com/helixir/labmanager-service/internal/observability"
	"github.com/helixir/labmanager-service/internal/repository"
)

// Export format names used for metrics and routing.
const (
	FormatBibTeX = "bibtex"
	FormatHTML   = "html"
	FormatODT    = "odt"
)

// BibTeXCodec reads and writes BibTeX databases.
type BibTeXCodec interface {
	ExportPublications(pubs []*domain.Publication) ([]byte, error)
	ParsePublications(text string) ([]*domain.Publication, error)
}

// DocumentExporter renders publications into a document.
type DocumentExporter interface {
	ExportPublications(pubs []*domain.Publication, cfg export.Config) ([]byte, error)
}

// Exporters groups the document exporters used by PublicationService.
type Exporters struct {
	BibTeX BibTeXCodec
	HTML   DocumentExporter
	ODT    DocumentExporter
}

// DefaultExporters returns the exporters of the export package.
func DefaultExporters() Exporters {
	return Exporters{
		BibTeX: export.NewBibTeX(),
		HTML:   export.NewHTMLDocument(),
		ODT:    export.NewODTDocument(),
	}
}

// PublicationService imports, reads, removes and exports publications.
type PublicationService struct {
	repos     repository.Repositories
	uow       repository.UnitOfWork
	matcher   matcher
	exporters Exporters
	publisher events.Publisher
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

// NewPublicationService creates a PublicationService. A nil publisher
// discards events and nil metrics are not recorded.
func NewPublicationService(
	repos repository.Repositories,
	uow repository.UnitOfWork,
	comparator *names.Comparator,
	exporters Exporters,
	publisher events.Publisher,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *PublicationService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &PublicationService{
		repos:     repos,
		uow:       uow,
		matcher:   matcher{comparator: comparator},
		exporters: exporters,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.With().Str("component", "publication_service").Logger(),
	}
}

// Reconcile persists a batch of freshly parsed publications. Every
// temporary author is resolved in list order: a resolved reference is kept,
// a pending one is matched against stored persons (exact name first, then
// similar name) and otherwise stored as a new person. Authorships are
// ranked by list position and the temporary author lists are cleared.
//
// The batch is atomic. The returned identifiers follow the input order.
func (s *PublicationService) Reconcile(ctx context.Context, pubs []*domain.Publication) ([]int, error) {
	if len(pubs) == 0 {
		return []int{}, nil
	}
	return s.persist(ctx, pubs, true)
}

// Save persists publications taking their temporary authors as they are:
// resolved references are reused and every pending author becomes a new
// person.
func (s *PublicationService) Save(ctx context.Context, pubs ...*domain.Publication) ([]int, error) {
	if len(pubs) == 0 {
		return []int{}, nil
	}
	return s.persist(ctx, pubs, false)
}

// ImportPublications parses a BibTeX database and reconciles its entries.
func (s *PublicationService) ImportPublications(ctx context.Context, bibtex string) ([]int, error) {
	if strings.TrimSpace(bibtex) == "" {
		return []int{}, nil
	}

	pubs, err := s.exporters.BibTeX.ParsePublications(bibtex)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordImportFailed("parse")
		}
		return nil, fmt.Errorf("failed to parse bibtex: %w", err)
	}
	return s.Reconcile(ctx, pubs)
}

func (s *PublicationService) persist(ctx context.Context, pubs []*domain.Publication, matchExisting bool) ([]int, error) {
	for i, pub := range pubs {
		if pub == nil {
			return nil, domain.NewValidationError("publications", fmt.Sprintf("publication %d is nil", i))
		}
	}

	start := time.Now()
	originals := make([]domain.Publication, len(pubs))
	for i, pub := range pubs {
		originals[i] = *pub
	}

	var ids, createdPersons []int
	err := s.uow.Do(ctx, func(repos repository.Repositories) error {
		ids, createdPersons = make([]int, 0, len(pubs)), nil

		var known []*domain.Person
		if matchExisting {
			var err error
			if known, err = repos.Persons.List(ctx); err != nil {
				return err
			}
		}

		for i, pub := range pubs {
			*pub = originals[i]
			pub.Authorships = nil
			if err := repos.Publications.Create(ctx, pub); err != nil {
				return err
			}

			for pos, ref := range pub.TemporaryAuthors {
				personID, created, err := s.authorID(ctx, repos.Persons, ref, known, matchExisting)
				if err != nil {
					return fmt.Errorf("failed to resolve author %d of %q: %w", pos, pub.Title, err)
				}
				if created != nil {
					known = append(known, created)
					createdPersons = append(createdPersons, created.ID)
				}

				a := &domain.Authorship{PersonID: personID, PublicationID: pub.ID, Rank: pos + 1}
				if err := repos.Authorships.Create(ctx, a); err != nil {
					return err
				}
				pub.Authorships = append(pub.Authorships, *a)
			}
			pub.TemporaryAuthors = nil
			ids = append(ids, pub.ID)
		}
		return nil
	})
	if err != nil {
		for i, pub := range pubs {
			*pub = originals[i]
		}
		if s.metrics != nil {
			s.metrics.RecordImportFailed(failureReason(err))
		}
		s.logger.Error().Err(err).Int("publications", len(pubs)).Msg("publication batch rolled back")
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordImport(len(ids), time.Since(start).Seconds())
	}
	s.logger.Info().
		Int("publications", len(ids)).
		Int("created_persons", len(createdPersons)).
		Dur("duration", time.Since(start)).
		Msg("publications persisted")

	if len(ids) > 0 {
		publish(ctx, s.publisher, s.logger, newEvent(s.logger, domain.EventTypePublicationsImported, domain.AggregatePublication, ids[0],
			domain.PublicationsImportedPayload{PublicationIDs: ids, CreatedPersons: createdPersons})...)
	}
	return ids, nil
}

// authorID returns the stored person for ref, creating one when needed.
// The created person is returned so the caller can match later authors of
// the batch against it.
func (s *PublicationService) authorID(
	ctx context.Context,
	persons repository.PersonRepository,
	ref domain.AuthorRef,
	known []*domain.Person,
	matchExisting bool,
) (int, *domain.Person, error) {
	if ref.IsResolved() {
		return ref.PersonID, nil, nil
	}

	if matchExisting {
		if p := s.matcher.resolve(known, ref.FirstName, ref.LastName); p != nil {
			if s.metrics != nil {
				s.metrics.RecordAuthorResolved()
			}
			return p.ID, nil, nil
		}
	}

	p := domain.NewTransientPerson(ref.FirstName, ref.LastName)
	if err := persons.Create(ctx, p); err != nil {
		return 0, nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordAuthorCreated()
	}
	s.logger.Debug().Int("person_id", p.ID).Str("name", p.FullName()).Msg("author stored as new person")
	return p.ID, p, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, domain.ErrNotFound):
		return "missing_reference"
	case errors.Is(err, domain.ErrAlreadyExists):
		return "conflict"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "store"
	}
}

// GetAllPublications returns every publication in identifier order, with
// authors filled in.
func (s *PublicationService) GetAllPublications(ctx context.Context) ([]*domain.Publication, error) {
	var all []*domain.Publication
	for offset := 0; ; offset += repository.MaxPageSize {
		page, total, err := s.repos.Publications.List(ctx, repository.PublicationFilter{
			Limit:  repository.MaxPageSize,
			Offset: offset,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) == 0 || int64(len(all)) >= total {
			break
		}
	}
	if all == nil {
		all = []*domain.Publication{}
	}

	for _, pub := range all {
		if err := s.fillAuthors(ctx, pub); err != nil {
			return nil, err
		}
	}
	return all, nil
}

// ListPublications returns one page of publications and the total count
// matching the filter.
func (s *PublicationService) ListPublications(ctx context.Context, filter repository.PublicationFilter) ([]*domain.Publication, int64, error) {
	pubs, total, err := s.repos.Publications.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	for _, pub := range pubs {
		if err := s.fillAuthors(ctx, pub); err != nil {
			return nil, 0, err
		}
	}
	return pubs, total, nil
}

// GetPublication returns a publication with its authors, or nil when the
// id is unknown.
func (s *PublicationService) GetPublication(ctx context.Context, id int) (*domain.Publication, error) {
	pub, err := s.repos.Publications.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.fillAuthors(ctx, pub); err != nil {
		return nil, err
	}
	return pub, nil
}

// RemovePublication deletes a publication and its authorships. An unknown
// id is ignored.
func (s *PublicationService) RemovePublication(ctx context.Context, id int) error {
	err := s.repos.Publications.Delete(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	s.logger.Info().Int("publication_id", id).Msg("publication removed")
	publish(ctx, s.publisher, s.logger, newEvent(s.logger, domain.EventTypePublicationRemoved, domain.AggregatePublication, id,
		domain.PublicationRemovedPayload{PublicationID: id})...)
	return nil
}

// fillAuthors loads the authorships of pub and the persons behind them in
// rank order.
func (s *PublicationService) fillAuthors(ctx context.Context, pub *domain.Publication) error {
	authorships, err := s.repos.Authorships.ListByPublication(ctx, pub.ID)
	if err != nil {
		return err
	}
	pub.Authorships = authorships
	pub.Authors = make([]*domain.Person, 0, len(authorships))
	for _, a := range authorships {
		p, err := s.repos.Persons.GetByID(ctx, a.PersonID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		pub.Authors = append(pub.Authors, p)
	}
	return nil
}

// ExportBibTeX writes the given publications as a BibTeX database. A nil
// id list yields nil without calling the exporter.
func (s *PublicationService) ExportBibTeX(ctx context.Context, ids []int) ([]byte, error) {
	return s.exportWith(ctx, FormatBibTeX, ids, s.exporters.BibTeX.ExportPublications)
}

// ExportHTML renders the given publications as an HTML document. A nil id
// list yields nil without calling the exporter.
func (s *PublicationService) ExportHTML(ctx context.Context, ids []int, cfg export.Config) ([]byte, error) {
	return s.exportWith(ctx, FormatHTML, ids, func(pubs []*domain.Publication) ([]byte, error) {
		return s.exporters.HTML.ExportPublications(pubs, cfg)
	})
}

// ExportODT renders the given publications as an OpenDocument text. A nil
// id list yields nil without calling the exporter.
func (s *PublicationService) ExportODT(ctx context.Context, ids []int, cfg export.Config) ([]byte, error) {
	return s.exportWith(ctx, FormatODT, ids, func(pubs []*domain.Publication) ([]byte, error) {
		return s.exporters.ODT.ExportPublications(pubs, cfg)
	})
}

// exportWith resolves ids in request order, skipping unknown ones, and
// calls fn once with the result.
func (s *PublicationService) exportWith(
	ctx context.Context,
	format string,
	ids []int,
	fn func([]*domain.Publication) ([]byte, error),
) ([]byte, error) {
	if ids == nil {
		return nil, nil
	}

	start := time.Now()
	pubs := make([]*domain.Publication, 0, len(ids))
	for _, id := range ids {
		pub, err := s.GetPublication(ctx, id)
		if err != nil {
			return nil, err
		}
		if pub == nil {
			s.logger.Debug().Int("publication_id", id).Str("format", format).Msg("skipping unknown publication")
			continue
		}
		pubs = append(pubs, pub)
	}

	out, err := fn(pubs)
	if err != nil {
		return nil, fmt.Errorf("failed to export %s: %w", format, err)
	}

	if s.metrics != nil {
		s.metrics.RecordExport(format, len(pubs), time.Since(start).Seconds())
	}
	return out, nil
}
