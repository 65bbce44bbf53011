package repository

import (
	"context"

	"github.com/helixir/labmanager-service/internal/domain"
)

// PublicationRepository handles persistence of publications.
type PublicationRepository interface {
	// Create inserts a new publication and fills its ID and timestamps.
	// TemporaryAuthors and Authorships are not written; authorships have
	// their own repository.
	// Returns domain.ErrInvalidInput if the title is empty.
	Create(ctx context.Context, pub *domain.Publication) error

	// GetByID retrieves a publication by identifier.
	// Returns domain.ErrNotFound if no matching publication exists.
	GetByID(ctx context.Context, id int) (*domain.Publication, error)

	// List retrieves publications matching the filter in ascending
	// identifier order, together with the total number of matches.
	List(ctx context.Context, filter PublicationFilter) ([]*domain.Publication, int64, error)

	// Delete removes a publication and, through the cascade, its authorships.
	// Returns domain.ErrNotFound if no matching publication exists.
	Delete(ctx context.Context, id int) error
}

// PublicationFilter specifies criteria for listing publications.
type PublicationFilter struct {
	// Type filters by publication type (optional).
	Type domain.PublicationType

	// Year filters by publication year (optional, 0 means any).
	Year int

	// Limit specifies maximum number of results (default: 100, max: 1000).
	Limit int

	// Offset specifies number of results to skip for pagination.
	Offset int
}
