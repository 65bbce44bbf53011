package repository

import (
	"context"

	"github.com/helixir/labmanager-service/internal/domain"
)

// AuthorshipRepository handles the ranked links between persons and publications.
type AuthorshipRepository interface {
	// Create inserts an authorship and fills its ID.
	// Returns domain.ErrNotFound if the person or the publication does not exist.
	Create(ctx context.Context, a *domain.Authorship) error

	// ListByPerson returns the authorships of a person ordered by
	// publication and rank.
	ListByPerson(ctx context.Context, personID int) ([]domain.Authorship, error)

	// ListByPublication returns the authorships of a publication in rank order.
	ListByPublication(ctx context.Context, publicationID int) ([]domain.Authorship, error)

	// DeleteByPerson removes every authorship of a person and returns how
	// many rows were deleted.
	DeleteByPerson(ctx context.Context, personID int) (int64, error)

	// ShiftRanksAfter decrements by one every rank of the publication that
	// is strictly greater than rank. It returns the number of shifted rows.
	ShiftRanksAfter(ctx context.Context, publicationID, rank int) (int64, error)

	// NextRank returns the rank a new author of the publication would get.
	NextRank(ctx context.Context, publicationID int) (int, error)
}
