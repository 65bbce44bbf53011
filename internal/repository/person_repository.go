package repository

import (
	"context"

	"github.com/helixir/labmanager-service/internal/domain"
)

// PersonRepository handles persistence of persons.
type PersonRepository interface {
	// Create inserts a new person and fills its ID and timestamps.
	// Returns domain.ErrInvalidInput if the last name is empty.
	Create(ctx context.Context, person *domain.Person) error

	// GetByID retrieves a person by identifier.
	// Returns domain.ErrNotFound if no matching person exists.
	GetByID(ctx context.Context, id int) (*domain.Person, error)

	// Update overwrites the names and email of a stored person.
	// Returns domain.ErrNotFound if no matching person exists.
	Update(ctx context.Context, person *domain.Person) error

	// Delete removes a person. Authorships of the person are removed by the
	// foreign key cascade; callers that need contiguous ranks must re-rank first.
	// Returns domain.ErrNotFound if no matching person exists.
	Delete(ctx context.Context, id int) error

	// List returns every person in ascending identifier order.
	List(ctx context.Context) ([]*domain.Person, error)

	// FindByName returns the persons whose names are exactly equal to the
	// given ones, in ascending identifier order.
	FindByName(ctx context.Context, firstName, lastName string) ([]*domain.Person, error)
}
