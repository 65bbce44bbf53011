package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/helixir/labmanager-service/internal/domain"
)

// Compile-time interface verification.
var _ PersonRepository = (*PgPersonRepository)(nil)

// PgPersonRepository is a PostgreSQL implementation of PersonRepository.
type PgPersonRepository struct {
	db DBTX
}

// NewPgPersonRepository creates a new PostgreSQL person repository.
func NewPgPersonRepository(db DBTX) *PgPersonRepository {
	return &PgPersonRepository{db: db}
}

const personColumns = `id, first_name, last_name, email, created_at, updated_at`

// Create inserts a new person.
func (r *PgPersonRepository) Create(ctx context.Context, person *domain.Person) error {
	if strings.TrimSpace(person.LastName) == "" {
		return domain.NewValidationError("last_name", "last name is required")
	}

	query := `
		INSERT INTO persons (first_name, last_name, email)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query, person.FirstName, person.LastName, person.Email).
		Scan(&person.ID, &person.CreatedAt, &person.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create person: %w", err)
	}

	return nil
}

// GetByID retrieves a person by its identifier.
func (r *PgPersonRepository) GetByID(ctx context.Context, id int) (*domain.Person, error) {
	query := `SELECT ` + personColumns + ` FROM persons WHERE id = $1`

	person, err := scanPerson(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("person", strconv.Itoa(id))
		}
		return nil, fmt.Errorf("failed to get person by ID: %w", err)
	}

	return person, nil
}

// Update overwrites the names and email of a stored person.
func (r *PgPersonRepository) Update(ctx context.Context, person *domain.Person) error {
	if strings.TrimSpace(person.LastName) == "" {
		return domain.NewValidationError("last_name", "last name is required")
	}

	query := `
		UPDATE persons
		SET first_name = $2, last_name = $3, email = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query, person.ID, person.FirstName, person.LastName, person.Email).
		Scan(&person.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NewNotFoundError("person", strconv.Itoa(person.ID))
		}
		return fmt.Errorf("failed to update person: %w", err)
	}

	return nil
}

// Delete removes a person.
func (r *PgPersonRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.Exec(ctx, `DELETE FROM persons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete person: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("person", strconv.Itoa(id))
	}
	return nil
}

// List returns every person ordered by identifier.
func (r *PgPersonRepository) List(ctx context.Context) ([]*domain.Person, error) {
	query := `SELECT ` + personColumns + ` FROM persons ORDER BY id`
	return r.queryPersons(ctx, query)
}

// FindByName returns the persons carrying exactly the given names.
func (r *PgPersonRepository) FindByName(ctx context.Context, firstName, lastName string) ([]*domain.Person, error) {
	query := `
		SELECT ` + personColumns + `
		FROM persons
		WHERE first_name = $1 AND last_name = $2
		ORDER BY id`
	return r.queryPersons(ctx, query, firstName, lastName)
}

func (r *PgPersonRepository) queryPersons(ctx context.Context, query string, args ...interface{}) ([]*domain.Person, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query persons: %w", err)
	}
	defer rows.Close()

	persons := make([]*domain.Person, 0)
	for rows.Next() {
		person, err := scanPersonFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		persons = append(persons, person)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating persons: %w", err)
	}

	return persons, nil
}

// personScanDest holds the destination pointers for scanning a Person row.
type personScanDest struct {
	person domain.Person
}

func (d *personScanDest) destinations() []interface{} {
	return []interface{}{
		&d.person.ID, &d.person.FirstName, &d.person.LastName, &d.person.Email,
		&d.person.CreatedAt, &d.person.UpdatedAt,
	}
}

// scanPerson scans a single row into a Person.
func scanPerson(row pgx.Row) (*domain.Person, error) {
	var dest personScanDest
	if err := row.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return &dest.person, nil
}

// scanPersonFromRows scans the current row from pgx.Rows into a Person.
func scanPersonFromRows(rows pgx.Rows) (*domain.Person, error) {
	var dest personScanDest
	if err := rows.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return &dest.person, nil
}
