package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helixir/labmanager-service/internal/domain"
)

// PostgreSQL error codes.
const (
	pgUniqueViolation     = "23505" // unique_violation
	pgForeignKeyViolation = "23503" // foreign_key_violation
)

// Compile-time interface verification.
var _ AuthorshipRepository = (*PgAuthorshipRepository)(nil)

// PgAuthorshipRepository is a PostgreSQL implementation of AuthorshipRepository.
type PgAuthorshipRepository struct {
	db DBTX
}

// NewPgAuthorshipRepository creates a new PostgreSQL authorship repository.
func NewPgAuthorshipRepository(db DBTX) *PgAuthorshipRepository {
	return &PgAuthorshipRepository{db: db}
}

// Create inserts an authorship.
func (r *PgAuthorshipRepository) Create(ctx context.Context, a *domain.Authorship) error {
	if a.Rank < 1 {
		return domain.NewValidationError("rank", "rank must be at least 1")
	}

	query := `
		INSERT INTO authorships (person_id, publication_id, rank)
		VALUES ($1, $2, $3)
		RETURNING id`

	err := r.db.QueryRow(ctx, query, a.PersonID, a.PublicationID, a.Rank).Scan(&a.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgForeignKeyViolation:
				return domain.NewNotFoundError("authorship target", fmt.Sprintf("person %d / publication %d", a.PersonID, a.PublicationID))
			case pgUniqueViolation:
				return domain.NewAlreadyExistsError("authorship", fmt.Sprintf("publication %d rank %d", a.PublicationID, a.Rank))
			}
		}
		return fmt.Errorf("failed to create authorship: %w", err)
	}

	return nil
}

// ListByPerson returns the authorships of a person.
func (r *PgAuthorshipRepository) ListByPerson(ctx context.Context, personID int) ([]domain.Authorship, error) {
	query := `
		SELECT id, person_id, publication_id, rank
		FROM authorships
		WHERE person_id = $1
		ORDER BY publication_id, rank`
	return r.queryAuthorships(ctx, query, personID)
}

// ListByPublication returns the authorships of a publication in rank order.
func (r *PgAuthorshipRepository) ListByPublication(ctx context.Context, publicationID int) ([]domain.Authorship, error) {
	query := `
		SELECT id, person_id, publication_id, rank
		FROM authorships
		WHERE publication_id = $1
		ORDER BY rank`
	return r.queryAuthorships(ctx, query, publicationID)
}

// DeleteByPerson removes every authorship of a person.
func (r *PgAuthorshipRepository) DeleteByPerson(ctx context.Context, personID int) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM authorships WHERE person_id = $1`, personID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete authorships: %w", err)
	}
	return result.RowsAffected(), nil
}

// ShiftRanksAfter closes the gap left by a removed rank.
func (r *PgAuthorshipRepository) ShiftRanksAfter(ctx context.Context, publicationID, rank int) (int64, error) {
	query := `
		UPDATE authorships
		SET rank = rank - 1
		WHERE publication_id = $1 AND rank > $2`

	result, err := r.db.Exec(ctx, query, publicationID, rank)
	if err != nil {
		return 0, fmt.Errorf("failed to shift ranks: %w", err)
	}
	return result.RowsAffected(), nil
}

// NextRank returns one past the highest rank of the publication.
func (r *PgAuthorshipRepository) NextRank(ctx context.Context, publicationID int) (int, error) {
	query := `SELECT COALESCE(MAX(rank), 0) + 1 FROM authorships WHERE publication_id = $1`

	var next int
	if err := r.db.QueryRow(ctx, query, publicationID).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to compute next rank: %w", err)
	}
	return next, nil
}

func (r *PgAuthorshipRepository) queryAuthorships(ctx context.Context, query string, args ...interface{}) ([]domain.Authorship, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query authorships: %w", err)
	}
	defer rows.Close()

	authorships := make([]domain.Authorship, 0)
	for rows.Next() {
		var a domain.Authorship
		if err := rows.Scan(&a.ID, &a.PersonID, &a.PublicationID, &a.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan authorship: %w", err)
		}
		authorships = append(authorships, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating authorships: %w", err)
	}

	return authorships, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}
