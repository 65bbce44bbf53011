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
var _ PublicationRepository = (*PgPublicationRepository)(nil)

// PgPublicationRepository is a PostgreSQL implementation of PublicationRepository.
type PgPublicationRepository struct {
	db DBTX
}

// NewPgPublicationRepository creates a new PostgreSQL publication repository.
func NewPgPublicationRepository(db DBTX) *PgPublicationRepository {
	return &PgPublicationRepository{db: db}
}

const publicationColumns = `id, type, title, year, journal, book_title, publisher,
		volume, number, pages, doi, url, abstract, keywords, created_at, updated_at`

// Create inserts a new publication.
func (r *PgPublicationRepository) Create(ctx context.Context, pub *domain.Publication) error {
	if strings.TrimSpace(pub.Title) == "" {
		return domain.NewValidationError("title", "title is required")
	}
	if pub.Type == "" {
		pub.Type = domain.PublicationTypeMisc
	}

	query := `
		INSERT INTO publications (
			type, title, year, journal, book_title, publisher,
			volume, number, pages, doi, url, abstract, keywords
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		string(pub.Type), pub.Title, pub.Year, pub.Journal, pub.BookTitle, pub.Publisher,
		pub.Volume, pub.Number, pub.Pages, pub.DOI, pub.URL, pub.Abstract, pub.Keywords,
	).Scan(&pub.ID, &pub.CreatedAt, &pub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create publication: %w", err)
	}

	return nil
}

// GetByID retrieves a publication by its identifier.
func (r *PgPublicationRepository) GetByID(ctx context.Context, id int) (*domain.Publication, error) {
	query := `SELECT ` + publicationColumns + ` FROM publications WHERE id = $1`

	pub, err := scanPublication(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("publication", strconv.Itoa(id))
		}
		return nil, fmt.Errorf("failed to get publication by ID: %w", err)
	}

	return pub, nil
}

// List retrieves publications matching the filter.
func (r *PgPublicationRepository) List(ctx context.Context, filter PublicationFilter) ([]*domain.Publication, int64, error) {
	applyPaginationDefaults(&filter.Limit, &filter.Offset)

	var conditions []string
	var args []interface{}
	argIndex := 1

	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIndex))
		args = append(args, string(filter.Type))
		argIndex++
	}
	if filter.Year != 0 {
		conditions = append(conditions, fmt.Sprintf("year = $%d", argIndex))
		args = append(args, filter.Year)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM publications %s`, whereClause)
	var totalCount int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count publications: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM publications
		%s
		ORDER BY id
		LIMIT $%d OFFSET $%d`, publicationColumns, whereClause, argIndex, argIndex+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list publications: %w", err)
	}
	defer rows.Close()

	pubs := make([]*domain.Publication, 0)
	for rows.Next() {
		pub, err := scanPublicationFromRows(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan publication: %w", err)
		}
		pubs = append(pubs, pub)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating publications: %w", err)
	}

	return pubs, totalCount, nil
}

// Delete removes a publication.
func (r *PgPublicationRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.Exec(ctx, `DELETE FROM publications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete publication: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("publication", strconv.Itoa(id))
	}
	return nil
}

// publicationScanDest holds the destination pointers for scanning a Publication row.
type publicationScanDest struct {
	pub     domain.Publication
	pubType string
}

func (d *publicationScanDest) destinations() []interface{} {
	return []interface{}{
		&d.pub.ID, &d.pubType, &d.pub.Title, &d.pub.Year, &d.pub.Journal, &d.pub.BookTitle, &d.pub.Publisher,
		&d.pub.Volume, &d.pub.Number, &d.pub.Pages, &d.pub.DOI, &d.pub.URL, &d.pub.Abstract, &d.pub.Keywords,
		&d.pub.CreatedAt, &d.pub.UpdatedAt,
	}
}

// finalize converts scanned raw values into domain types.
func (d *publicationScanDest) finalize() *domain.Publication {
	d.pub.Type = domain.ParsePublicationType(d.pubType)
	return &d.pub
}

// scanPublication scans a single row into a Publication.
func scanPublication(row pgx.Row) (*domain.Publication, error) {
	var dest publicationScanDest
	if err := row.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize(), nil
}

// scanPublicationFromRows scans the current row from pgx.Rows into a Publication.
func scanPublicationFromRows(rows pgx.Rows) (*domain.Publication, error) {
	var dest publicationScanDest
	if err := rows.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize(), nil
}
