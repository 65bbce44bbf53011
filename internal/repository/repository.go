// Package repository provides data access interfaces and implementations
// for the lab manager service.
//
// # Overview
//
// This package defines repository interfaces and their PostgreSQL implementations
// following the repository pattern to abstract data persistence from business logic.
//
// # Repository Interfaces
//
// The package provides the following repository interfaces:
//
//   - PersonRepository: Manages laboratory members and external co-authors
//   - PublicationRepository: Manages bibliographic records
//   - AuthorshipRepository: Manages the ranked person/publication links
//
// # Thread Safety
//
// All repository implementations are safe for concurrent use by multiple goroutines.
// The underlying pgxpool handles connection pooling and synchronization.
//
// # Error Handling
//
// All methods return domain-specific errors from the domain package.
// Database errors are wrapped with context using fmt.Errorf with the %w verb.
// Common errors include:
//
//   - domain.ErrNotFound: Resource does not exist
//   - domain.ErrAlreadyExists: Unique constraint violation
//   - domain.ErrInvalidInput: Invalid parameters provided
//
// # Transactions
//
// Use the DBTX interface to support both pool and transaction contexts.
// Multi-step writes go through a UnitOfWork, which hands a transaction-bound
// Repositories set to its callback.
//
// # Usage Pattern
//
//	db, _ := database.New(ctx, cfg, logger)
//	repos := repository.NewRepositories(db)
//	uow := repository.NewPgUnitOfWork(db, repository.WriteLockKey)
package repository

import (
	"context"

	"github.com/helixir/labmanager-service/internal/database"
)

// DBTX is the database interface supporting both pool and transaction contexts.
// This allows repositories to work with both direct pool connections and transactions.
//
// # Constructor Pattern
//
// Repository implementations follow a constructor pattern that accepts DBTX:
//
//	type PgPersonRepository struct {
//	    db DBTX
//	}
//
//	func NewPgPersonRepository(db DBTX) *PgPersonRepository {
//	    return &PgPersonRepository{db: db}
//	}
type DBTX = database.DBTX

// List pagination defaults and limits.
const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

// applyPaginationDefaults normalizes limit and offset values for filter queries.
// It clamps limit to [1, MaxPageSize] and ensures offset >= 0.
func applyPaginationDefaults(limit, offset *int) {
	if *limit <= 0 {
		*limit = DefaultPageSize
	}
	if *limit > MaxPageSize {
		*limit = MaxPageSize
	}
	if *offset < 0 {
		*offset = 0
	}
}

// Repositories groups the repositories that share one database handle.
type Repositories struct {
	Persons      PersonRepository
	Publications PublicationRepository
	Authorships  AuthorshipRepository
}

// NewRepositories creates the PostgreSQL repositories bound to db.
func NewRepositories(db DBTX) Repositories {
	return Repositories{
		Persons:      NewPgPersonRepository(db),
		Publications: NewPgPublicationRepository(db),
		Authorships:  NewPgAuthorshipRepository(db),
	}
}

// UnitOfWork runs a group of repository calls atomically.
type UnitOfWork interface {
	// Do calls fn with repositories bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	Do(ctx context.Context, fn func(repos Repositories) error) error
}
