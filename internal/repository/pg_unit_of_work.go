package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/helixir/labmanager-service/internal/database"
	"github.com/helixir/labmanager-service/internal/domain"
)

// WriteLockKey is the advisory lock that serializes person-creating writes.
// Import batches resolve authors against the persons table before inserting,
// so two concurrent batches could otherwise create the same person twice.
const WriteLockKey int64 = 0x6c61626d67720001

// TxRunner starts transactions. *database.DB implements it.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Compile-time interface verification.
var (
	_ UnitOfWork = (*PgUnitOfWork)(nil)
	_ TxRunner   = (*database.DB)(nil)
)

// PgUnitOfWork runs repository calls inside one PostgreSQL transaction.
type PgUnitOfWork struct {
	db      TxRunner
	lockKey int64
}

// NewPgUnitOfWork creates a unit of work over db. When lockKey is non-zero
// every transaction first takes that transaction-scoped advisory lock.
func NewPgUnitOfWork(db TxRunner, lockKey int64) *PgUnitOfWork {
	return &PgUnitOfWork{db: db, lockKey: lockKey}
}

// Do runs fn with transaction-bound repositories.
func (u *PgUnitOfWork) Do(ctx context.Context, fn func(repos Repositories) error) error {
	err := u.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if u.lockKey != 0 {
			if err := database.AcquireAdvisoryLockTx(ctx, tx, u.lockKey); err != nil {
				return fmt.Errorf("failed to acquire write lock: %w", err)
			}
		}
		return fn(NewRepositories(tx))
	})
	// The rank constraint is deferred, so a clash only surfaces at commit.
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", domain.NewAlreadyExistsError("authorship", "publication rank"), err)
	}
	return err
}
