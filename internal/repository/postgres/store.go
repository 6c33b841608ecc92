// Package postgres implements repository.Store on a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"cafe-backoffice/internal/database"
	"cafe-backoffice/internal/logger"
	"cafe-backoffice/internal/repository"
)

const (
	maxTxAttempts = 3

	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// querier is satisfied by both the pool and a pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// queries implements repository.Tx against a querier.
type queries struct {
	q querier
}

// Store is the PostgreSQL repository.Store.
type Store struct {
	*queries
	db     *database.DB
	logger *logger.Logger
}

var _ repository.Store = (*Store)(nil)

func New(db *database.DB, log *logger.Logger) *Store {
	return &Store{
		queries: &queries{q: db},
		db:      db,
		logger:  log,
	}
}

// WithinTx runs fn in a SERIALIZABLE transaction, retrying on
// serialization failures and deadlocks.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.runTx(ctx, fn)
		if !isRetryable(err) {
			return err
		}
		s.logger.Warn("tx_retry", "Transaction aborted by concurrent update, retrying", "",
			map[string]interface{}{"attempt": attempt})
	}
	return fmt.Errorf("failed to commit transaction after %d attempts: %w", maxTxAttempts, err)
}

func (s *Store) runTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&queries{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *queries) LockKey(ctx context.Context, key string) error {
	if _, err := r.q.Exec(ctx, database.AdvisoryXactLockSQL, key); err != nil {
		return fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	return nil
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
}

// mapError translates driver errors into repository sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return &repository.DuplicateError{Constraint: pgErr.ConstraintName, Err: err}
	}
	return err
}

// expectOne turns a zero-row update into ErrNotFound.
func expectOne(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
