package infra

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrConcurrencyAborted reports that the store gave up on a unit of work because of
	// contention (deadlock, serialization failure, lock timeout). Nothing was applied and
	// the whole unit of work may be re-run.
	ErrConcurrencyAborted = errors.New("concurrency aborted")

	// ErrStorageUnavailable reports an unreachable store or an unexpected driver failure.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
)

// Classify maps a driver error onto the storage taxonomy. Nil, context errors and
// already classified errors pass through unchanged.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrConcurrencyAborted), errors.Is(err, ErrStorageUnavailable):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateLockNotAvailable:
			return fmt.Errorf("%w: %s (%s)", ErrConcurrencyAborted, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}
