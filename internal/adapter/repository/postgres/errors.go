package postgres

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/srgjo27/bookingcore/internal/core/domain"
)

const (
	codeUniqueViolation      = "23505"
	codeLockNotAvailable     = "55P03"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeQueryCanceled        = "57014"
)

// mapError classifies a driver error into the domain taxonomy. Lock waits
// that hit lock_timeout and aborted serializable transactions are retryable
// conflicts; everything else is a database error.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeLockNotAvailable, codeSerializationFailure, codeDeadlockDetected, codeQueryCanceled:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrLockTimeout, err)
		}
	}

	return fmt.Errorf("%s: %w: %w", op, domain.ErrDatabase, err)
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
