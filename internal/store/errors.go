package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrTransient marks a data-access failure that is safe to retry.
var ErrTransient = errors.New("transient data store error")

var ErrJobNotFound = errors.New("job not found")

// IsTransient reports whether err is worth another attempt: connection-level
// failures that never reached the server, serialization conflicts and
// deadlocks. Deadline expiry is not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "40001", pgErr.Code == "40P01":
			return true
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08":
			return true
		}
		return false
	}
	return pgconn.SafeToRetry(err)
}
