package store

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")

	// ErrForeignKey is returned when a write references a missing row.
	ErrForeignKey = errors.New("referenced record does not exist")
)

const (
	pqUniqueViolation     = pq.ErrorCode("23505")
	pqForeignKeyViolation = pq.ErrorCode("23503")
)

// translateError maps constraint violations reported by Postgres to the
// package sentinels. Other errors are returned unchanged.
func translateError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		return errors.Join(ErrDuplicate, err)
	case pqForeignKeyViolation:
		return errors.Join(ErrForeignKey, err)
	default:
		return err
	}
}
