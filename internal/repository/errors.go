package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicate is returned when a write violates a unique constraint.
var ErrDuplicate = errors.New("duplicate key")

const uniqueViolation = "23505"

// translate maps driver errors onto repository sentinels and leaves everything else untouched.
func translate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}
