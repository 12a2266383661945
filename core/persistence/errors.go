package persistence

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when an object does not exist or is not visible
	// to the acting owner.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when a write references a hobby type owned by
	// someone else.
	ErrForbidden = errors.New("You do not own this hobby type.")
	// ErrConflict is returned when a uniqueness constraint would be violated.
	ErrConflict = errors.New("already exists")
	// ErrInvalidTag is returned when an entry references tags the owner does
	// not have.
	ErrInvalidTag = errors.New("invalid tag")
	// ErrInvalidInput is returned for malformed arguments.
	ErrInvalidInput = errors.New("invalid input")
)

// notFound wraps ErrNotFound with the kind of object that was looked up.
func notFound(kind, id string) error {
	return fmt.Errorf("%s '%s': %w", kind, id, ErrNotFound)
}

// invalidTags reports the offending tag ids.
func invalidTags(ids []string) error {
	return fmt.Errorf("%w: Invalid tag ids: [%s]", ErrInvalidTag, strings.Join(ids, ", "))
}
