package storage

import "errors"

// ErrNilRecord is returned when Put is called without a record.
var ErrNilRecord = errors.New("cannot store nil record")

// ErrDuplicateRecord is returned when a record ID is already stored.
var ErrDuplicateRecord = errors.New("record already exists")

// NotFoundError is returned when a record doesn't exist in the store.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return "record not found"
	}

	return "record not found: " + e.ID
}
