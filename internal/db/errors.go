package db

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a profile does not exist.
	ErrNotFound = errors.New("profile not found")
	// ErrProtectedRecord is returned for attempts to delete or overwrite the
	// reserved self alias.
	ErrProtectedRecord = errors.New("cannot modify the self profile through the profile API")
)

// StorageError wraps a persistence read or write failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrProtectedRecord) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
