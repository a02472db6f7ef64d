package store

import (
	"errors"
	"fmt"
)

// ErrStorage is matched by every StorageError via errors.Is
var ErrStorage = errors.New("storage error")

// StorageError reports a missing, unreadable or malformed backing file.
// It is fatal to an enrichment run.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrStorage) true for any StorageError
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

func storageErr(op, path string, err error) error {
	return &StorageError{Op: op, Path: path, Err: err}
}
