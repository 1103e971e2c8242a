package store

import (
	"errors"
	"fmt"
)

// ErrUnavailable marks any failure talking to a backing store.
var ErrUnavailable = errors.New("storage unavailable")

// Unavailable wraps err so callers can match ErrUnavailable. It returns nil
// for a nil err.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
