package docstore

import (
	"errors"

	"santiye/internal/events"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrStoreClosed = errors.New("store is closed")
)

// IsPermissionDenied reports whether err is an authorization failure
// raised by the store.
func IsPermissionDenied(err error) bool {
	var pe *events.PermissionError
	return errors.As(err, &pe)
}
