package catalog

import "errors"

var (
	// ErrNotFound is returned when an API identifier resolves to nothing.
	ErrNotFound = errors.New("catalog: api not found")
)
