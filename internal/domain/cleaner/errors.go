package cleaner

import "errors"

// Sentinel kinds for cleaning errors.
var (
	// ErrEmptyInput is returned when the cleaner receives no rows at all.
	// Terminal for the run.
	ErrEmptyInput = errors.New("cleaner: empty transaction table")
)
