package feature

import "errors"

// Sentinel kinds for feature-building errors.
var (
	// ErrEmptyInput is returned when there are no transactions to aggregate.
	// Terminal for the run.
	ErrEmptyInput = errors.New("feature builder: empty transaction table")
)
