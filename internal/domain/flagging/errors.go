package flagging

import "errors"

// Sentinel kinds for flagging errors.
var (
	// ErrEmptyInput is returned when there are no transactions to evaluate.
	// Terminal for the run.
	ErrEmptyInput = errors.New("flagger: empty transaction table")
)
