package ingest

import "errors"

// Sentinel kinds for ingest errors. All are terminal for the run.
var (
	ErrOpenInput     = errors.New("ingest: cannot open input")
	ErrMissingColumn = errors.New("ingest: required column missing")
	ErrBadRow        = errors.New("ingest: malformed row")
	ErrEmptyInput    = errors.New("ingest: input has no data rows")
)
