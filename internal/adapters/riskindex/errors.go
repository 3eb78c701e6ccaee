package riskindex

import "errors"

// Sentinel kinds for risk index errors.
var (
	ErrNotFound     = errors.New("customer not found")
	ErrInvalidLimit = errors.New("invalid top-n limit")
)
