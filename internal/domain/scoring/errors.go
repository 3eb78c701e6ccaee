package scoring

import "errors"

// Sentinel kinds for scoring errors. Configuration problems surface at New
// so a bad weight map never reaches the scoring pass.
var (
	ErrInvalidWeights = errors.New("scorer: invalid score weights")
	ErrUnknownFeature = errors.New("scorer: weight names a feature absent from the schema")
	ErrInvalidCuts    = errors.New("scorer: invalid band cut points")
	ErrEmptyInput     = errors.New("scorer: empty feature table")
)
