// Package cleaner normalizes and validates the raw transaction table before
// any analysis runs. It is the first pipeline stage and the only one that
// drops rows; everything downstream can rely on its output invariants:
// amount >= 0, balances >= 0, non-blank account ids, derived Hour/Day set,
// no exact-duplicate rows.
package cleaner

import (
	"context"
	"math"

	"github.com/okian/finsift/internal/domain/dedupe"
	"github.com/okian/finsift/internal/domain/model"
	"github.com/okian/finsift/pkg/logger"
)

const unknownAccount = "UNKNOWN"

// Report summarizes what cleaning did to the input table.
type Report struct {
	RowsIn            int
	DroppedInvalid    int // negative/NaN amount or negative step
	DroppedDuplicates int
	ClampedBalances   int // rows with at least one negative balance clamped to 0
	FilledAccounts    int // rows with a blank account id filled with UNKNOWN
	RowsOut           int
}

// Option applies a configuration option to the Cleaner.
type Option func(*Cleaner)

// WithStepsPerDay sets the step-to-day conversion used for the derived
// Hour and Day fields.
func WithStepsPerDay(n int) Option {
	return func(c *Cleaner) {
		if n > 0 {
			c.stepsPerDay = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Cleaner) {
		if l != nil {
			c.logger = l
		}
	}
}

// Cleaner is the stage implementation. It holds configuration only; Clean
// itself is a pure transformation of its input slice.
type Cleaner struct {
	stepsPerDay int
	logger      logger.Logger
}

// New creates a Cleaner with configuration options.
func New(opts ...Option) *Cleaner {
	c := &Cleaner{
		stepsPerDay: 24,
		logger:      logger.Get().Named("cleaner"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clean validates and normalizes rows, returning a fresh slice. The input is
// never mutated. An empty input is a terminal error for the run.
func (c *Cleaner) Clean(ctx context.Context, rows []model.Transaction) ([]model.Transaction, Report, error) {
	rep := Report{RowsIn: len(rows)}
	if len(rows) == 0 {
		return nil, rep, ErrEmptyInput
	}

	deduper := dedupe.NewInMemoryDeduper(dedupe.WithSizeHint(len(rows)))
	out := make([]model.Transaction, 0, len(rows))

	for _, row := range rows {
		if row.Step < 0 || row.Amount < 0 || math.IsNaN(row.Amount) || math.IsInf(row.Amount, 0) {
			rep.DroppedInvalid++
			continue
		}

		clamped := false
		for _, b := range []*float64{&row.OrigBefore, &row.OrigAfter, &row.DestBefore, &row.DestAfter} {
			if *b < 0 || math.IsNaN(*b) {
				*b = 0
				clamped = true
			}
		}
		if clamped {
			rep.ClampedBalances++
		}

		filled := false
		if row.Origin == "" {
			row.Origin = unknownAccount
			filled = true
		}
		if row.Dest == "" {
			row.Dest = unknownAccount
			filled = true
		}
		if filled {
			rep.FilledAccounts++
		}

		if deduper.SeenAndRecord(ctx, dedupe.Fingerprint(row)) {
			rep.DroppedDuplicates++
			continue
		}

		row.Hour = row.Step % c.stepsPerDay
		row.Day = row.Step / c.stepsPerDay
		out = append(out, row)
	}

	rep.RowsOut = len(out)
	c.logger.Info(ctx, "cleaning complete",
		logger.Int("rows_in", rep.RowsIn),
		logger.Int("rows_out", rep.RowsOut),
		logger.Int("dropped_invalid", rep.DroppedInvalid),
		logger.Int("dropped_duplicates", rep.DroppedDuplicates),
	)
	return out, rep, nil
}
