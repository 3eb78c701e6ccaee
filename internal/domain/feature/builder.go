// Package feature aggregates cleaned transactions into one feature row per
// origin account. Per-group aggregates are commutative or computed over the
// complete group, so groups can be built in any order, or in parallel, with
// identical results.
package feature

import (
	"context"
	"sort"

	"github.com/okian/finsift/internal/domain/model"
	"github.com/okian/finsift/internal/domain/stats"
	"github.com/okian/finsift/pkg/logger"
)

// Option applies a configuration option to the Builder.
type Option func(*Builder)

// WithNightWindow bounds the night hours as [start, end).
func WithNightWindow(start, end int) Option {
	return func(b *Builder) {
		if start >= 0 && end > start {
			b.nightStart = start
			b.nightEnd = end
		}
	}
}

// WithRollingWindow sets the trailing transaction count for the rolling mean
// trend feature.
func WithRollingWindow(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.rollingWindow = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// Builder is the feature-aggregation stage.
type Builder struct {
	nightStart    int
	nightEnd      int
	rollingWindow int
	logger        logger.Logger
}

// New creates a Builder with configuration options.
func New(opts ...Option) *Builder {
	b := &Builder{
		nightStart:    0,
		nightEnd:      6,
		rollingWindow: 5,
		logger:        logger.Get().Named("feature"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Group partitions transactions by origin account. Slice order within a
// group follows input order; BuildGroup re-sorts by step regardless.
func Group(txs []model.Transaction) map[string][]model.Transaction {
	groups := make(map[string][]model.Transaction)
	for _, t := range txs {
		groups[t.Origin] = append(groups[t.Origin], t)
	}
	return groups
}

// Build produces exactly one feature row per distinct origin account, in no
// particular order. An empty input is a terminal error for the run.
func (b *Builder) Build(ctx context.Context, txs []model.Transaction) ([]model.CustomerFeatures, error) {
	if len(txs) == 0 {
		return nil, ErrEmptyInput
	}

	groups := Group(txs)
	out := make([]model.CustomerFeatures, 0, len(groups))
	for customer, group := range groups {
		out = append(out, b.BuildGroup(customer, group))
	}

	b.logger.Info(ctx, "features built",
		logger.Int("customers", len(out)),
		logger.Int("transactions", len(txs)),
	)
	return out, nil
}

// BuildGroup computes the feature row for one account's transactions. It is
// pure: the input slice is not modified and the result depends only on the
// group's contents. The group must be non-empty.
func (b *Builder) BuildGroup(customer string, group []model.Transaction) model.CustomerFeatures {
	ordered := make([]model.Transaction, len(group))
	copy(ordered, group)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Step != ordered[j].Step {
			return ordered[i].Step < ordered[j].Step
		}
		return ordered[i].Seq < ordered[j].Seq
	})

	amounts := make([]float64, len(ordered))
	recipients := make(map[string]struct{}, len(ordered))
	days := make(map[int]struct{})
	var nightCount, weekendCount int
	for i, t := range ordered {
		amounts[i] = t.Amount
		recipients[t.Dest] = struct{}{}
		days[t.Day] = struct{}{}
		if t.Hour >= b.nightStart && t.Hour < b.nightEnd {
			nightCount++
		}
		if t.Day%7 >= 5 {
			weekendCount++
		}
	}

	count := len(ordered)
	row := model.CustomerFeatures{
		Customer:         customer,
		TxCount:          count,
		UniqueRecipients: len(recipients),
		TotalAmount:      sum(amounts),
		AvgAmount:        stats.Mean(amounts),
		MedianAmount:     stats.Median(amounts),
		MaxAmount:        maxOf(amounts),
		StdAmount:        stats.StdDev(amounts),
		ActiveDays:       len(days),
	}

	// Velocity denominators guard against zero active days.
	activeDays := float64(row.ActiveDays)
	if activeDays < 1 {
		activeDays = 1
	}
	row.TxPerActiveDay = float64(count) / activeDays
	row.AmountPerActiveDay = row.TotalAmount / activeDays

	row.NightRatio = float64(nightCount) / float64(count)
	row.WeekendRatio = float64(weekendCount) / float64(count)

	if row.AvgAmount > 0 {
		row.Volatility = row.StdAmount / row.AvgAmount

		window := b.rollingWindow
		if window > count {
			window = count
		}
		recent := stats.Mean(amounts[count-window:])
		row.RollingMeanTrend = (recent - row.AvgAmount) / row.AvgAmount
	}

	return row
}

func sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}

func maxOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}
