// Package scoring converts customer feature rows into composite risk scores
// and discrete risk bands.
//
// Scoring is a two-pass computation: population statistics first (per-feature
// mean and std for standardization, then percentile ranks of the composite),
// row evaluation second. The result depends only on the population, never on
// row order.
package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/okian/finsift/internal/domain/model"
	"github.com/okian/finsift/internal/domain/stats"
	"github.com/okian/finsift/pkg/logger"
)

const weightSumTolerance = 1e-9

// featureColumns maps configurable feature names to their accessors on the
// feature row. A weight naming anything else is a configuration error.
var featureColumns = map[string]func(model.CustomerFeatures) float64{
	"transaction_count":     func(f model.CustomerFeatures) float64 { return float64(f.TxCount) },
	"unique_recipients":     func(f model.CustomerFeatures) float64 { return float64(f.UniqueRecipients) },
	"total_amount":          func(f model.CustomerFeatures) float64 { return f.TotalAmount },
	"avg_amount":            func(f model.CustomerFeatures) float64 { return f.AvgAmount },
	"median_amount":         func(f model.CustomerFeatures) float64 { return f.MedianAmount },
	"max_amount":            func(f model.CustomerFeatures) float64 { return f.MaxAmount },
	"std_amount":            func(f model.CustomerFeatures) float64 { return f.StdAmount },
	"tx_per_active_day":     func(f model.CustomerFeatures) float64 { return f.TxPerActiveDay },
	"amount_per_active_day": func(f model.CustomerFeatures) float64 { return f.AmountPerActiveDay },
	"night_ratio":           func(f model.CustomerFeatures) float64 { return f.NightRatio },
	"weekend_ratio":         func(f model.CustomerFeatures) float64 { return f.WeekendRatio },
	"volatility":            func(f model.CustomerFeatures) float64 { return f.Volatility },
	"rolling_mean_trend":    func(f model.CustomerFeatures) float64 { return f.RollingMeanTrend },
}

// KnownFeatures returns the feature names a weight map may reference, sorted.
func KnownFeatures() []string {
	names := make([]string, 0, len(featureColumns))
	for name := range featureColumns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithWeights sets the feature weight map. Weights must be non-negative and
// sum to 1; every name must exist in the feature schema.
func WithWeights(weights map[string]float64) Option {
	return func(s *Scorer) {
		s.weights = make(map[string]float64, len(weights))
		for name, w := range weights {
			s.weights[name] = w
		}
	}
}

// WithBandCuts sets the percentile cut points for Medium, High, and Critical.
func WithBandCuts(medium, high, critical float64) Option {
	return func(s *Scorer) {
		s.cutMedium = medium
		s.cutHigh = high
		s.cutCritical = critical
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scorer) {
		if l != nil {
			s.logger = l
		}
	}
}

// Scorer is the risk-scoring stage.
type Scorer struct {
	weights     map[string]float64
	cutMedium   float64
	cutHigh     float64
	cutCritical float64
	logger      logger.Logger
}

// New creates a Scorer and validates its configuration. Weight or cut-point
// problems are reported here, before any scoring occurs.
func New(opts ...Option) (*Scorer, error) {
	s := &Scorer{
		cutMedium:   75,
		cutHigh:     90,
		cutCritical: 95,
		logger:      logger.Get().Named("scorer"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if len(s.weights) == 0 {
		return nil, fmt.Errorf("%w: weight map is empty", ErrInvalidWeights)
	}
	var sum float64
	for name, w := range s.weights {
		if _, ok := featureColumns[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, name)
		}
		if w < 0 {
			return nil, fmt.Errorf("%w: negative weight %g for %q", ErrInvalidWeights, w, name)
		}
		sum += w
	}
	if math.Abs(sum-1) > weightSumTolerance {
		return nil, fmt.Errorf("%w: weights sum to %g, want 1", ErrInvalidWeights, sum)
	}
	if !(s.cutMedium > 0 && s.cutMedium < s.cutHigh && s.cutHigh < s.cutCritical && s.cutCritical <= 100) {
		return nil, fmt.Errorf("%w: %g/%g/%g", ErrInvalidCuts, s.cutMedium, s.cutHigh, s.cutCritical)
	}
	return s, nil
}

// Score produces one risk score row per input feature row, in input order.
// The same input always yields the same output.
func (s *Scorer) Score(ctx context.Context, features []model.CustomerFeatures) ([]model.RiskScore, error) {
	if len(features) == 0 {
		return nil, ErrEmptyInput
	}

	n := len(features)
	composite := make([]float64, n)

	// Pass 1: standardize each weighted feature column over the full
	// population and fold it into the composite. A zero-variance column
	// contributes 0 for every customer. Iterate names in sorted order so
	// floating-point accumulation is reproducible across runs.
	names := make([]string, 0, len(s.weights))
	for name := range s.weights {
		names = append(names, name)
	}
	sort.Strings(names)

	column := make([]float64, n)
	for _, name := range names {
		accessor := featureColumns[name]
		weight := s.weights[name]
		for i, f := range features {
			column[i] = stats.Finite(accessor(f), 0)
		}
		for i, z := range stats.ZScores(column) {
			composite[i] += weight * z
		}
	}

	// Pass 2: percentile ranks of the composite, then band assignment.
	percentiles := stats.PercentileRanks(composite)

	out := make([]model.RiskScore, n)
	for i, f := range features {
		out[i] = model.RiskScore{
			Customer:   f.Customer,
			Composite:  composite[i],
			Percentile: percentiles[i],
			Band:       s.band(percentiles[i]),
		}
	}

	s.logger.Info(ctx, "risk scores computed", logger.Int("customers", n))
	return out, nil
}

// band assigns the risk band for a percentile. The cuts partition [0,100]
// with no gaps or overlaps.
func (s *Scorer) band(pct float64) model.RiskBand {
	switch {
	case pct >= s.cutCritical:
		return model.BandCritical
	case pct >= s.cutHigh:
		return model.BandHigh
	case pct >= s.cutMedium:
		return model.BandMedium
	default:
		return model.BandLow
	}
}
