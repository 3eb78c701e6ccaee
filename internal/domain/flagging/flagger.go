// Package flagging evaluates every cleaned transaction against a fixed set
// of suspicion rules and emits a flag record for each transaction that trips
// at least one. Flagging is a filter: a transaction with no triggered rules
// produces nothing.
package flagging

import (
	"context"
	"sort"

	"github.com/okian/finsift/internal/domain/model"
	"github.com/okian/finsift/internal/domain/stats"
	"github.com/okian/finsift/pkg/logger"
)

// BandLookup resolves a customer's risk band. A miss is not an error: the
// high-risk rule is simply skipped for that transaction.
type BandLookup interface {
	Band(customer string) (model.RiskBand, bool)
}

// BandLookupFunc adapts a function to the BandLookup interface.
type BandLookupFunc func(customer string) (model.RiskBand, bool)

// Band implements BandLookup.
func (f BandLookupFunc) Band(customer string) (model.RiskBand, bool) { return f(customer) }

// Option applies a configuration option to the Flagger.
type Option func(*Flagger)

// WithZThreshold sets the population z-score outlier threshold.
func WithZThreshold(z float64) Option {
	return func(f *Flagger) {
		if z > 0 {
			f.zThreshold = z
		}
	}
}

// WithNightWindow bounds the off-hours window as [start, end).
func WithNightWindow(start, end int) Option {
	return func(f *Flagger) {
		if start >= 0 && end > start {
			f.nightStart = start
			f.nightEnd = end
		}
	}
}

// WithVelocity configures the sliding window: more than max transactions by
// one account within window steps fires the velocity rule.
func WithVelocity(window, max int) Option {
	return func(f *Flagger) {
		if window > 0 && max > 0 {
			f.velocityWindow = window
			f.velocityMax = max
		}
	}
}

// WithStructuring configures the structuring rule: amounts within tolerance
// below threshold, at least minCount of them in the sliding window.
func WithStructuring(threshold, tolerance float64, minCount int) Option {
	return func(f *Flagger) {
		if threshold > 0 && tolerance > 0 && tolerance < 1 && minCount >= 2 {
			f.structuringThreshold = threshold
			f.structuringTolerance = tolerance
			f.structuringMinCount = minCount
		}
	}
}

// WithRuleWeights sets the per-reason suspicion-score contributions.
func WithRuleWeights(weights map[string]float64) Option {
	return func(f *Flagger) {
		f.ruleWeights = make(map[string]float64, len(weights))
		for code, w := range weights {
			f.ruleWeights[code] = w
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(f *Flagger) {
		if l != nil {
			f.logger = l
		}
	}
}

// Flagger is the anomaly-flagging stage.
type Flagger struct {
	zThreshold           float64
	nightStart           int
	nightEnd             int
	velocityWindow       int
	velocityMax          int
	structuringThreshold float64
	structuringTolerance float64
	structuringMinCount  int
	ruleWeights          map[string]float64
	logger               logger.Logger
}

// New creates a Flagger with configuration options.
func New(opts ...Option) *Flagger {
	f := &Flagger{
		zThreshold:           3.0,
		nightStart:           0,
		nightEnd:             6,
		velocityWindow:       5,
		velocityMax:          4,
		structuringThreshold: 10_000,
		structuringTolerance: 0.05,
		structuringMinCount:  3,
		ruleWeights: map[string]float64{
			model.ReasonAmountOutlier:    30,
			model.ReasonOffHours:         15,
			model.ReasonVelocity:         20,
			model.ReasonStructuring:      25,
			model.ReasonHighRiskCustomer: 30,
		},
		logger: logger.Get().Named("flagger"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Flag evaluates every transaction against the rule set. Output is sorted by
// suspicion score descending, ties by Seq ascending, so re-running over
// identical inputs reproduces identical records in identical order.
func (f *Flagger) Flag(ctx context.Context, txs []model.Transaction, bands BandLookup) ([]model.Flag, error) {
	if len(txs) == 0 {
		return nil, ErrEmptyInput
	}

	ecs := f.precompute(txs, bands)

	flags := make([]model.Flag, 0)
	for i, t := range txs {
		var score float64
		var reasons []string
		for _, r := range rules {
			if r.fire(f, t, ecs[i]) {
				score += f.ruleWeights[r.code]
				reasons = append(reasons, r.code)
			}
		}
		if len(reasons) == 0 {
			continue
		}
		flags = append(flags, model.Flag{
			Seq:            t.Seq,
			Customer:       t.Origin,
			Dest:           t.Dest,
			Step:           t.Step,
			Type:           t.Type,
			Amount:         t.Amount,
			SuspicionScore: score,
			Reasons:        reasons,
			Band:           ecs[i].band,
		})
	}

	sort.Slice(flags, func(i, j int) bool {
		if flags[i].SuspicionScore != flags[j].SuspicionScore {
			return flags[i].SuspicionScore > flags[j].SuspicionScore
		}
		return flags[i].Seq < flags[j].Seq
	})

	f.logger.Info(ctx, "flagging complete",
		logger.Int("transactions", len(txs)),
		logger.Int("flagged", len(flags)),
	)
	return flags, nil
}

// precompute builds one evalContext per transaction: the population amount
// z-scores, the band lookups, and the per-account sliding-window counts.
func (f *Flagger) precompute(txs []model.Transaction, bands BandLookup) []evalContext {
	ecs := make([]evalContext, len(txs))

	// Population z-scores over all amounts, computed once. Zero variance
	// means the outlier rule never fires.
	amounts := make([]float64, len(txs))
	for i, t := range txs {
		amounts[i] = t.Amount
	}
	zs := stats.ZScores(amounts)

	lo := f.structuringThreshold * (1 - f.structuringTolerance)
	for i, t := range txs {
		ecs[i].amountZ = zs[i]
		ecs[i].nearThreshold = t.Amount >= lo && t.Amount < f.structuringThreshold
		if bands != nil {
			if band, ok := bands.Band(t.Origin); ok {
				ecs[i].band = band
			}
		}
	}

	// Per-account passes, sorted by (step, seq): sliding-window counts for
	// velocity and for near-threshold structuring runs.
	type ref struct {
		idx  int
		step int
	}
	byAccount := make(map[string][]ref)
	for i, t := range txs {
		byAccount[t.Origin] = append(byAccount[t.Origin], ref{idx: i, step: t.Step})
	}

	for _, refs := range byAccount {
		sort.Slice(refs, func(a, b int) bool {
			if refs[a].step != refs[b].step {
				return refs[a].step < refs[b].step
			}
			return txs[refs[a].idx].Seq < txs[refs[b].idx].Seq
		})

		// Window (step-window, step]: advance the left edge as the right
		// edge walks forward.
		left := 0
		for right := 0; right < len(refs); right++ {
			for refs[left].step <= refs[right].step-f.velocityWindow {
				left++
			}
			ecs[refs[right].idx].windowCount = right - left + 1
		}

		// Same windowing over the near-threshold subset only.
		var near []ref
		for _, r := range refs {
			if ecs[r.idx].nearThreshold {
				near = append(near, r)
			}
		}
		left = 0
		for right := 0; right < len(near); right++ {
			for near[left].step <= near[right].step-f.velocityWindow {
				left++
			}
			ecs[near[right].idx].nearCount = right - left + 1
		}
	}

	return ecs
}
