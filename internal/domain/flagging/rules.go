package flagging

import (
	"github.com/okian/finsift/internal/domain/model"
)

// evalContext carries the precomputed per-transaction facts a rule may need.
// Rules never look at the full table; everything population-wide is computed
// once before evaluation.
type evalContext struct {
	amountZ       float64        // population z-score of the amount
	band          model.RiskBand // zero value when the risk-score lookup missed
	windowCount   int            // transactions by the origin in the sliding window ending here
	nearThreshold bool           // amount sits in the structuring band
	nearCount     int            // near-threshold transactions by the origin in the window
}

// rule is one independently evaluable predicate. fire must be pure.
type rule struct {
	code string
	fire func(f *Flagger, t model.Transaction, ec evalContext) bool
}

// rules is the fixed evaluation order; reason codes accumulate in this order.
var rules = []rule{
	{
		code: model.ReasonAmountOutlier,
		fire: func(f *Flagger, _ model.Transaction, ec evalContext) bool {
			return ec.amountZ > f.zThreshold
		},
	},
	{
		code: model.ReasonOffHours,
		fire: func(f *Flagger, t model.Transaction, _ evalContext) bool {
			return t.Hour >= f.nightStart && t.Hour < f.nightEnd
		},
	},
	{
		code: model.ReasonVelocity,
		fire: func(f *Flagger, _ model.Transaction, ec evalContext) bool {
			return ec.windowCount > f.velocityMax
		},
	},
	{
		code: model.ReasonStructuring,
		fire: func(f *Flagger, _ model.Transaction, ec evalContext) bool {
			return ec.nearThreshold && ec.nearCount >= f.structuringMinCount
		},
	},
	{
		code: model.ReasonHighRiskCustomer,
		fire: func(_ *Flagger, _ model.Transaction, ec evalContext) bool {
			// Skipped when the band lookup missed; a lookup gap never
			// blocks the transaction-level rules.
			return ec.band.AtLeast(model.BandHigh)
		},
	},
}
