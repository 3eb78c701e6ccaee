// Package model contains domain models passed between pipeline stages.
package model

// TxType is the transaction type taxonomy of the source data set.
type TxType string

// Known transaction types. Unknown values pass through cleaning unchanged.
const (
	TxTransfer TxType = "TRANSFER"
	TxCashOut  TxType = "CASH_OUT"
	TxCashIn   TxType = "CASH_IN"
	TxPayment  TxType = "PAYMENT"
	TxDebit    TxType = "DEBIT"
)

// Transaction is one cleaned transaction row. Rows are immutable once a
// stage hands them off; downstream stages only read them.
type Transaction struct {
	Seq         int     // original ingest order, tie-break for equal steps
	Step        int     // dataset time step, non-negative
	Type        TxType  // transaction type
	Amount      float64 // non-negative after cleaning
	Origin      string  // originating account id
	Dest        string  // destination account id
	OrigBefore  float64 // origin balance before, non-negative after cleaning
	OrigAfter   float64
	DestBefore  float64
	DestAfter   float64
	IsFraud     bool // ground-truth label, pass-through only
	FlaggedSrc  bool // upstream system flag, pass-through only
	Hour        int  // Step % StepsPerDay, derived by the cleaner
	Day         int  // Step / StepsPerDay, derived by the cleaner
}

// CustomerFeatures is the per-origin-account feature row built by the
// feature stage. Every field is finite; zero-division cases default to 0.
type CustomerFeatures struct {
	Customer           string
	TxCount            int
	UniqueRecipients   int
	TotalAmount        float64
	AvgAmount          float64
	MedianAmount       float64
	MaxAmount          float64
	StdAmount          float64 // sample std, 0 for a single transaction
	ActiveDays         int     // distinct Day values
	TxPerActiveDay     float64
	AmountPerActiveDay float64
	NightRatio         float64 // fraction of transactions in the night window
	WeekendRatio       float64 // fraction with Day % 7 >= 5
	Volatility         float64 // StdAmount / AvgAmount when AvgAmount > 0
	RollingMeanTrend   float64 // recent-window mean drift relative to overall mean
}

// RiskScore is the scored row for one customer.
type RiskScore struct {
	Customer   string
	Composite  float64 // weighted sum of standardized features
	Percentile float64 // average-rank percentile in [0,100]
	Band       RiskBand
}

// Reason codes emitted by the flagging rules, in evaluation order.
const (
	ReasonAmountOutlier    = "amount_outlier"
	ReasonOffHours         = "off_hours"
	ReasonVelocity         = "velocity"
	ReasonStructuring      = "structuring"
	ReasonHighRiskCustomer = "high_risk_customer"
)

// Flag records a transaction that triggered at least one rule. A transaction
// with no triggered rules produces no Flag.
type Flag struct {
	Seq            int // Seq of the source transaction
	Customer       string
	Dest           string
	Step           int
	Type           TxType
	Amount         float64
	SuspicionScore float64  // sum of triggered rule weights
	Reasons        []string // non-empty, rule evaluation order
	Band           RiskBand // zero value when no risk score was found for Customer
}

// HasReason reports whether the flag carries the given reason code.
func (f Flag) HasReason(code string) bool {
	for _, r := range f.Reasons {
		if r == code {
			return true
		}
	}
	return false
}
