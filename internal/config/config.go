// Package config defines pipeline configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load layers file and env.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// BandCuts holds the percentile cut points that partition the risk bands:
// Low [0,Medium), Medium [Medium,High), High [High,Critical),
// Critical [Critical,100].
type BandCuts struct {
	Medium   float64 `koanf:"medium"`
	High     float64 `koanf:"high"`
	Critical float64 `koanf:"critical"`
}

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// MetricsAddr exposes /metrics while a run is in flight. Empty disables
	// the listener; collection still happens in-process.
	MetricsAddr string `koanf:"metrics_addr"`

	// Input is the transaction CSV path.
	Input string `koanf:"input"`

	// OutputDir receives the generated reports.
	OutputDir string `koanf:"output_dir"`

	// StepsPerDay converts dataset steps into hours and days.
	StepsPerDay int `koanf:"steps_per_day"`

	// NightStart and NightEnd bound the night window as hours,
	// [NightStart, NightEnd).
	NightStart int `koanf:"night_start"`
	NightEnd   int `koanf:"night_end"`

	// RollingWindow is the trailing transaction count for the rolling mean
	// trend feature.
	RollingWindow int `koanf:"rolling_window"`

	// WorkerCount sets the number of feature-aggregation workers. Values
	// below 2 run aggregation inline.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory group work queue.
	QueueSize int `koanf:"queue_size"`

	// ZScoreThreshold is the population z-score above which an amount is an
	// outlier.
	ZScoreThreshold float64 `koanf:"zscore_threshold"`

	// VelocityWindow and VelocityMax configure the velocity rule: more than
	// VelocityMax transactions within a VelocityWindow-step sliding window
	// fires the rule.
	VelocityWindow int `koanf:"velocity_window"`
	VelocityMax    int `koanf:"velocity_max"`

	// StructuringThreshold is the reporting threshold; amounts within
	// StructuringTolerance below it count toward a structuring pattern of at
	// least StructuringMinCount such transactions inside the velocity window.
	StructuringThreshold float64 `koanf:"structuring_threshold"`
	StructuringTolerance float64 `koanf:"structuring_tolerance"`
	StructuringMinCount  int     `koanf:"structuring_min_count"`

	// RuleWeights maps flagging reason codes to their suspicion-score
	// contributions.
	RuleWeights map[string]float64 `koanf:"rule_weights"`

	// ScoreWeights maps feature names to composite-score weights. Weights
	// must sum to 1; a feature without a weight is excluded from scoring.
	ScoreWeights map[string]float64 `koanf:"score_weights"`

	// Bands holds the percentile cut points for risk band assignment.
	Bands BandCuts `koanf:"band_cuts"`
}

// New creates a Config with defaults mirroring the reference rule set.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		OutputDir:            "reports",
		StepsPerDay:          24,
		NightStart:           0,
		NightEnd:             6,
		RollingWindow:        5,
		WorkerCount:          runtime.NumCPU(),
		QueueSize:            1024,
		ZScoreThreshold:      3.0,
		VelocityWindow:       5,
		VelocityMax:          4,
		StructuringThreshold: 10_000,
		StructuringTolerance: 0.05,
		StructuringMinCount:  3,
		RuleWeights: map[string]float64{
			"amount_outlier":     30,
			"off_hours":          15,
			"velocity":           20,
			"structuring":        25,
			"high_risk_customer": 30,
		},
		ScoreWeights: map[string]float64{
			"total_amount":          0.15,
			"avg_amount":            0.10,
			"max_amount":            0.10,
			"transaction_count":     0.08,
			"tx_per_active_day":     0.12,
			"amount_per_active_day": 0.12,
			"unique_recipients":     0.08,
			"night_ratio":           0.12,
			"volatility":            0.09,
			"weekend_ratio":         0.04,
		},
		Bands: BandCuts{
			Medium:   75,
			High:     90,
			Critical: 95,
		},
	}
}
