// Package report serializes the pipeline's output tables into the flat-file
// reports consumed downstream: a flagged-transaction CSV, a customer risk
// summary CSV, and a human-readable text digest. The core stages never
// format output; everything presentational lives here.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/okian/finsift/internal/adapters/riskindex"
	"github.com/okian/finsift/internal/domain/model"
	"github.com/okian/finsift/pkg/logger"
)

const (
	flaggedFile = "flagged_transactions.csv"
	summaryFile = "customer_risk_summary.csv"
	digestFile  = "report.txt"

	topRiskiest = 5
)

// Input bundles everything a report run needs. All tables are read-only.
type Input struct {
	RunID             string
	GeneratedAt       time.Time
	TotalTransactions int
	Flags             []model.Flag     // sorted by suspicion score desc
	Index             *riskindex.Index // ranked customer snapshot
}

// Writer emits the report files into a target directory.
type Writer struct {
	outputDir string
	logger    logger.Logger
}

// Option applies a configuration option to the Writer.
type Option func(*Writer)

// WithOutputDir sets the report target directory.
func WithOutputDir(dir string) Option {
	return func(w *Writer) {
		if dir != "" {
			w.outputDir = dir
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWriter creates a Writer with configuration options.
func NewWriter(opts ...Option) *Writer {
	w := &Writer{
		outputDir: "reports",
		logger:    logger.Get().Named("report"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Generate writes all three reports.
func (w *Writer) Generate(ctx context.Context, in Input) error {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := w.writeFlagged(in); err != nil {
		return err
	}
	if err := w.writeSummary(ctx, in); err != nil {
		return err
	}
	if err := w.writeDigest(ctx, in); err != nil {
		return err
	}
	w.logger.Info(ctx, "reports generated",
		logger.String("dir", w.outputDir),
		logger.Int("flags", len(in.Flags)),
	)
	return nil
}

func (w *Writer) writeFlagged(in Input) error {
	f, err := os.Create(filepath.Join(w.outputDir, flaggedFile))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	defer func() { _ = f.Close() }()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if err := cw.Write([]string{
		"seq", "step", "type", "amount", "nameOrig", "nameDest",
		"suspicion_score", "reasons", "risk_band",
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	for _, fl := range in.Flags {
		if err := cw.Write([]string{
			strconv.Itoa(fl.Seq),
			strconv.Itoa(fl.Step),
			string(fl.Type),
			money(fl.Amount),
			fl.Customer,
			fl.Dest,
			strconv.FormatFloat(fl.SuspicionScore, 'f', 2, 64),
			strings.Join(fl.Reasons, ";"),
			string(fl.Band),
		}); err != nil {
			return fmt.Errorf("%w: %v", ErrWrite, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (w *Writer) writeSummary(ctx context.Context, in Input) error {
	f, err := os.Create(filepath.Join(w.outputDir, summaryFile))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	defer func() { _ = f.Close() }()

	flaggedCounts := make(map[string]int)
	for _, fl := range in.Flags {
		flaggedCounts[fl.Customer]++
	}

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if err := cw.Write([]string{
		"customer_id", "rank", "composite_score", "percentile", "risk_band", "flagged_transactions",
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	for _, e := range in.Index.All(ctx) {
		if err := cw.Write([]string{
			e.Customer,
			strconv.Itoa(e.Rank),
			strconv.FormatFloat(e.Composite, 'f', 6, 64),
			strconv.FormatFloat(e.Percentile, 'f', 2, 64),
			string(e.Band),
			strconv.Itoa(flaggedCounts[e.Customer]),
		}); err != nil {
			return fmt.Errorf("%w: %v", ErrWrite, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (w *Writer) writeDigest(ctx context.Context, in Input) error {
	f, err := os.Create(filepath.Join(w.outputDir, digestFile))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	defer func() { _ = f.Close() }()

	var b strings.Builder
	rule := strings.Repeat("=", 72)
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "TRANSACTION RISK & ANOMALY ANALYSIS REPORT")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Run:       %s\n", in.RunID)
	fmt.Fprintf(&b, "Generated: %s\n", in.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b)

	total := in.Index.Count(ctx)
	fmt.Fprintf(&b, "Transactions analyzed: %d\n", in.TotalTransactions)
	fmt.Fprintf(&b, "Customers scored:      %d\n", total)
	pct := 0.0
	if in.TotalTransactions > 0 {
		pct = float64(len(in.Flags)) / float64(in.TotalTransactions) * 100
	}
	fmt.Fprintf(&b, "Flagged transactions:  %d (%.2f%%)\n\n", len(in.Flags), pct)

	fmt.Fprintln(&b, "Risk band distribution:")
	bandCounts := make(map[model.RiskBand]int)
	for _, e := range in.Index.All(ctx) {
		bandCounts[e.Band]++
	}
	for _, band := range []model.RiskBand{model.BandLow, model.BandMedium, model.BandHigh, model.BandCritical} {
		n := bandCounts[band]
		share := 0.0
		if total > 0 {
			share = float64(n) / float64(total) * 100
		}
		fmt.Fprintf(&b, "  %-8s %6d (%5.1f%%)\n", band, n, share)
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "Top riskiest customers:")
	top, err := in.Index.TopN(ctx, topRiskiest)
	if err == nil {
		for _, e := range top {
			fmt.Fprintf(&b, "  #%-3d %-16s percentile %6.2f  band %s\n",
				e.Rank, e.Customer, e.Percentile, e.Band)
		}
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "Suspicion reasons:")
	reasonCounts := make(map[string]int)
	for _, fl := range in.Flags {
		for _, r := range fl.Reasons {
			reasonCounts[r]++
		}
	}
	for _, code := range []string{
		model.ReasonAmountOutlier, model.ReasonOffHours, model.ReasonVelocity,
		model.ReasonStructuring, model.ReasonHighRiskCustomer,
	} {
		fmt.Fprintf(&b, "  %-20s %6d\n", code, reasonCounts[code])
	}
	fmt.Fprintln(&b)

	if len(in.Flags) > 0 {
		fmt.Fprintln(&b, "Most suspicious transactions:")
		limit := topRiskiest
		if limit > len(in.Flags) {
			limit = len(in.Flags)
		}
		for _, fl := range in.Flags[:limit] {
			fmt.Fprintf(&b, "  step %-6d %-10s %12s  score %6.1f  %s\n",
				fl.Step, fl.Type, money(fl.Amount), fl.SuspicionScore, strings.Join(fl.Reasons, ";"))
		}
	}

	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

// money renders an amount with exact two-decimal formatting.
func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
