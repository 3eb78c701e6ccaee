// Package ingest loads the PaySim-style transaction CSV into the in-memory
// table the pipeline consumes. It owns schema validation: column presence is
// checked against the header, monetary fields are parsed exactly as decimals
// before conversion, and a malformed value aborts the run naming the row and
// column.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/okian/finsift/internal/domain/model"
	"github.com/okian/finsift/pkg/logger"
	"github.com/okian/finsift/pkg/metrics"
)

// Column names of the source data set.
const (
	colStep       = "step"
	colType       = "type"
	colAmount     = "amount"
	colOrig       = "nameOrig"
	colOrigBefore = "oldbalanceOrg"
	colOrigAfter  = "newbalanceOrig"
	colDest       = "nameDest"
	colDestBefore = "oldbalanceDest"
	colDestAfter  = "newbalanceDest"
	colIsFraud    = "isFraud"
	colFlagged    = "isFlaggedFraud"
)

var requiredColumns = []string{colStep, colType, colAmount, colOrig, colDest}

// Loader reads transaction tables from CSV files.
type Loader struct {
	logger logger.Logger
}

// Option applies a configuration option to the Loader.
type Option func(*Loader)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// NewLoader creates a Loader with configuration options.
func NewLoader(opts ...Option) *Loader {
	ld := &Loader{logger: logger.Get().Named("ingest")}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// LoadFile reads a transaction CSV from disk.
func (ld *Loader) LoadFile(ctx context.Context, path string) ([]model.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenInput, err)
	}
	defer func() { _ = f.Close() }()
	return ld.Load(ctx, f)
}

// Load reads a transaction CSV from r. Rows are assigned ascending Seq in
// input order; rows with a blank amount are skipped and counted, any other
// malformed value is terminal.
func (ld *Loader) Load(ctx context.Context, r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrOpenInput, err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
	}

	var (
		txs     []model.Transaction
		skipped int
		rowNum  = 1 // header was row 1
	)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrBadRow, rowNum, err)
		}

		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		if field(colAmount) == "" {
			skipped++
			continue
		}

		step, err := strconv.Atoi(field(colStep))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d, column %s: %v", ErrBadRow, rowNum, colStep, err)
		}

		amount, err := parseMoney(field(colAmount))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d, column %s: %v", ErrBadRow, rowNum, colAmount, err)
		}

		t := model.Transaction{
			Seq:    len(txs),
			Step:   step,
			Type:   model.TxType(strings.ToUpper(field(colType))),
			Amount: amount,
			Origin: field(colOrig),
			Dest:   field(colDest),
		}
		for _, bal := range []struct {
			col string
			dst *float64
		}{
			{colOrigBefore, &t.OrigBefore},
			{colOrigAfter, &t.OrigAfter},
			{colDestBefore, &t.DestBefore},
			{colDestAfter, &t.DestAfter},
		} {
			raw := field(bal.col)
			if raw == "" {
				continue
			}
			v, err := parseMoney(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d, column %s: %v", ErrBadRow, rowNum, bal.col, err)
			}
			*bal.dst = v
		}
		t.IsFraud = field(colIsFraud) == "1"
		t.FlaggedSrc = field(colFlagged) == "1"

		txs = append(txs, t)
	}

	if len(txs) == 0 {
		return nil, ErrEmptyInput
	}

	metrics.RecordRowsIngested(len(txs))
	metrics.RecordRowsDropped("blank_amount", skipped)
	ld.logger.Info(ctx, "transactions loaded",
		logger.Int("rows", len(txs)),
		logger.Int("skipped_blank_amount", skipped),
	)
	return txs, nil
}

// parseMoney parses a monetary field through decimal so values like
// "9839.64" survive exactly, then converts for the statistical stages.
func parseMoney(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}
