// Package gendata produces deterministic synthetic transaction CSVs in the
// source data set's shape. Besides baseline traffic it injects the anomaly
// patterns the pipeline is meant to catch (outlier amounts, night bursts,
// structuring runs) so a generated file exercises every flagging rule.
package gendata

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"
)

// Default generation constants.
const (
	defaultRows      = 10_000
	defaultCustomers = 500
	defaultDays      = 30
	defaultSeed      = 42

	stepsPerDay         = 24
	structuringCeiling  = 10_000.0
	outlierMultiplier   = 80.0
	burstLength         = 6
	structuringRunLen   = 4
	anomalyCustomerStep = 50 // every Nth customer gets an injected pattern
)

var txTypes = []string{"PAYMENT", "TRANSFER", "CASH_OUT", "CASH_IN", "DEBIT"}

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithRows sets the number of baseline rows.
func WithRows(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.rows = n
		}
	}
}

// WithCustomers sets the customer population size.
func WithCustomers(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.customers = n
		}
	}
}

// WithDays sets the simulated period length.
func WithDays(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.days = n
		}
	}
}

// WithSeed sets the RNG seed; equal seeds produce identical files.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// Generator emits synthetic transaction tables.
type Generator struct {
	rows      int
	customers int
	days      int
	seed      int64
}

// New creates a Generator with configuration options.
func New(opts ...Option) *Generator {
	g := &Generator{
		rows:      defaultRows,
		customers: defaultCustomers,
		days:      defaultDays,
		seed:      defaultSeed,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// WriteCSV writes the generated table to w, header included.
func (g *Generator) WriteCSV(w io.Writer) error {
	rng := rand.New(rand.NewSource(g.seed)) //nolint:gosec // deterministic seed for reproducible data

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"step", "type", "amount", "nameOrig", "oldbalanceOrg", "newbalanceOrig",
		"nameDest", "oldbalanceDest", "newbalanceDest", "isFraud", "isFlaggedFraud",
	}); err != nil {
		return err
	}

	maxStep := g.days * stepsPerDay

	writeRow := func(step int, typ string, amount float64, orig, dest string) error {
		before := amount * (1 + rng.Float64()*4)
		return cw.Write([]string{
			strconv.Itoa(step),
			typ,
			strconv.FormatFloat(amount, 'f', 2, 64),
			orig,
			strconv.FormatFloat(before, 'f', 2, 64),
			strconv.FormatFloat(before-amount, 'f', 2, 64),
			dest,
			"0.00",
			strconv.FormatFloat(amount, 'f', 2, 64),
			"0",
			"0",
		})
	}

	// Baseline traffic: daytime-skewed steps, log-normal-ish amounts.
	for i := 0; i < g.rows; i++ {
		cust := g.customer(rng.Intn(g.customers))
		step := rng.Intn(maxStep)
		if step%stepsPerDay < 6 && rng.Float64() < 0.8 {
			step += 8 // push most traffic out of the night window
		}
		amount := math.Exp(rng.NormFloat64()*0.8) * 500
		if err := writeRow(step%maxStep, txTypes[rng.Intn(len(txTypes))], amount, cust, g.counterparty(rng)); err != nil {
			return err
		}
	}

	// Injected patterns, one per anomaly customer.
	for c := 0; c < g.customers; c += anomalyCustomerStep {
		cust := g.customer(c)
		base := rng.Intn(maxStep - stepsPerDay)

		switch (c / anomalyCustomerStep) % 3 {
		case 0: // outlier amount
			if err := writeRow(base+12, "TRANSFER", outlierMultiplier*structuringCeiling, cust, g.counterparty(rng)); err != nil {
				return err
			}
		case 1: // night burst: many transactions in a tight window
			for k := 0; k < burstLength; k++ {
				night := base - base%stepsPerDay + rng.Intn(5)
				amount := math.Exp(rng.NormFloat64()*0.5) * 400
				if err := writeRow(night, "CASH_OUT", amount, cust, g.counterparty(rng)); err != nil {
					return err
				}
			}
		default: // structuring run just under the reporting ceiling
			for k := 0; k < structuringRunLen; k++ {
				amount := structuringCeiling * (0.955 + rng.Float64()*0.04)
				if err := writeRow(base+10+k, "TRANSFER", amount, cust, g.counterparty(rng)); err != nil {
					return err
				}
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func (g *Generator) customer(i int) string {
	return fmt.Sprintf("C%09d", i+1)
}

func (g *Generator) counterparty(rng *rand.Rand) string {
	if rng.Float64() < 0.4 {
		return fmt.Sprintf("M%09d", rng.Intn(g.customers)+1)
	}
	return g.customer(rng.Intn(g.customers))
}
