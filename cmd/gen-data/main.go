// Command gen-data writes a deterministic synthetic transaction CSV for
// exercising the pipeline end to end.
package main

import (
	"flag"
	"os"

	"github.com/okian/finsift/internal/gendata"
)

func main() {
	var (
		out       = flag.String("out", "transactions.csv", "output CSV path")
		rows      = flag.Int("rows", 10_000, "baseline transaction rows")
		customers = flag.Int("customers", 500, "customer population size")
		days      = flag.Int("days", 30, "simulated period in days")
		seed      = flag.Int64("seed", 42, "RNG seed; equal seeds give identical files")
	)
	flag.Parse()

	f, err := os.Create(*out)
	if err != nil {
		os.Stderr.WriteString("cannot create output: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = f.Close() }()

	gen := gendata.New(
		gendata.WithRows(*rows),
		gendata.WithCustomers(*customers),
		gendata.WithDays(*days),
		gendata.WithSeed(*seed),
	)
	if err := gen.WriteCSV(f); err != nil {
		os.Stderr.WriteString("generation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
