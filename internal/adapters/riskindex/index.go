// Package riskindex provides a read-only ranked view over the risk-score
// table. The index is built once after scoring and never mutated: the
// pipeline's score rows are write-once, so the index is a sorted snapshot
// plus a key lookup, giving O(1) band lookups for the flagger and O(1) TopN
// slices for reporting.
package riskindex

import (
	"context"
	"sort"

	"github.com/okian/finsift/internal/domain/model"
)

// Entry is one ranked row of the index.
type Entry struct {
	Rank       int // 1-based, highest percentile first
	Customer   string
	Composite  float64
	Percentile float64
	Band       model.RiskBand
}

// Index is the ranked, keyed snapshot of a scored customer population.
type Index struct {
	ranked []Entry          // sorted by percentile desc, customer asc
	byID   map[string]Entry // customer -> entry
}

// Build constructs the index from score rows. Ties on percentile are ordered
// by customer id so the ranking is deterministic.
func Build(_ context.Context, scores []model.RiskScore) *Index {
	ranked := make([]Entry, len(scores))
	for i, s := range scores {
		ranked[i] = Entry{
			Customer:   s.Customer,
			Composite:  s.Composite,
			Percentile: s.Percentile,
			Band:       s.Band,
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Percentile != ranked[j].Percentile {
			return ranked[i].Percentile > ranked[j].Percentile
		}
		return ranked[i].Customer < ranked[j].Customer
	})

	byID := make(map[string]Entry, len(ranked))
	for i := range ranked {
		ranked[i].Rank = i + 1
		byID[ranked[i].Customer] = ranked[i]
	}
	return &Index{ranked: ranked, byID: byID}
}

// Lookup returns the entry for a customer, or ErrNotFound.
func (x *Index) Lookup(_ context.Context, customer string) (Entry, error) {
	e, ok := x.byID[customer]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// Band resolves a customer's risk band. It satisfies the flagger's BandLookup
// contract: a miss returns false rather than an error.
func (x *Index) Band(customer string) (model.RiskBand, bool) {
	e, ok := x.byID[customer]
	if !ok {
		return "", false
	}
	return e.Band, true
}

// TopN returns the n highest-percentile entries.
func (x *Index) TopN(_ context.Context, n int) ([]Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	if n > len(x.ranked) {
		n = len(x.ranked)
	}
	out := make([]Entry, n)
	copy(out, x.ranked[:n])
	return out, nil
}

// AtOrAbove returns all entries banded at or above min, highest first.
func (x *Index) AtOrAbove(_ context.Context, min model.RiskBand) []Entry {
	var out []Entry
	for _, e := range x.ranked {
		if e.Band.AtLeast(min) {
			out = append(out, e)
		}
	}
	return out
}

// All returns the full ranking, highest first.
func (x *Index) All(_ context.Context) []Entry {
	out := make([]Entry, len(x.ranked))
	copy(out, x.ranked)
	return out
}

// Count returns the number of customers in the index.
func (x *Index) Count(_ context.Context) int {
	return len(x.ranked)
}
