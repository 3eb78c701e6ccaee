package flagging_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/okian/finsift/internal/domain/flagging"
	"github.com/okian/finsift/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func tx(seq, step int, origin string, amount float64) model.Transaction {
	return model.Transaction{
		Seq:    seq,
		Step:   step,
		Type:   model.TxTransfer,
		Amount: amount,
		Origin: origin,
		Dest:   "M1",
		Hour:   step % 24,
		Day:    step / 24,
	}
}

// daytime builds n single-transaction accounts at hour 12 with the given
// amount, starting at the given Seq.
func daytime(n, seqBase int, amount float64) []model.Transaction {
	txs := make([]model.Transaction, n)
	for i := range txs {
		txs[i] = tx(seqBase+i, 24*i+12, fmt.Sprintf("C%03d", i), amount)
	}
	return txs
}

func TestFlagEmptyInput(t *testing.T) {
	Convey("Given no transactions", t, func() {
		f := flagging.New()

		Convey("When flagging runs", func() {
			_, err := f.Flag(context.Background(), nil, nil)

			Convey("Then it fails terminally", func() {
				So(errors.Is(err, flagging.ErrEmptyInput), ShouldBeTrue)
			})
		})
	})
}

func TestFlagBenignTransactions(t *testing.T) {
	Convey("Given daytime transactions at the population mean", t, func() {
		f := flagging.New()
		txs := daytime(20, 0, 1000)

		Convey("When flagging runs", func() {
			flags, err := f.Flag(context.Background(), txs, nil)

			Convey("Then nothing is flagged", func() {
				So(err, ShouldBeNil)
				So(flags, ShouldBeEmpty)
			})
		})
	})
}

func TestFlagAmountOutlier(t *testing.T) {
	Convey("Given an extreme amount against a flat population", t, func() {
		f := flagging.New()
		txs := daytime(50, 0, 1000)
		big := tx(50, 12, "CBIG", 5_000_000)
		txs = append(txs, big)

		Convey("When flagging runs", func() {
			flags, err := f.Flag(context.Background(), txs, nil)
			So(err, ShouldBeNil)

			Convey("Then only the extreme transaction is flagged as an outlier", func() {
				So(len(flags), ShouldEqual, 1)
				So(flags[0].Seq, ShouldEqual, 50)
				So(flags[0].Customer, ShouldEqual, "CBIG")
				So(flags[0].Reasons, ShouldResemble, []string{model.ReasonAmountOutlier})
				So(flags[0].SuspicionScore, ShouldEqual, 30)
			})
		})
	})

	Convey("Given a population with zero amount variance", t, func() {
		f := flagging.New()
		txs := daytime(10, 0, 1000)

		Convey("When flagging runs", func() {
			flags, err := f.Flag(context.Background(), txs, nil)

			Convey("Then the outlier rule never fires", func() {
				So(err, ShouldBeNil)
				So(flags, ShouldBeEmpty)
			})
		})
	})
}

func TestFlagOffHours(t *testing.T) {
	Convey("Given one night transaction among daytime traffic", t, func() {
		f := flagging.New(flagging.WithNightWindow(0, 6))
		txs := daytime(9, 0, 500)
		txs = append(txs, tx(9, 3, "CNIGHT", 500)) // hour 3

		Convey("When flagging runs", func() {
			flags, err := f.Flag(context.Background(), txs, nil)
			So(err, ShouldBeNil)

			Convey("Then only the night transaction is flagged", func() {
				So(len(flags), ShouldEqual, 1)
				So(flags[0].Customer, ShouldEqual, "CNIGHT")
				So(flags[0].Reasons, ShouldResemble, []string{model.ReasonOffHours})
				So(flags[0].SuspicionScore, ShouldEqual, 15)
			})
		})
	})

	Convey("Given a transaction exactly at the window end", t, func() {
		f := flagging.New(flagging.WithNightWindow(0, 6))
		txs := []model.Transaction{tx(0, 6, "C1", 500), tx(1, 30, "C2", 500)} // hours 6 and 6

		Convey("When flagging runs", func() {
			flags, err := f.Flag(context.Background(), txs, nil)

			Convey("Then the half-open window excludes it", func() {
				So(err, ShouldBeNil)
				So(flags, ShouldBeEmpty)
			})
		})
	})
}

func TestFlagVelocity(t *testing.T) {
	Convey("Given one account bursting six transactions in six steps", t, func() {
		f := flagging.New(flagging.WithVelocity(5, 4))
		var txs []model.Transaction
		for i := 0; i < 6; i++ {
			txs = append(txs, tx(i, 10+i, "CBURST", 500)) // hours 10..15
		}

		Convey("When flagging runs", func() {
			flags, err := f.Flag(context.Background(), txs, nil)
			So(err, ShouldBeNil)

			Convey("Then only the transactions whose trailing window exceeds the cap fire", func() {
				// Windows ending at steps 14 and 15 hold five transactions.
				So(len(flags), ShouldEqual, 2)
				for _, fl := range flags {
					So(fl.Reasons, ShouldResemble, []string{model.ReasonVelocity})
				}
				So(flags[0].Seq, ShouldEqual, 4)
				So(flags[1].Seq, ShouldEqual, 5)
			})
		})
	})

	Convey("Given five same-step transactions by one account", t, func() {
		f := flagging.New(flagging.WithVelocity(5, 4))
		var txs []model.Transaction
		for i := 0; i < 5; i++ {
			txs = append(txs, tx(i, 20, "CSAME", 500))
		}

		Convey("When flagging runs", func() {
			flags, err := f.Flag(context.Background(), txs, nil)
			So(err, ShouldBeNil)

			Convey("Then only the last of the tied steps crosses the cap", func() {
				So(len(flags), ShouldEqual, 1)
				So(flags[0].Seq, ShouldEqual, 4)
				So(flags[0].Reasons, ShouldResemble, []string{model.ReasonVelocity})
			})
		})
	})
}

func TestFlagStructuring(t *testing.T) {
	Convey("Given a run of just-under-threshold transfers", t, func() {
		f := flagging.New(flagging.WithStructuring(10_000, 0.05, 3))
		txs := []model.Transaction{
			tx(0, 30, "CSTRUCT", 9_700),
			tx(1, 31, "CSTRUCT", 9_700),
			tx(2, 32, "CSTRUCT", 9_700),
			tx(3, 33, "CSTRUCT", 10_000), // at the threshold, outside the band
		}

		Convey("When flagging runs", func() {
			flags, err := f.Flag(context.Background(), txs, nil)
			So(err, ShouldBeNil)

			Convey("Then the transaction completing the run is flagged", func() {
				So(len(flags), ShouldEqual, 1)
				So(flags[0].Seq, ShouldEqual, 2)
				So(flags[0].Reasons, ShouldResemble, []string{model.ReasonStructuring})
				So(flags[0].SuspicionScore, ShouldEqual, 25)
			})
		})
	})

	Convey("Given near-threshold transfers spread beyond the window", t, func() {
		f := flagging.New(flagging.WithStructuring(10_000, 0.05, 3), flagging.WithVelocity(5, 4))
		txs := []model.Transaction{
			tx(0, 10, "CSLOW", 9_700),
			tx(1, 20, "CSLOW", 9_700),
			tx(2, 30, "CSLOW", 9_700),
		}

		Convey("When flagging runs", func() {
			flags, err := f.Flag(context.Background(), txs, nil)

			Convey("Then no run ever completes inside one window", func() {
				So(err, ShouldBeNil)
				So(flags, ShouldBeEmpty)
			})
		})
	})
}

func TestFlagHighRiskCustomer(t *testing.T) {
	bands := flagging.BandLookupFunc(func(customer string) (model.RiskBand, bool) {
		if customer == "CHOT" {
			return model.BandCritical, true
		}
		return "", false
	})

	Convey("Given a critical-band customer and one missing from the lookup", t, func() {
		f := flagging.New()
		txs := []model.Transaction{
			tx(0, 12, "CHOT", 500),
			tx(1, 36, "CMISS", 500),
		}

		Convey("When flagging runs with the lookup", func() {
			flags, err := f.Flag(context.Background(), txs, bands)
			So(err, ShouldBeNil)

			Convey("Then only the known high-risk customer is flagged", func() {
				So(len(flags), ShouldEqual, 1)
				So(flags[0].Customer, ShouldEqual, "CHOT")
				So(flags[0].Reasons, ShouldResemble, []string{model.ReasonHighRiskCustomer})
				So(flags[0].Band, ShouldEqual, model.BandCritical)
			})
		})

		Convey("When flagging runs without any lookup", func() {
			flags, err := f.Flag(context.Background(), txs, nil)

			Convey("Then the rule is skipped for everyone", func() {
				So(err, ShouldBeNil)
				So(flags, ShouldBeEmpty)
			})
		})
	})
}

func TestFlagScoreAccumulationAndOrder(t *testing.T) {
	bands := flagging.BandLookupFunc(func(customer string) (model.RiskBand, bool) {
		return model.BandHigh, customer == "CHOT"
	})

	Convey("Given transactions tripping different rule combinations", t, func() {
		f := flagging.New(flagging.WithRuleWeights(map[string]float64{
			model.ReasonOffHours:         15,
			model.ReasonHighRiskCustomer: 30,
		}))
		txs := []model.Transaction{
			tx(0, 36, "CQUIET", 500), // hour 12, nothing
			tx(1, 2, "CHOT", 500),    // night + high risk
			tx(2, 3, "CLATE", 500),   // night only
		}

		Convey("When flagging runs", func() {
			flags, err := f.Flag(context.Background(), txs, bands)
			So(err, ShouldBeNil)

			Convey("Then scores sum the triggered weights and sort descending", func() {
				So(len(flags), ShouldEqual, 2)
				So(flags[0].Customer, ShouldEqual, "CHOT")
				So(flags[0].SuspicionScore, ShouldEqual, 45)
				So(flags[0].Reasons, ShouldResemble, []string{model.ReasonOffHours, model.ReasonHighRiskCustomer})
				So(flags[1].Customer, ShouldEqual, "CLATE")
				So(flags[1].SuspicionScore, ShouldEqual, 15)
			})
		})
	})

	Convey("Given two equally suspicious transactions", t, func() {
		f := flagging.New()
		txs := []model.Transaction{
			tx(7, 3, "CB", 500),
			tx(2, 2, "CA", 500),
		}

		Convey("When flagging runs", func() {
			flags, err := f.Flag(context.Background(), txs, nil)
			So(err, ShouldBeNil)

			Convey("Then the tie breaks on ingest order", func() {
				So(len(flags), ShouldEqual, 2)
				So(flags[0].Seq, ShouldEqual, 2)
				So(flags[1].Seq, ShouldEqual, 7)
			})
		})
	})
}

func TestFlagDeterminism(t *testing.T) {
	Convey("Given a mixed workload", t, func() {
		f := flagging.New()
		txs := daytime(30, 0, 1000)
		txs = append(txs,
			tx(30, 2, "CNIGHT", 1000),
			tx(31, 12, "CBIG", 2_000_000),
		)

		Convey("When the same input is flagged twice", func() {
			first, err := f.Flag(context.Background(), txs, nil)
			So(err, ShouldBeNil)
			second, err := f.Flag(context.Background(), txs, nil)
			So(err, ShouldBeNil)

			Convey("Then both runs agree exactly", func() {
				So(second, ShouldResemble, first)
			})
		})
	})
}
