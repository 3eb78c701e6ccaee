package feature_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/finsift/internal/domain/feature"
	"github.com/okian/finsift/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func tx(seq, step int, origin, dest string, amount float64) model.Transaction {
	return model.Transaction{
		Seq:    seq,
		Step:   step,
		Type:   model.TxTransfer,
		Amount: amount,
		Origin: origin,
		Dest:   dest,
		Hour:   step % 24,
		Day:    step / 24,
	}
}

func TestBuildEmptyInput(t *testing.T) {
	Convey("Given no transactions", t, func() {
		b := feature.New()

		Convey("When the build runs", func() {
			_, err := b.Build(context.Background(), nil)

			Convey("Then it fails terminally", func() {
				So(errors.Is(err, feature.ErrEmptyInput), ShouldBeTrue)
			})
		})
	})
}

func TestBuildOneRowPerCustomer(t *testing.T) {
	Convey("Given transactions from three accounts", t, func() {
		b := feature.New()
		txs := []model.Transaction{
			tx(0, 1, "C1", "M1", 10),
			tx(1, 2, "C2", "M1", 20),
			tx(2, 3, "C1", "M2", 30),
			tx(3, 4, "C3", "M3", 5),
		}

		Convey("When the build runs", func() {
			rows, err := b.Build(context.Background(), txs)
			So(err, ShouldBeNil)

			Convey("Then exactly one row per account comes back", func() {
				So(len(rows), ShouldEqual, 3)
				seen := make(map[string]bool)
				total := 0
				for _, r := range rows {
					So(seen[r.Customer], ShouldBeFalse)
					seen[r.Customer] = true
					total += r.TxCount
				}
				So(total, ShouldEqual, len(txs))
			})
		})
	})
}

func TestBuildGroupAggregates(t *testing.T) {
	Convey("Given one account's transactions out of order", t, func() {
		b := feature.New(feature.WithNightWindow(0, 6), feature.WithRollingWindow(2))
		group := []model.Transaction{
			tx(2, 122, "C1", "M2", 300), // day 5 (weekend), hour 2 (night)
			tx(0, 10, "C1", "M1", 100),  // day 0, hour 10
			tx(1, 34, "C1", "M1", 200),  // day 1, hour 10
		}

		Convey("When the group is built", func() {
			row := b.BuildGroup("C1", group)

			Convey("Then the aggregates match hand computation", func() {
				So(row.Customer, ShouldEqual, "C1")
				So(row.TxCount, ShouldEqual, 3)
				So(row.UniqueRecipients, ShouldEqual, 2)
				So(row.TotalAmount, ShouldEqual, 600)
				So(row.AvgAmount, ShouldEqual, 200)
				So(row.MedianAmount, ShouldEqual, 200)
				So(row.MaxAmount, ShouldEqual, 300)
				So(row.StdAmount, ShouldEqual, 100)
				So(row.ActiveDays, ShouldEqual, 3)
				So(row.TxPerActiveDay, ShouldEqual, 1)
				So(row.AmountPerActiveDay, ShouldEqual, 200)
				So(row.NightRatio, ShouldAlmostEqual, 1.0/3.0, 1e-12)
				So(row.WeekendRatio, ShouldAlmostEqual, 1.0/3.0, 1e-12)
				So(row.Volatility, ShouldAlmostEqual, 0.5, 1e-12)
			})

			Convey("Then the rolling trend uses the step-ordered tail", func() {
				// Last two by step are 200 and 300; mean 250 vs overall 200.
				So(row.RollingMeanTrend, ShouldAlmostEqual, 0.25, 1e-12)
			})

			Convey("Then the caller's slice order is untouched", func() {
				So(group[0].Seq, ShouldEqual, 2)
			})
		})
	})
}

func TestBuildGroupSingleTransaction(t *testing.T) {
	Convey("Given an account with a single transaction", t, func() {
		b := feature.New()

		Convey("When the group is built", func() {
			row := b.BuildGroup("C9", []model.Transaction{tx(0, 12, "C9", "M1", 500)})

			Convey("Then dispersion features are zero and the row stays finite", func() {
				So(row.StdAmount, ShouldEqual, 0)
				So(row.Volatility, ShouldEqual, 0)
				So(row.RollingMeanTrend, ShouldEqual, 0)
				So(row.TxPerActiveDay, ShouldEqual, 1)
				So(row.AmountPerActiveDay, ShouldEqual, 500)
			})
		})
	})
}

func TestBuildGroupZeroAmounts(t *testing.T) {
	Convey("Given an account whose transactions are all zero-amount", t, func() {
		b := feature.New()
		group := []model.Transaction{
			tx(0, 1, "C1", "M1", 0),
			tx(1, 2, "C1", "M2", 0),
		}

		Convey("When the group is built", func() {
			row := b.BuildGroup("C1", group)

			Convey("Then ratio features default to zero instead of dividing by zero", func() {
				So(row.Volatility, ShouldEqual, 0)
				So(row.RollingMeanTrend, ShouldEqual, 0)
			})
		})
	})
}

func TestBuildGroupOrderIndependent(t *testing.T) {
	Convey("Given the same group in two shuffles", t, func() {
		b := feature.New()
		a := []model.Transaction{
			tx(0, 1, "C1", "M1", 10),
			tx(1, 9, "C1", "M2", 70),
			tx(2, 4, "C1", "M3", 40),
		}
		shuffled := []model.Transaction{a[2], a[0], a[1]}

		Convey("When both are built", func() {
			Convey("Then the rows are identical", func() {
				So(b.BuildGroup("C1", shuffled), ShouldResemble, b.BuildGroup("C1", a))
			})
		})
	})
}
