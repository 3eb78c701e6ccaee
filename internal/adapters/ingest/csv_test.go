package ingest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/finsift/internal/adapters/ingest"
	"github.com/okian/finsift/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const sampleCSV = `step,type,amount,nameOrig,oldbalanceOrg,newbalanceOrig,nameDest,oldbalanceDest,newbalanceDest,isFraud,isFlaggedFraud
1,PAYMENT,9839.64,C1231006815,170136.0,160296.36,M1979787155,0.0,0.0,0,0
1,TRANSFER,181.0,C1305486145,181.0,0.0,C553264065,0.0,0.0,1,0
2,cash_out,229133.94,C905080434,15325.0,0.0,C476402209,5083.0,51513.44,0,1
`

func TestLoadSample(t *testing.T) {
	Convey("Given a well-formed transaction CSV", t, func() {
		ld := ingest.NewLoader()

		Convey("When it is loaded", func() {
			txs, err := ld.Load(context.Background(), strings.NewReader(sampleCSV))
			So(err, ShouldBeNil)

			Convey("Then every row parses with ascending Seq", func() {
				So(len(txs), ShouldEqual, 3)
				So(txs[0].Seq, ShouldEqual, 0)
				So(txs[2].Seq, ShouldEqual, 2)
			})

			Convey("Then monetary fields survive exactly", func() {
				So(txs[0].Amount, ShouldEqual, 9839.64)
				So(txs[0].OrigBefore, ShouldEqual, 170136.0)
				So(txs[0].OrigAfter, ShouldEqual, 160296.36)
				So(txs[2].DestAfter, ShouldEqual, 51513.44)
			})

			Convey("Then types are normalized to upper case", func() {
				So(txs[2].Type, ShouldEqual, model.TxCashOut)
			})

			Convey("Then the pass-through labels parse", func() {
				So(txs[1].IsFraud, ShouldBeTrue)
				So(txs[1].FlaggedSrc, ShouldBeFalse)
				So(txs[2].FlaggedSrc, ShouldBeTrue)
			})
		})
	})
}

func TestLoadSkipsBlankAmounts(t *testing.T) {
	csv := "step,type,amount,nameOrig,nameDest\n" +
		"1,PAYMENT,100.0,C1,M1\n" +
		"2,PAYMENT,,C2,M2\n" +
		"3,PAYMENT,300.0,C3,M3\n"

	Convey("Given a CSV with a blank amount", t, func() {
		ld := ingest.NewLoader()

		Convey("When it is loaded", func() {
			txs, err := ld.Load(context.Background(), strings.NewReader(csv))

			Convey("Then the blank row is skipped, not fatal", func() {
				So(err, ShouldBeNil)
				So(len(txs), ShouldEqual, 2)
				So(txs[1].Origin, ShouldEqual, "C3")
				So(txs[1].Seq, ShouldEqual, 1)
			})
		})
	})
}

func TestLoadRejectsMissingColumn(t *testing.T) {
	Convey("Given a CSV without the amount column", t, func() {
		ld := ingest.NewLoader()
		csv := "step,type,nameOrig,nameDest\n1,PAYMENT,C1,M1\n"

		Convey("When it is loaded", func() {
			_, err := ld.Load(context.Background(), strings.NewReader(csv))

			Convey("Then the schema error names the column", func() {
				So(errors.Is(err, ingest.ErrMissingColumn), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "amount")
			})
		})
	})
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	Convey("Given a CSV with a non-numeric amount", t, func() {
		ld := ingest.NewLoader()
		csv := "step,type,amount,nameOrig,nameDest\n" +
			"1,PAYMENT,100.0,C1,M1\n" +
			"2,PAYMENT,abc,C2,M2\n"

		Convey("When it is loaded", func() {
			_, err := ld.Load(context.Background(), strings.NewReader(csv))

			Convey("Then the error locates the row and column", func() {
				So(errors.Is(err, ingest.ErrBadRow), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "row 3")
				So(err.Error(), ShouldContainSubstring, "amount")
			})
		})
	})

	Convey("Given a CSV with a non-numeric step", t, func() {
		ld := ingest.NewLoader()
		csv := "step,type,amount,nameOrig,nameDest\nX,PAYMENT,100.0,C1,M1\n"

		Convey("When it is loaded", func() {
			_, err := ld.Load(context.Background(), strings.NewReader(csv))

			Convey("Then the error locates the column", func() {
				So(errors.Is(err, ingest.ErrBadRow), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "step")
			})
		})
	})
}

func TestLoadEmptyTable(t *testing.T) {
	Convey("Given a CSV with a header and no rows", t, func() {
		ld := ingest.NewLoader()
		csv := "step,type,amount,nameOrig,nameDest\n"

		Convey("When it is loaded", func() {
			_, err := ld.Load(context.Background(), strings.NewReader(csv))

			Convey("Then the empty table is terminal", func() {
				So(errors.Is(err, ingest.ErrEmptyInput), ShouldBeTrue)
			})
		})
	})
}

func TestLoadFile(t *testing.T) {
	Convey("Given the CSV on disk", t, func() {
		ld := ingest.NewLoader()
		path := filepath.Join(t.TempDir(), "txs.csv")
		So(os.WriteFile(path, []byte(sampleCSV), 0o600), ShouldBeNil)

		Convey("When it is loaded by path", func() {
			txs, err := ld.LoadFile(context.Background(), path)

			Convey("Then the rows come back", func() {
				So(err, ShouldBeNil)
				So(len(txs), ShouldEqual, 3)
			})
		})
	})

	Convey("Given a missing path", t, func() {
		ld := ingest.NewLoader()

		Convey("When it is loaded", func() {
			_, err := ld.LoadFile(context.Background(), "/no/such/file.csv")

			Convey("Then the open error surfaces", func() {
				So(errors.Is(err, ingest.ErrOpenInput), ShouldBeTrue)
			})
		})
	})
}
