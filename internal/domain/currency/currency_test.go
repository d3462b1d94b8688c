package currency_test

import (
	"context"
	"testing"

	"github.com/okian/appraiser/internal/domain/currency"
	"github.com/okian/appraiser/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParse(t *testing.T) {
	Convey("Given price labels from the catalog", t, func() {
		ctx := context.Background()
		log := logger.Nop()

		Convey("When they carry currency symbols and separators", func() {
			So(currency.Parse(ctx, log, "$50.00"), ShouldEqual, 50.0)
			So(currency.Parse(ctx, log, "3,000,000 Coins"), ShouldEqual, 3000000.0)
			So(currency.Parse(ctx, log, " 1.5k shards"), ShouldEqual, 1.5)
		})

		Convey("When they are empty or not applicable", func() {
			So(currency.Parse(ctx, log, ""), ShouldEqual, 0)
			So(currency.Parse(ctx, log, "N/A"), ShouldEqual, 0)
			So(currency.Parse(ctx, log, "n/a"), ShouldEqual, 0)
		})

		Convey("When nothing numeric survives stripping", func() {
			So(currency.Parse(ctx, log, "priceless"), ShouldEqual, 0)
		})

		Convey("When several decimal points survive stripping", func() {
			So(currency.Parse(ctx, log, "v1.2.3"), ShouldEqual, 0)
		})

		Convey("When no logger is supplied", func() {
			So(func() { currency.Parse(ctx, nil, "???") }, ShouldNotPanic)
		})
	})
}

func TestAdd(t *testing.T) {
	Convey("Given cent-denominated prices", t, func() {
		Convey("When they are summed", func() {
			So(currency.Add(0.1, 0.2), ShouldEqual, 0.3)
			So(currency.Add(0, 1.1, 2.2, 3.3), ShouldEqual, 6.6)
		})

		Convey("When nothing is added", func() {
			So(currency.Add(12.5), ShouldEqual, 12.5)
		})
	})
}
