package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/appraiser/internal/domain/catalog"
	"github.com/okian/appraiser/internal/domain/model"
	"github.com/okian/appraiser/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const sampleCatalog = `{
  // hand-maintained price list
  "items": [
    {"name": "Antler", "image": "antler.png", "shards": "N/A", "coins": "60,000", "usd": "$1.00", "stock": "12", "type": "Hat", "category": "Artifact"},
    {"name": "Cute Cowboy", "image": "", "shards": 250, "coins": "1,200,000 Coins", "usd": "$20", "stock": "1", "type": "Cape", "category": "Cape"},
    {"name": "Fire-Trail!", "usd": "5", "coins": "", "shards": "", "type": "Trail", "category": "Projectile"},
  ],
}`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prices.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	Convey("Given catalog sources", t, func() {
		ctx := context.Background()
		log := logger.Nop()

		Convey("When the source is a valid document", func() {
			idx := catalog.Load(ctx, log, writeFile(t, sampleCatalog))

			Convey("Then every record should be indexed with parsed prices", func() {
				So(idx.Len(), ShouldEqual, 3)

				e, ok := idx.ByExact("antler")
				So(ok, ShouldBeTrue)
				So(e.PriceUSD, ShouldEqual, 1.0)
				So(e.PriceCoins, ShouldEqual, 60000.0)
				So(e.PriceShards, ShouldEqual, 0.0)
				So(e.Category, ShouldEqual, "Artifact")

				e, ok = idx.ByExact("cute cowboy")
				So(ok, ShouldBeTrue)
				So(e.PriceShards, ShouldEqual, 250.0)
				So(e.PriceCoins, ShouldEqual, 1200000.0)
			})

			Convey("And punctuation-free keys should resolve", func() {
				e, ok := idx.ByNormalized("fire trail")
				So(ok, ShouldBeFalse)
				e, ok = idx.ByNormalized("firetrail")
				So(ok, ShouldBeTrue)
				So(e.Name, ShouldEqual, "Fire-Trail!")
			})
		})

		Convey("When the source file does not exist", func() {
			idx := catalog.Load(ctx, log, filepath.Join(t.TempDir(), "missing.json"))

			Convey("Then an empty index should be returned", func() {
				So(idx, ShouldNotBeNil)
				So(idx.Len(), ShouldEqual, 0)
				_, ok := idx.ByExact("antler")
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the source is missing the items collection", func() {
			for _, doc := range []string{`{}`, `{"products": []}`, `{"items": "nope"}`, `[]`, `not json`} {
				idx := catalog.Load(ctx, log, writeFile(t, doc))
				So(idx.Len(), ShouldEqual, 0)
			}
		})

		Convey("When records are malformed", func() {
			idx, err := catalog.Read(ctx, log, strings.NewReader(`{"items": [1, {"usd": "$3"}, {"name": "Halo", "usd": "$2"}]}`))

			Convey("Then only valid records should be kept", func() {
				So(err, ShouldBeNil)
				So(idx.Len(), ShouldEqual, 1)
			})
		})
	})
}

func TestIndex(t *testing.T) {
	Convey("Given an index with colliding names", t, func() {
		idx := catalog.New([]model.CatalogEntry{
			{Name: "Halo", PriceUSD: 1},
			{Name: "Dragon Wing", PriceUSD: 2},
			{Name: "halo ", PriceUSD: 3},
		})

		Convey("Then the later entry should win", func() {
			e, ok := idx.ByExact("halo")
			So(ok, ShouldBeTrue)
			So(e.PriceUSD, ShouldEqual, 3)
		})

		Convey("And iteration should follow first-seen order", func() {
			var keys []string
			idx.EachNormalized(func(k string, _ model.CatalogEntry) bool {
				keys = append(keys, k)
				return true
			})
			So(keys, ShouldResemble, []string{"halo", "dragon wing"})
		})
	})
}

func TestKeys(t *testing.T) {
	Convey("Given raw names", t, func() {
		So(catalog.ExactKey("  Cute Cowboy \n"), ShouldEqual, "cute cowboy")
		So(catalog.NormalizedKey("cute  cowboy"), ShouldEqual, "cute cowboy")
		So(catalog.NormalizedKey(" Cute-Cowboy! "), ShouldEqual, "cutecowboy")
		So(catalog.NormalizedKey("Mr. Frost's  Cape"), ShouldEqual, "mr frosts cape")
		So(catalog.NormalizedKey("!!!"), ShouldEqual, "")
	})
}
