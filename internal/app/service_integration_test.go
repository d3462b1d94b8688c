package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	service "github.com/okian/appraiser/internal/app"
	"github.com/okian/appraiser/internal/adapters/browser"
	"github.com/okian/appraiser/internal/domain/catalog"
	"github.com/okian/appraiser/internal/domain/matcher"
	"github.com/okian/appraiser/internal/domain/navigator"
	"github.com/okian/appraiser/internal/domain/valuation"
	"github.com/okian/appraiser/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const integrationPrices = `{"items": [
  {"name": "Antler", "usd": "$1.00", "coins": "60,000", "shards": "N/A"},
  {"name": "Dragon Wings", "usd": "$12.00", "coins": "900,000", "shards": "25"}
]}`

const integrationPage = `<html><body><div class="cosmetics">
<div class="cosmetic-category collapsible">
  <div class="category-header"><span class="category-title">Artifact</span>
  <span class="category-count">[1/10]</span><button class="category-toggle">v</button></div>
  <div class="category-body"><select><option value="all">All</option><option value="owned">Owned</option></select>
    <div class="cosmetic-item" data-owned="true"><span class="cosmetic-name">Antler</span></div>
    <div class="cosmetic-item" data-owned="false"><span class="cosmetic-name">Dragon Wings</span></div>
  </div>
</div>
<div class="cosmetic-category collapsible">
  <div class="category-header"><span class="category-title">Mount</span>
  <span class="category-count">0/50</span><button class="category-toggle">v</button></div>
  <div class="category-body"><select><option value="owned">Owned</option></select></div>
</div>
</div></body></html>`

// slowLauncher delays each launch so concurrent requests overlap.
type slowLauncher struct {
	browser.Launcher
	delay time.Duration
}

func (l slowLauncher) Launch(ctx context.Context) (browser.Session, error) {
	time.Sleep(l.delay)
	return l.Launcher.Launch(ctx)
}

func newPipeline(delay time.Duration) (*service.Service, *browser.Snapshot) {
	idx, err := catalog.Read(context.Background(), logger.Nop(), strings.NewReader(integrationPrices))
	So(err, ShouldBeNil)

	snap := browser.NewSnapshot([]byte(integrationPage))
	agg := valuation.New(slowLauncher{Launcher: snap, delay: delay}, matcher.New(idx),
		valuation.WithSettleDelay(0),
		valuation.WithDiscoverRetry(3, time.Millisecond),
		valuation.WithNavigator(navigator.New(
			navigator.WithClickRetry(3, time.Millisecond),
			navigator.WithLookupRetry(3, time.Millisecond),
		)),
	)
	return service.New(agg, service.WithWorkerCount(3), service.WithQueueSize(8)), snap
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given the full pipeline over a saved profile", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		svc, snap := newPipeline(0)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(context.Background()) }()

		Convey("When a player is evaluated", func() {
			res, err := svc.Evaluate(ctx, "Steve")

			Convey("Then only the owned Antler should be valued", func() {
				So(err, ShouldBeNil)
				So(res.Success, ShouldBeTrue)
				So(res.PlayerID, ShouldEqual, "Steve")
				So(res.ItemCount, ShouldEqual, 1)
				So(res.TotalUSD, ShouldEqual, 1.0)
				So(res.TotalCoins, ShouldEqual, 60000.0)
				So(res.CategoriesProcessed, ShouldEqual, 1)
				So(snap.Launches(), ShouldEqual, 1)
			})

			Convey("Then the player should be ranked", func() {
				entry, err := svc.Rank(ctx, "steve")
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 1)
				So(entry.ItemCount, ShouldEqual, 1)
			})
		})
	})

	Convey("Given concurrent requests for the same player", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		svc, snap := newPipeline(50 * time.Millisecond)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(context.Background()) }()

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			ok, dups int
		)
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.Evaluate(ctx, "steve")
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					ok++
				case errors.Is(err, service.ErrAlreadyInFlight):
					dups++
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one browser session should have been started", func() {
			So(ok, ShouldEqual, 1)
			So(dups, ShouldEqual, 4)
			So(snap.Launches(), ShouldEqual, 1)
			So(svc.InFlight(), ShouldEqual, 0)
		})
	})
}
