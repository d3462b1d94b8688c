package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry and custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithRefreshInterval(time.Second),
				WithPrometheusRegistry(registry),
			)

			Convey("Then every collector should be registered under the namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.itemsValued.Inc()

				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_items_valued_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When recording pipeline metrics", func() {
			So(func() {
				RecordScrape(true, 1200)
				RecordScrape(false, 300)
				RecordItemValued()
				RecordItemUnmatched()
				RecordCategoryProcessed()
				RecordCategorySkipped("count_unparsable")
				RecordClickRetry()
				RecordBrowserLaunch(true)
				RecordBrowserLaunch(false)
				RecordMatchCacheHit()
			}, ShouldNotPanic)
		})

		Convey("When recording admission and queue metrics", func() {
			So(func() {
				UpdateInflight(2)
				RecordDuplicateRejected()
				UpdateQueueSize(1)
				UpdateQueueCapacity(64)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueRejected()
				RecordQueueWait(15)
				UpdateWorkerCount(3)
				UpdateWorkersBusy(1)
				UpdateRankedPlayers(10)
			}, ShouldNotPanic)
		})

		Convey("When recording HTTP and error metrics", func() {
			So(func() {
				RecordHTTPRequest("inventory", "GET", "200")
				RecordHTTPRequestDuration("inventory", "GET", "200", 5.0)
				RecordErrorByComponent("browser", "launch_failed")
				RecordErrorByEndpoint("inventory", "GET", "conflict")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
			}, ShouldNotPanic)
		})

		Convey("Then the private registry should expose them", func() {
			RecordScrape(true, 10)
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)

			names := make([]string, 0, len(families))
			for _, f := range families {
				names = append(names, f.GetName())
			}
			So(strings.Join(names, ","), ShouldContainSubstring, "appraiser_inventory_scrapes_total")
			So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
		})
	})
}
