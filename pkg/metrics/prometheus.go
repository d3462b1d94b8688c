// Package metrics provides Prometheus metrics for the inventory appraiser.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultRefreshInterval = 10 * time.Second

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Valuation pipeline
	scrapesTotal        *prometheus.CounterVec
	scrapeDuration      prometheus.Histogram
	itemsValued         prometheus.Counter
	itemsUnmatched      prometheus.Counter
	categoriesProcessed prometheus.Counter
	categoriesSkipped   *prometheus.CounterVec
	clickRetries        prometheus.Counter
	browserLaunches     *prometheus.CounterVec
	matchCacheHits      prometheus.Counter

	// Admission
	inflight           prometheus.Gauge
	duplicatesRejected prometheus.Counter

	// Queue
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueDequeued    prometheus.Counter
	queueRejected    prometheus.Counter
	queueWaitLatency prometheus.Histogram

	// Workers
	workerCount prometheus.Gauge
	workersBusy prometheus.Gauge

	// Ranking store
	rankedPlayers prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // private registry without default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "appraiser",
		subsystem:        "inventory",
		histogramBuckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 120000},
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.scrapesTotal = m.counterVec("scrapes_total", "Valuation scrapes by outcome", "outcome")
	m.scrapeDuration = m.histogram("scrape_duration_milliseconds", "End-to-end valuation scrape duration in milliseconds")
	m.itemsValued = m.counter("items_valued_total", "Scraped items resolved against the catalog")
	m.itemsUnmatched = m.counter("items_unmatched_total", "Scraped items with no catalog entry")
	m.categoriesProcessed = m.counter("categories_processed_total", "Categories enumerated successfully")
	m.categoriesSkipped = m.counterVec("categories_skipped_total", "Categories skipped by reason", "reason")
	m.clickRetries = m.counter("click_retries_total", "Click attempts retried after a transient DOM failure")
	m.browserLaunches = m.counterVec("browser_launches_total", "Browser session launches by outcome", "outcome")
	m.matchCacheHits = m.counter("match_cache_hits_total", "Name resolutions served from the memo")

	m.inflight = m.gauge("inflight_evaluations", "Player evaluations currently in flight")
	m.duplicatesRejected = m.counter("duplicates_rejected_total", "Requests rejected because the player is already being evaluated")

	m.queueSize = m.gauge("queue_size", "Jobs waiting for a worker")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum number of queued jobs")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Jobs accepted by the queue")
	m.queueDequeued = m.counter("queue_dequeued_total", "Jobs handed to a worker")
	m.queueRejected = m.counter("queue_rejected_total", "Jobs rejected by the queue")
	m.queueWaitLatency = m.histogram("queue_wait_milliseconds", "Time a job waited for a worker in milliseconds")

	m.workerCount = m.gauge("worker_count", "Configured scrape workers")
	m.workersBusy = m.gauge("workers_busy", "Workers currently running a scrape")

	m.rankedPlayers = m.gauge("ranked_players", "Players with a stored valuation")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordScrape records a finished scrape and its duration.
func RecordScrape(success bool, durationMs float64) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	globalManager.scrapesTotal.WithLabelValues(outcome).Inc()
	globalManager.scrapeDuration.Observe(durationMs)
}

// RecordItemValued increments the valued items counter.
func RecordItemValued() { globalManager.itemsValued.Inc() }

// RecordItemUnmatched increments the unmatched items counter.
func RecordItemUnmatched() { globalManager.itemsUnmatched.Inc() }

// RecordCategoryProcessed increments the processed categories counter.
func RecordCategoryProcessed() { globalManager.categoriesProcessed.Inc() }

// RecordCategorySkipped counts a skipped category.
func RecordCategorySkipped(reason string) {
	globalManager.categoriesSkipped.WithLabelValues(reason).Inc()
}

// RecordClickRetry counts a retried click.
func RecordClickRetry() { globalManager.clickRetries.Inc() }

// RecordBrowserLaunch counts a browser launch attempt.
func RecordBrowserLaunch(ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	globalManager.browserLaunches.WithLabelValues(outcome).Inc()
}

// RecordMatchCacheHit counts a memoised name resolution.
func RecordMatchCacheHit() { globalManager.matchCacheHits.Inc() }

// UpdateInflight sets the number of in-flight evaluations.
func UpdateInflight(n int) { globalManager.inflight.Set(float64(n)) }

// RecordDuplicateRejected counts a rejected duplicate request.
func RecordDuplicateRejected() { globalManager.duplicatesRejected.Inc() }

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueRejected increments the rejected enqueue counter.
func RecordQueueRejected() { globalManager.queueRejected.Inc() }

// RecordQueueWait records how long a job waited for a worker.
func RecordQueueWait(latencyMs float64) { globalManager.queueWaitLatency.Observe(latencyMs) }

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// UpdateWorkersBusy sets the number of busy workers.
func UpdateWorkersBusy(count int) { globalManager.workersBusy.Set(float64(count)) }

// UpdateRankedPlayers sets the number of stored valuations.
func UpdateRankedPlayers(count int) { globalManager.rankedPlayers.Set(float64(count)) }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RefreshInterval reports how often periodic gauges should be refreshed.
func RefreshInterval() time.Duration { return globalManager.refreshInterval }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
