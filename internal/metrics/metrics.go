package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogsync_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "endpoint", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalogsync_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "endpoint", "status"},
	)
	productsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogsync_import_products_total",
			Help: "Products seen by import runs, by outcome.",
		},
		[]string{"outcome"},
	)
	importRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogsync_import_rejections_total",
			Help: "Products rejected by the quality filter, by reason.",
		},
		[]string{"reason"},
	)
	syncRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogsync_sync_runs_total",
			Help: "Finished supplier sync runs, by final state.",
		},
		[]string{"type", "state"},
	)
	syncDiffs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogsync_sync_diffs_total",
			Help: "Field changes detected by sync runs.",
		},
		[]string{"change"},
	)
	fetchAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalogsync_fetch_attempts_total",
			Help: "Remote fetch attempts, by result.",
		},
		[]string{"result"},
	)
	supplierScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalogsync_supplier_score",
			Help: "Latest composite score per supplier.",
		},
		[]string{"supplier"},
	)
	priceUpdates = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalogsync_price_updates_total",
			Help: "Selling prices changed by pricing runs.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(productsProcessed)
	prometheus.MustRegister(importRejections)
	prometheus.MustRegister(syncRuns)
	prometheus.MustRegister(syncDiffs)
	prometheus.MustRegister(fetchAttempts)
	prometheus.MustRegister(supplierScore)
	prometheus.MustRegister(priceUpdates)
}

// RecordRequest records metrics for one HTTP request.
func RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := classifyStatus(statusCode)
	httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}

// RecordImport adds the counters of a finished import run.
func RecordImport(imported, updated, skipped, duplicates, errors int, rejections map[string]int) {
	productsProcessed.WithLabelValues("imported").Add(float64(imported))
	productsProcessed.WithLabelValues("updated").Add(float64(updated))
	productsProcessed.WithLabelValues("skipped").Add(float64(skipped))
	productsProcessed.WithLabelValues("duplicate").Add(float64(duplicates))
	productsProcessed.WithLabelValues("error").Add(float64(errors))
	for reason, n := range rejections {
		importRejections.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordSync counts a finished sync run and its diffs by change type.
func RecordSync(syncType, state string, diffs map[string]int) {
	syncRuns.WithLabelValues(syncType, state).Inc()
	for change, n := range diffs {
		syncDiffs.WithLabelValues(change).Add(float64(n))
	}
}

// RecordFetch counts one fetch attempt; status 0 means a transport failure.
func RecordFetch(statusCode int, err error) {
	switch {
	case err == nil:
		fetchAttempts.WithLabelValues("ok").Inc()
	case statusCode == 0:
		fetchAttempts.WithLabelValues("transport").Inc()
	default:
		fetchAttempts.WithLabelValues(strconv.Itoa(statusCode)).Inc()
	}
}

// SetSupplierScore exports the latest supplier score.
func SetSupplierScore(supplierID string, score float64) {
	supplierScore.WithLabelValues(supplierID).Set(score)
}

// RecordPriceUpdates counts applied price changes.
func RecordPriceUpdates(n int) {
	priceUpdates.Add(float64(n))
}

func classifyStatus(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500 && statusCode < 600:
		return "5xx"
	}
	return "unknown"
}

// Handler exposes the Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
