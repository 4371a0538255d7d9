// Package metrics defines the Prometheus instrumentation for the monitor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchesTotal counts HTTP fetches attempted, conditional or not.
	FetchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rindo_fetches_total",
		Help: "Total HTTP fetches attempted by the monitor.",
	})
	// FetchErrorsTotal counts transport failures (timeouts, non-2xx other than 304).
	FetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rindo_fetch_errors_total",
		Help: "Total fetches that failed at the transport level.",
	})
	// UnchangedTotal counts pages skipped because their fingerprint matched.
	UnchangedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rindo_unchanged_total",
		Help: "Total fetches skipped as unchanged by fingerprint match.",
	})
	// PagesProcessedTotal counts pages that went through extraction.
	PagesProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rindo_pages_processed_total",
		Help: "Total pages dispatched to an extractor.",
	})
	// ExtractFailuresTotal counts extraction stages that errored and were
	// downgraded to zero events.
	ExtractFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rindo_extract_failures_total",
		Help: "Total extraction stages that failed and yielded zero events.",
	})
	// EventsMergedTotal counts raw events accepted by the merge engine.
	EventsMergedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rindo_events_merged_total",
		Help: "Total raw events merged into the event store.",
	})
)
