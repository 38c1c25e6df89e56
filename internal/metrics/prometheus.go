package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "askify_provider_requests_total",
		Help: "Total number of external provider calls, by provider and outcome",
	}, []string{"provider", "outcome"})

	ProviderRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "askify_provider_request_duration_seconds",
		Help:    "Latency of external provider calls",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"provider"})

	PipelineStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "askify_pipeline_stage_duration_seconds",
		Help:    "Duration of each explanation pipeline stage",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"stage"})

	DubJobsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "askify_dub_jobs_created_total",
		Help: "Dub job creation attempts, by outcome",
	}, []string{"outcome"})

	DubPollAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "askify_dub_poll_attempts_total",
		Help: "Total number of dub job status polls",
	})

	// A job polled again after finishing is counted again.
	DubTerminalObservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "askify_dub_terminal_observations_total",
		Help: "Status queries that found a dub job in a terminal state, by status",
	}, []string{"status"})

	DownloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "askify_downloads_total",
		Help: "Finished background downloads, by status and error code",
	}, []string{"status", "code"})

	ActiveDownloads = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "askify_active_downloads",
		Help: "Number of downloads currently running in the worker pool",
	})

	TrackedDownloads = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "askify_tracked_downloads",
		Help: "Number of download progress records held in memory",
	})
)

// ObserveProvider records one provider call.
func ObserveProvider(provider string, seconds float64, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ProviderRequestsTotal.WithLabelValues(provider, outcome).Inc()
	ProviderRequestDuration.WithLabelValues(provider).Observe(seconds)
}
