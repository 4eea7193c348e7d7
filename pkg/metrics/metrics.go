package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "council"

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)

	// LeaseAcquire outcomes: granted, reacquired, denied.
	LeaseAcquire = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "lease_acquire_total", Help: "Edit priority acquire attempts by kind and outcome."},
		[]string{"kind", "outcome"},
	)
	// LeaseRelease outcomes: released, noop.
	LeaseRelease = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "lease_release_total", Help: "Edit priority release calls by kind and outcome."},
		[]string{"kind", "outcome"},
	)
	// ContentSave outcomes: saved, no_priority, version_conflict, not_found, error.
	ContentSave = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "content_save_total", Help: "Versioned content saves by kind and outcome."},
		[]string{"kind", "outcome"},
	)
	LeasesSwept = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "lease_swept_total", Help: "Stale edit priorities cleared by the sweeper."},
		[]string{"kind"},
	)
	SweepRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "sweep_runs_total", Help: "Sweeper passes by result (ok, error, skipped)."},
		[]string{"result"},
	)
	ArchiveFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "revision_archive_failures_total", Help: "Saved revisions that could not be archived."},
		[]string{"kind"},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests by method, route and status."},
		[]string{"method", "route", "status"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(LeaseAcquire)
	reg.MustRegister(LeaseRelease)
	reg.MustRegister(ContentSave)
	reg.MustRegister(LeasesSwept)
	reg.MustRegister(SweepRuns)
	reg.MustRegister(ArchiveFailures)
	reg.MustRegister(HTTPRequests)
}
