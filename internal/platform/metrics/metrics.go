package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for refresh cycles, feeds, role
// edits and claims. A nil *Metrics is valid and records nothing.
type Metrics struct {
	CycleOutcome   *prometheus.CounterVec
	CycleDuration  prometheus.Histogram
	FeedDuration   *prometheus.HistogramVec
	FeedFailures   *prometheus.CounterVec
	CachedNations  prometheus.Gauge
	RoleEdits      *prometheus.CounterVec
	ClaimOutcome   *prometheus.CounterVec
	SchedulerState *prometheus.GaugeVec
	WritebackFails prometheus.Counter
}

// New creates and registers all collectors with the default registry.
func New() *Metrics {
	return &Metrics{
		CycleOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "citizenship_refresh_cycles_total",
			Help: "Refresh cycles by outcome",
		}, []string{"outcome"}), // ok, aggregate_failed, reconcile_failed, cancelled

		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "citizenship_refresh_cycle_duration_seconds",
			Help:    "Duration of a full aggregate and reconcile cycle",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}),

		FeedDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "citizenship_feed_duration_seconds",
			Help:    "Duration of one feed contribution including retries",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"feed"}),

		FeedFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "citizenship_feed_failures_total",
			Help: "Failed feed attempts by feed and error category",
		}, []string{"feed", "category"}),

		CachedNations: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "citizenship_title_cache_nations",
			Help: "Nations present in the committed title cache",
		}),

		RoleEdits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "citizenship_role_edits_total",
			Help: "Member role edits by result",
		}, []string{"result"}), // applied, dry_run, forbidden, failed

		ClaimOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "citizenship_claims_total",
			Help: "Claim attempts by outcome",
		}, []string{"outcome"}),

		SchedulerState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "citizenship_scheduler_state",
			Help: "1 for the scheduler's current state, 0 otherwise",
		}, []string{"state"}),

		WritebackFails: promauto.NewCounter(prometheus.CounterOpts{
			Name: "citizenship_identity_writeback_failures_total",
			Help: "Identity write-backs that failed to persist",
		}),
	}
}

// IncCycle records a finished cycle.
func (m *Metrics) IncCycle(outcome string, d time.Duration) {
	if m != nil {
		m.CycleOutcome.WithLabelValues(outcome).Inc()
		m.CycleDuration.Observe(d.Seconds())
	}
}

// ObserveFeed records how long a feed took.
func (m *Metrics) ObserveFeed(feed string, d time.Duration) {
	if m != nil {
		m.FeedDuration.WithLabelValues(feed).Observe(d.Seconds())
	}
}

// IncFeedFailure records one failed feed attempt.
func (m *Metrics) IncFeedFailure(feed, category string) {
	if m != nil {
		m.FeedFailures.WithLabelValues(feed, category).Inc()
	}
}

// SetCachedNations records the size of the committed cache.
func (m *Metrics) SetCachedNations(n int) {
	if m != nil {
		m.CachedNations.Set(float64(n))
	}
}

// IncRoleEdit records a role edit result.
func (m *Metrics) IncRoleEdit(result string) {
	if m != nil {
		m.RoleEdits.WithLabelValues(result).Inc()
	}
}

// IncClaim records a claim outcome.
func (m *Metrics) IncClaim(outcome string) {
	if m != nil {
		m.ClaimOutcome.WithLabelValues(outcome).Inc()
	}
}

// SetSchedulerState flips the state gauge so exactly one state reads 1.
func (m *Metrics) SetSchedulerState(current string, all []string) {
	if m == nil {
		return
	}
	for _, s := range all {
		v := 0.0
		if s == current {
			v = 1
		}
		m.SchedulerState.WithLabelValues(s).Set(v)
	}
}

// IncWritebackFailure records a failed identity persistence.
func (m *Metrics) IncWritebackFailure() {
	if m != nil {
		m.WritebackFails.Inc()
	}
}
