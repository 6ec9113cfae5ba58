package metricsvc

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core/placement"
)

const namespace = "schoolscan"

// PlacementRecorder exports placement workflow counters.
type PlacementRecorder struct {
	staged         prometheus.Counter
	committed      prometheus.Counter
	skipped        *prometheus.CounterVec
	commitFailures prometheus.Counter
	commitDuration prometheus.Histogram
}

var _ placement.Recorder = (*PlacementRecorder)(nil)

func NewPlacementRecorder(reg prometheus.Registerer) *PlacementRecorder {
	f := promauto.With(reg)
	return &PlacementRecorder{
		staged: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "placement",
			Name:      "staged_total",
			Help:      "Total number of placements staged into operator sessions.",
		}),
		committed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "placement",
			Name:      "committed_enrollments_total",
			Help:      "Total number of enrollments written by placement commits.",
		}),
		skipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "placement",
			Name:      "skipped_total",
			Help:      "Total number of placements skipped at commit, by reason code.",
		}, []string{"code"}),
		commitFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "placement",
			Name:      "commit_failures_total",
			Help:      "Total number of placement commits rolled back.",
		}),
		commitDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "placement",
			Name:      "commit_duration_seconds",
			Help:      "Duration of the placement commit transaction.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}),
	}
}

func (r *PlacementRecorder) PlacementsStaged(n int)               { r.staged.Add(float64(n)) }
func (r *PlacementRecorder) PlacementSkipped(code placement.Code) { r.skipped.WithLabelValues(string(code)).Inc() }
func (r *PlacementRecorder) EnrollmentsCommitted(n int)           { r.committed.Add(float64(n)) }
func (r *PlacementRecorder) CommitFailed()                        { r.commitFailures.Inc() }
func (r *PlacementRecorder) CommitDuration(d time.Duration)       { r.commitDuration.Observe(d.Seconds()) }
