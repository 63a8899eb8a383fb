package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Telemetry holds the pipeline's prometheus instruments. All methods are
// nil-safe so collaborators can run without metrics in tests.
type Telemetry struct {
	runsStarted   prometheus.Counter
	runsCompleted prometheus.Counter
	runsFailed    prometheus.Counter
	fallbackRuns  prometheus.Counter
	stageRetries  *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
}

// New registers the pipeline instruments with reg and returns them.
func New(reg prometheus.Registerer) *Telemetry {
	t := &Telemetry{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "postforge_runs_started_total",
			Help: "Number of pipeline runs started.",
		}),
		runsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "postforge_runs_completed_total",
			Help: "Number of pipeline runs that reached completed.",
		}),
		runsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "postforge_runs_failed_total",
			Help: "Number of pipeline runs that reached failed.",
		}),
		fallbackRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "postforge_research_fallbacks_total",
			Help: "Number of runs that used the direct search fallback.",
		}),
		stageRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postforge_stage_retries_total",
			Help: "Number of rate-limit retries per stage.",
		}, []string{"stage"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "postforge_stage_duration_seconds",
			Help:    "Wall-clock duration of stage invocations.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"stage"}),
	}
	reg.MustRegister(t.runsStarted, t.runsCompleted, t.runsFailed, t.fallbackRuns, t.stageRetries, t.stageDuration)
	return t
}

func (t *Telemetry) RunStarted() {
	if t != nil {
		t.runsStarted.Inc()
	}
}

func (t *Telemetry) RunCompleted() {
	if t != nil {
		t.runsCompleted.Inc()
	}
}

func (t *Telemetry) RunFailed() {
	if t != nil {
		t.runsFailed.Inc()
	}
}

func (t *Telemetry) FallbackUsed() {
	if t != nil {
		t.fallbackRuns.Inc()
	}
}

func (t *Telemetry) StageRetried(stage string) {
	if t != nil {
		t.stageRetries.WithLabelValues(stage).Inc()
	}
}

func (t *Telemetry) StageObserved(stage string, seconds float64) {
	if t != nil {
		t.stageDuration.WithLabelValues(stage).Observe(seconds)
	}
}
