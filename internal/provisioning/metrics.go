package provisioning

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records run statistics on a private registry so they can be
// written to a node-exporter textfile when the run ends.
type Metrics struct {
	registry *prometheus.Registry

	candidatesTotal *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	runDuration     prometheus.Gauge
	lastRun         prometheus.Gauge
}

// NewMetrics creates metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		candidatesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geoprov",
			Name:      "candidates_total",
			Help:      "Candidates processed by final state",
		}, []string{"region", "outcome"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "geoprov",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}, []string{"stage", "result"}),
		runDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "geoprov",
			Name:      "run_duration_seconds",
			Help:      "Duration of the last run in seconds",
		}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "geoprov",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}
}

func (m *Metrics) observeStage(stage string, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.stageDuration.WithLabelValues(stage, result).Observe(d.Seconds())
}

func (m *Metrics) recordOutcome(region string, o Outcome) {
	if m == nil {
		return
	}
	m.candidatesTotal.WithLabelValues(region, o.State.String()).Inc()
}

func (m *Metrics) recordRun(s *Summary, finished time.Time) {
	if m == nil {
		return
	}
	m.runDuration.Set(s.Elapsed.Seconds())
	m.lastRun.Set(float64(finished.Unix()))
}

// WriteTextfile writes all metrics to path in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
