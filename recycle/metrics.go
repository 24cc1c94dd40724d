package recycle

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "lvflow"
	metricsSubsystem = "recycle"
)

// Metrics are the engine's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec   // by status
	RunDuration     prometheus.Histogram     // seconds per Run
	PassesTotal     *prometheus.CounterVec   // by group
	Residual        *prometheus.GaugeVec     // last relative flow residual by group
	UnitDuration    *prometheus.HistogramVec // seconds per Simulate by unit
	UnitErrorsTotal *prometheus.CounterVec   // by unit
}

// NewMetrics registers the collectors with reg (prometheus.DefaultRegisterer
// when nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "runs_total",
			Help:      "Flowsheet runs by outcome.",
		}, []string{"status"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a flowsheet run.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		PassesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "passes_total",
			Help:      "Recycle passes by group.",
		}, []string{"group"}),
		Residual: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "residual",
			Help:      "Largest relative tear flow error of the last pass.",
		}, []string{"group"}),
		UnitDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "unit_duration_seconds",
			Help:      "Wall time of one unit simulation.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"unit"}),
		UnitErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "unit_errors_total",
			Help:      "Failed unit simulations by unit.",
		}, []string{"unit"}),
	}
}

func (m *Metrics) run(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(d.Seconds())
}

func (m *Metrics) pass(group string, r Residual) {
	if m == nil {
		return
	}
	m.PassesTotal.WithLabelValues(group).Inc()
	m.Residual.WithLabelValues(group).Set(r.Flow)
}

func (m *Metrics) unit(id string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.UnitDuration.WithLabelValues(id).Observe(d.Seconds())
	if err != nil {
		m.UnitErrorsTotal.WithLabelValues(id).Inc()
	}
}
