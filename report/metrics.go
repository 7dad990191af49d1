package report

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jadesonbruno/dataquality/rules"
)

// MetricsSink records run results as Prometheus metrics.
type MetricsSink struct {
	runsTotal      *prometheus.CounterVec
	outcomesTotal  *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	lastSuccess    *prometheus.GaugeVec
	successPercent *prometheus.GaugeVec
}

// NewMetricsSink registers the validation metrics with reg. Pass
// prometheus.DefaultRegisterer to expose them on the default /metrics
// handler.
func NewMetricsSink(reg prometheus.Registerer) *MetricsSink {
	factory := promauto.With(reg)
	return &MetricsSink{
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dq_validation_runs_total",
				Help: "Total number of validation runs by suite and status",
			},
			[]string{"suite", "status"},
		),
		outcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dq_rule_outcomes_total",
				Help: "Total number of rule outcomes by suite, kind, severity and status",
			},
			[]string{"suite", "kind", "severity", "status"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dq_validation_run_duration_seconds",
				Help:    "Duration of validation runs in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"suite"},
		),
		lastSuccess: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dq_last_run_success",
				Help: "1 if the latest run of the suite succeeded, 0 otherwise",
			},
			[]string{"suite"},
		),
		successPercent: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dq_last_run_success_percent",
				Help: "Share of passing rules in the latest run of the suite",
			},
			[]string{"suite"},
		),
	}
}

func (m *MetricsSink) Name() string { return "metrics" }

func (m *MetricsSink) Publish(_ context.Context, r *rules.RunResult) error {
	m.runsTotal.WithLabelValues(r.Suite, status(r.Success)).Inc()
	for _, o := range r.Outcomes {
		m.outcomesTotal.WithLabelValues(r.Suite, string(o.Rule.Kind), string(o.Rule.Severity), status(o.Passed)).Inc()
	}
	m.runDuration.WithLabelValues(r.Suite).Observe(r.Duration().Seconds())

	success := 0.0
	if r.Success {
		success = 1
	}
	m.lastSuccess.WithLabelValues(r.Suite).Set(success)
	m.successPercent.WithLabelValues(r.Suite).Set(r.Statistics().SuccessPercent)
	return nil
}

func status(passed bool) string {
	if passed {
		return "passed"
	}
	return "failed"
}

var _ rules.Sink = (*MetricsSink)(nil)
