package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the beacon harness.
type Metrics struct {
	config MetricsConfig

	// Campaign metrics
	campaignsStarted   *prometheus.CounterVec
	campaignsCompleted *prometheus.CounterVec
	campaignDuration   *prometheus.HistogramVec

	// Traversal metrics
	iterationsDone  *prometheus.CounterVec
	iterationsTotal *prometheus.GaugeVec
	stepDuration    *prometheus.HistogramVec
	coveragePercent *prometheus.GaugeVec

	// Solver metrics
	solverCalls     *prometheus.CounterVec
	solverDuration  *prometheus.HistogramVec
	unsatProofs      *prometheus.CounterVec
	vectorsFractured *prometheus.CounterVec

	// Findings metrics
	findingsCount *prometheus.CounterVec

	// Coordinator metrics
	signalQueueDepth    *prometheus.GaugeVec
	weightTableCells    *prometheus.GaugeVec
	directivesIssued    *prometheus.CounterVec

	// Error metrics
	errorsByClass *prometheus.CounterVec
	errorsByCode  *prometheus.CounterVec

	// System metrics
	activeCampaigns prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		campaignsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "campaigns_started_total",
				Help:      "Total number of verification campaigns started",
			},
			[]string{"spec_hash"},
		),
		campaignsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "campaigns_completed_total",
				Help:      "Total number of verification campaigns completed",
			},
			[]string{"status"},
		),
		campaignDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "campaign_duration_seconds",
				Help:      "Duration of campaign execution in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),

		iterationsDone: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "iterations_done_total",
				Help:      "Total number of traversal iterations executed",
			},
			[]string{"campaign_id"},
		),
		iterationsTotal: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "iterations_budget",
				Help:      "Configured iteration budget for a campaign",
			},
			[]string{"campaign_id"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "traversal_step_duration_seconds",
				Help:      "Duration of a single traversal step (bind, apply, check) in seconds",
				Buckets:   buckets,
			},
			[]string{"action"},
		),
		coveragePercent: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "coverage_percent",
				Help:      "Current coverage percentage for a campaign",
			},
			[]string{"campaign_id", "dimension"},
		),

		solverCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "solver_calls_total",
				Help:      "Total number of constraint solver invocations",
			},
			[]string{"stage", "result"},
		),
		solverDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "solver_call_duration_seconds",
				Help:      "Duration of constraint solver calls in seconds",
				Buckets:   buckets,
			},
			[]string{"stage"},
		),
		unsatProofs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "unsat_proofs_total",
				Help:      "Total number of UNSAT proofs recorded for unreachable vectors",
			},
			[]string{"campaign_id"},
		),
		vectorsFractured: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "vectors_fractured_total",
				Help:      "Total number of domain constraints fractured into smaller sub-problems",
			},
			[]string{"campaign_id"},
		),

		findingsCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "findings_total",
				Help:      "Total number of findings recorded",
			},
			[]string{"campaign_id", "kind", "severity"},
		),

		signalQueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "signal_queue_depth",
				Help:      "Current depth of the coordinator's signal queue",
			},
			[]string{"campaign_id"},
		),
		weightTableCells: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "weight_table_cell_count",
				Help:      "Current number of state-conditioned cells held in the weight table",
			},
			[]string{"campaign_id"},
		),
		directivesIssued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "directives_issued_total",
				Help:      "Total number of adaptation directives issued by the coordinator",
			},
			[]string{"campaign_id", "kind"},
		),

		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by error class",
			},
			[]string{"class"},
		),
		errorsByCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_code_total",
				Help:      "Total number of errors by error code",
			},
			[]string{"code"},
		),

		activeCampaigns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_campaigns",
				Help:      "Current number of running campaigns",
			},
		),
	}

	registry.MustRegister(
		m.campaignsStarted,
		m.campaignsCompleted,
		m.campaignDuration,
		m.iterationsDone,
		m.iterationsTotal,
		m.stepDuration,
		m.coveragePercent,
		m.solverCalls,
		m.solverDuration,
		m.unsatProofs,
		m.vectorsFractured,
		m.findingsCount,
		m.signalQueueDepth,
		m.weightTableCells,
		m.directivesIssued,
		m.errorsByClass,
		m.errorsByCode,
		m.activeCampaigns,
	)

	return m, nil
}

// Campaign metrics

// RecordCampaignStarted increments the counter for started campaigns.
func (m *Metrics) RecordCampaignStarted(specHash string) {
	if m.campaignsStarted == nil {
		return
	}
	m.campaignsStarted.WithLabelValues(specHash).Inc()
	m.activeCampaigns.Inc()
}

// RecordCampaignCompleted records a completed campaign with its status and duration.
func (m *Metrics) RecordCampaignCompleted(status string, duration time.Duration) {
	if m.campaignsCompleted == nil {
		return
	}
	m.campaignsCompleted.WithLabelValues(status).Inc()
	m.campaignDuration.WithLabelValues(status).Observe(duration.Seconds())
	m.activeCampaigns.Dec()
}

// Traversal metrics

// RecordIteration records one completed traversal iteration.
func (m *Metrics) RecordIteration(campaignID string) {
	if m.iterationsDone == nil {
		return
	}
	m.iterationsDone.WithLabelValues(campaignID).Inc()
}

// SetIterationBudget records the configured iteration budget for a campaign.
func (m *Metrics) SetIterationBudget(campaignID string, budget float64) {
	if m.iterationsTotal == nil {
		return
	}
	m.iterationsTotal.WithLabelValues(campaignID).Set(budget)
}

// RecordStepDuration records the time spent binding, applying, and
// checking a single action.
func (m *Metrics) RecordStepDuration(action string, duration time.Duration) {
	if m.stepDuration == nil {
		return
	}
	m.stepDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// SetCoverage sets the current coverage percentage along one dimension
// (all-pairs, boundary, each-transition).
func (m *Metrics) SetCoverage(campaignID, dimension string, percent float64) {
	if m.coveragePercent == nil {
		return
	}
	m.coveragePercent.WithLabelValues(campaignID, dimension).Set(percent)
}

// Solver metrics

// RecordSolverCall records a solver invocation at a given pipeline stage.
func (m *Metrics) RecordSolverCall(stage, result string, duration time.Duration) {
	if m.solverCalls == nil {
		return
	}
	m.solverCalls.WithLabelValues(stage, result).Inc()
	m.solverDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordUNSATProof records a newly proven-unreachable input vector.
func (m *Metrics) RecordUNSATProof(campaignID string) {
	if m.unsatProofs == nil {
		return
	}
	m.unsatProofs.WithLabelValues(campaignID).Inc()
}

// RecordVectorFractured records a domain constraint fracture.
func (m *Metrics) RecordVectorFractured(campaignID string) {
	if m.vectorsFractured == nil {
		return
	}
	m.vectorsFractured.WithLabelValues(campaignID).Inc()
}

// Findings metrics

// RecordFinding records one finding of a given kind and severity.
func (m *Metrics) RecordFinding(campaignID, kind, severity string) {
	if m.findingsCount == nil {
		return
	}
	m.findingsCount.WithLabelValues(campaignID, kind, severity).Inc()
}

// Coordinator metrics

// SetSignalQueueDepth sets the current depth of the coordinator signal queue.
func (m *Metrics) SetSignalQueueDepth(campaignID string, depth float64) {
	if m.signalQueueDepth == nil {
		return
	}
	m.signalQueueDepth.WithLabelValues(campaignID).Set(depth)
}

// SetWeightTableCellCount sets the current size of the weight table.
func (m *Metrics) SetWeightTableCellCount(campaignID string, count float64) {
	if m.weightTableCells == nil {
		return
	}
	m.weightTableCells.WithLabelValues(campaignID).Set(count)
}

// RecordDirective records an adaptation directive issued by the coordinator.
func (m *Metrics) RecordDirective(campaignID, kind string) {
	if m.directivesIssued == nil {
		return
	}
	m.directivesIssued.WithLabelValues(campaignID, kind).Inc()
}

// Error metrics

// RecordError records an error by class and optionally by code.
func (m *Metrics) RecordError(errorClass, errorCode string) {
	if m.errorsByClass == nil {
		return
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
	if errorCode != "" && m.errorsByCode != nil {
		m.errorsByCode.WithLabelValues(errorCode).Inc()
	}
}

// System metrics

// SetActiveCampaigns sets the current number of running campaigns.
func (m *Metrics) SetActiveCampaigns(count float64) {
	if m.activeCampaigns == nil {
		return
	}
	m.activeCampaigns.Set(count)
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
