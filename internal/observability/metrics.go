// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace is the metric namespace used when none is configured.
const DefaultNamespace = "sanctum_sim"

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Run metrics
	RunsTotal           *prometheus.CounterVec
	RunDuration         *prometheus.HistogramVec
	ReplicationsTotal   prometheus.Counter
	TicksSimulated      prometheus.Counter
	TripwiresTriggered  prometheus.Counter
	ChaosShocksInjected prometheus.Counter
	TerminalCash        prometheus.Histogram

	// Scenario metrics
	ScenarioOperations *prometheus.CounterVec
	ScenariosStored    prometheus.Gauge

	// Stream metrics
	StreamClients      prometheus.Gauge
	StreamMessagesSent prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Run metrics
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "total",
			Help:      "Total number of runs by mode and status",
		}, []string{"mode", "status"}),
		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "duration_seconds",
			Help:      "Run execution duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"mode"}),
		ReplicationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "replications_total",
			Help:      "Total number of replications executed, single runs included",
		}),
		TicksSimulated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "ticks_simulated_total",
			Help:      "Total number of model steps executed",
		}),
		TripwiresTriggered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "tripwires_triggered_total",
			Help:      "Total number of runs halted by the cash tripwire",
		}),
		ChaosShocksInjected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "chaos_shocks_injected_total",
			Help:      "Total number of chaos shocks injected",
		}),
		TerminalCash: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "terminal_cash",
			Help:      "Terminal cash of single runs and replications",
			Buckets:   []float64{25000, 50000, 75000, 100000, 150000, 200000, 400000},
		}),

		// Scenario metrics
		ScenarioOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scenarios",
			Name:      "operations_total",
			Help:      "Total number of scenario operations by type and outcome",
		}, []string{"operation", "outcome"}),
		ScenariosStored: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scenarios",
			Name:      "stored",
			Help:      "Current number of stored scenarios",
		}),

		// Stream metrics
		StreamClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "clients",
			Help:      "Current number of connected websocket clients",
		}),
		StreamMessagesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "messages_sent_total",
			Help:      "Total number of websocket messages sent",
		}),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

var initOnce sync.Once

// Init replaces DefaultMetrics with one under namespace.
// Only the first call has an effect; an empty or default namespace keeps DefaultMetrics.
func Init(namespace string) {
	initOnce.Do(func() {
		if namespace != "" && namespace != DefaultNamespace {
			DefaultMetrics = NewMetrics(namespace, nil)
		}
	})
}

// RecordRun records a finished single run or Monte Carlo batch.
func RecordRun(mode, status string, durationSeconds float64, nowUnix int64) {
	DefaultMetrics.RunsTotal.WithLabelValues(mode, status).Inc()
	DefaultMetrics.RunDuration.WithLabelValues(mode).Observe(durationSeconds)
	if status == "ok" {
		DefaultMetrics.LastSuccessfulRun.Set(float64(nowUnix))
	}
}

// RecordReplication records one executed replication.
func RecordReplication(ticks int, tripped bool, chaosShocks int, terminalCash float64) {
	m := DefaultMetrics
	m.ReplicationsTotal.Inc()
	m.TicksSimulated.Add(float64(ticks))
	m.ChaosShocksInjected.Add(float64(chaosShocks))
	m.TerminalCash.Observe(terminalCash)
	if tripped {
		m.TripwiresTriggered.Inc()
	}
}

// RecordScenarioOp records a scenario store operation.
func RecordScenarioOp(operation, outcome string) {
	DefaultMetrics.ScenarioOperations.WithLabelValues(operation, outcome).Inc()
}

// UpdateScenarioCount updates the stored scenarios gauge.
func UpdateScenarioCount(n int) {
	DefaultMetrics.ScenariosStored.Set(float64(n))
}

// StreamOpened increments the websocket client gauge.
func StreamOpened() {
	DefaultMetrics.StreamClients.Inc()
}

// StreamClosed decrements the websocket client gauge.
func StreamClosed() {
	DefaultMetrics.StreamClients.Dec()
}

// RecordStreamMessage increments the websocket messages counter.
func RecordStreamMessage() {
	DefaultMetrics.StreamMessagesSent.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
