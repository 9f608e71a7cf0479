// Package metrics exposes planner counters and latencies.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// CircuitState mirrors the breaker states as gauge values.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// Collector receives planner measurements. NoOp discards them.
type Collector interface {
	RecordOperation(op, outcome string, d time.Duration)
	RecordPersist(outcome string, d time.Duration)
	RecordEvent(outcome string)
	RecordHTTP(method, route string, status int, d time.Duration)
	RecordSheetsSync(outcome string, d time.Duration)
	RecordCircuitState(name string, state CircuitState)
}

// NoOp is a Collector that does nothing.
type NoOp struct{}

func (NoOp) RecordOperation(string, string, time.Duration) {}
func (NoOp) RecordPersist(string, time.Duration) {}
func (NoOp) RecordEvent(string) {}
func (NoOp) RecordHTTP(string, string, int, time.Duration) {}
func (NoOp) RecordSheetsSync(string, time.Duration) {}
func (NoOp) RecordCircuitState(string, CircuitState) {}

// Prometheus implements Collector on its own registry.
type Prometheus struct {
	registry *prometheus.Registry

	operations    *prometheus.CounterVec
	operationLat  *prometheus.HistogramVec
	persists      *prometheus.CounterVec
	persistLat    prometheus.Histogram
	events        *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpLat       *prometheus.HistogramVec
	sheetsSyncs   *prometheus.CounterVec
	sheetsSyncLat prometheus.Histogram
	circuitState  *prometheus.GaugeVec
}

// NewPrometheus registers the planner metrics under namespace plus the Go
// runtime and process collectors.
func NewPrometheus(namespace string) *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_operations_total",
				Help:      "Ledger operations by name and outcome",
			},
			[]string{"operation", "outcome"},
		),
		operationLat: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ledger_operation_duration_seconds",
				Help:      "Ledger operation latency including persistence",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15),
			},
			[]string{"operation"},
		),
		persists: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "persist_total",
				Help:      "Document saves by outcome",
			},
			[]string{"outcome"},
		),
		persistLat: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "persist_duration_seconds",
				Help:      "Document save latency",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15),
			},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Ledger change events by outcome",
			},
			[]string{"outcome"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		httpLat: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		sheetsSyncs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sheets_sync_total",
				Help:      "Spreadsheet mirror writes by outcome",
			},
			[]string{"outcome"},
		),
		sheetsSyncLat: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sheets_sync_duration_seconds",
				Help:      "Spreadsheet mirror write latency",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_state",
				Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"name"},
		),
	}

	p.registry.MustRegister(
		p.operations, p.operationLat,
		p.persists, p.persistLat,
		p.events,
		p.httpRequests, p.httpLat,
		p.sheetsSyncs, p.sheetsSyncLat,
		p.circuitState,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

// Registry exposes the underlying registry, mainly for tests.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func (p *Prometheus) RecordOperation(op, outcome string, d time.Duration) {
	p.operations.WithLabelValues(op, outcome).Inc()
	p.operationLat.WithLabelValues(op).Observe(d.Seconds())
}

func (p *Prometheus) RecordPersist(outcome string, d time.Duration) {
	p.persists.WithLabelValues(outcome).Inc()
	p.persistLat.Observe(d.Seconds())
}

func (p *Prometheus) RecordEvent(outcome string) {
	p.events.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) RecordHTTP(method, route string, status int, d time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpLat.WithLabelValues(method, route).Observe(d.Seconds())
}

func (p *Prometheus) RecordSheetsSync(outcome string, d time.Duration) {
	p.sheetsSyncs.WithLabelValues(outcome).Inc()
	p.sheetsSyncLat.Observe(d.Seconds())
}

func (p *Prometheus) RecordCircuitState(name string, state CircuitState) {
	p.circuitState.WithLabelValues(name).Set(float64(state))
}

var (
	_ Collector = NoOp{}
	_ Collector = (*Prometheus)(nil)
)
