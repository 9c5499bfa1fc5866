package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Access control
	AccessDecisions *prometheus.CounterVec // result: granted|denied|unmapped
	AccessLatency   prometheus.Histogram

	// Pharmacy
	TransfersCreated  *prometheus.CounterVec // kind
	TransfersExecuted *prometheus.CounterVec // kind, status
	PackOrdersTotal   *prometheus.CounterVec // status
	StockShortfalls   prometheus.Counter

	// Authorization workflow
	AuthCodesGenerated  prometheus.Counter
	AuthCodeCollisions  prometheus.Counter
	PendingAuthRequests prometheus.Gauge

	// Database
	DatabaseOperations *prometheus.CounterVec
	DatabaseLatency    *prometheus.HistogramVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		AccessDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_decisions_total",
			Help:      "Access control decisions by result",
		}, []string{"result"}),
		AccessLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "access_check_duration_seconds",
			Help:      "Time spent evaluating access control per request",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1},
		}),
		TransfersCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_created_total",
			Help:      "Stock transfers created by kind",
		}, []string{"kind"}),
		TransfersExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_executed_total",
			Help:      "Stock transfers reaching a terminal state",
		}, []string{"kind", "status"}),
		PackOrdersTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pack_orders_total",
			Help:      "Pack orders by resulting status",
		}, []string{"status"}),
		StockShortfalls: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pack_stock_shortfalls_total",
			Help:      "Pack items that could not be fully sourced",
		}),
		AuthCodesGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authorization_codes_generated_total",
			Help:      "Authorization codes issued",
		}),
		AuthCodeCollisions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authorization_code_collisions_total",
			Help:      "Auto-generated code collisions that forced a retry",
		}),
		PendingAuthRequests: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "authorization_requests_pending",
			Help:      "Records currently pending desk-office authorization",
		}),
		DatabaseOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Database operations by table and action",
		}, []string{"table", "action"}),
		DatabaseLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "database_operation_duration_seconds",
			Help:      "Database operation latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"table"}),
	}
}
