// Package metrics holds the backend's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "workoutlog"

type Metrics struct {
	rpcRequests   *prometheus.CounterVec
	rpcDuration   *prometheus.HistogramVec
	subscriptions prometheus.Gauge
	writes        *prometheus.CounterVec
	backups       *prometheus.CounterVec
	lastBackup    prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "grpc",
			Name:      "requests_total",
			Help:      "Number of gRPC calls grouped by method and status code.",
		}, []string{"method", "code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "grpc",
			Name:      "request_duration_seconds",
			Help:      "Latency of unary gRPC calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "active_subscriptions",
			Help:      "Number of open data-store subscriptions.",
		}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "writes_total",
			Help:      "Number of committed data-store writes by operation.",
		}, []string{"op"}),
		backups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backup",
			Name:      "runs_total",
			Help:      "Number of backup runs by result.",
		}, []string{"result"}),
		lastBackup: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "backup",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix timestamp of the most recent successful backup.",
		}),
	}
	reg.MustRegister(m.rpcRequests, m.rpcDuration, m.subscriptions, m.writes, m.backups, m.lastBackup)
	return m
}

func (m *Metrics) ObserveRPC(method, code string, d time.Duration) {
	m.rpcRequests.WithLabelValues(method, code).Inc()
	m.rpcDuration.WithLabelValues(method).Observe(d.Seconds())
}

// CountRPC records a streaming call, whose duration is the stream lifetime.
func (m *Metrics) CountRPC(method, code string) {
	m.rpcRequests.WithLabelValues(method, code).Inc()
}

func (m *Metrics) SubscriptionOpened() { m.subscriptions.Inc() }
func (m *Metrics) SubscriptionClosed() { m.subscriptions.Dec() }

func (m *Metrics) Write(op string) { m.writes.WithLabelValues(op).Inc() }

func (m *Metrics) Backup(err error, at time.Time) {
	if err != nil {
		m.backups.WithLabelValues("error").Inc()
		return
	}
	m.backups.WithLabelValues("ok").Inc()
	m.lastBackup.Set(float64(at.Unix()))
}
