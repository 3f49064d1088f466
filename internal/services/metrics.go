package services

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"
)

// Registry holds every metric exposed on /metrics.
var Registry = prometheus.NewRegistry()

var (
	eventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ideaforge",
		Name:      "events_published_total",
		Help:      "Project change events published to SSE subscribers.",
	}, []string{"entity", "action"})

	generationCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ideaforge",
		Name:      "generation_calls_total",
		Help:      "LLM generation calls by operation, provider and outcome.",
	}, []string{"operation", "provider", "outcome"})

	generationLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ideaforge",
		Name:      "generation_latency_seconds",
		Help:      "Latency of successful LLM generation calls.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
	}, []string{"operation"})

	notificationsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ideaforge",
		Name:      "notifications_total",
		Help:      "Collaboration notifications by type and outcome.",
	}, []string{"type", "outcome"})

	wizardSteps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ideaforge",
		Name:      "wizard_steps_completed_total",
		Help:      "Wizard steps completed, by step number.",
	}, []string{"step"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		eventsPublished,
		generationCalls,
		generationLatency,
		notificationsSent,
		wizardSteps,
	)
}

var runtimeMetricsOnce sync.Once

// RegisterRuntimeMetrics adds gauges that read live state from the database,
// the SSE hub and the notification queue. Later calls are ignored.
func RegisterRuntimeMetrics(db *gorm.DB, hub *SSEHub, queue TaskQueue) {
	runtimeMetricsOnce.Do(func() {
		if sqlDB, err := db.DB(); err == nil {
			Registry.MustRegister(collectors.NewDBStatsCollector(sqlDB, "ideaforge"))
		}
		Registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "ideaforge",
			Name:      "sse_active_clients",
			Help:      "Number of active SSE connections.",
		}, func() float64 { return float64(hub.ClientCount()) }))
		Registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "ideaforge",
			Name:      "queue_async_enabled",
			Help:      "Whether the Redis notification queue is enabled (1=yes, 0=no).",
		}, func() float64 {
			if queue != nil && queue.IsAsync() {
				return 1
			}
			return 0
		}))
	})
}
