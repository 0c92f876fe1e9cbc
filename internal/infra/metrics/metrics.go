package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	FeedPagesLoaded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_pages_loaded_total",
		Help: "Количество загруженных страниц ленты",
	}, []string{"filter"})
	FeedPageErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_page_errors_total",
		Help: "Ошибки загрузки страниц ленты",
	})
	EngagementToggles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engagement_toggles_total",
		Help: "Количество оптимистичных переключений",
	}, []string{"kind"})
	EngagementRollbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engagement_rollbacks_total",
		Help: "Количество откатов оптимистичных переключений",
	}, []string{"kind"})
	StaleResponses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engagement_stale_responses_total",
		Help: "Ответы, отброшенные по версии",
	})
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "feed_sessions_active",
		Help: "Число живых сессий ленты",
	})

	BackendRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backend_request_duration_seconds",
		Help:    "Длительность запросов к бэкенду",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "status"})

	BackendRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backend_request_total",
		Help: "Количество запросов к бэкенду",
	}, []string{"operation", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		FeedPagesLoaded,
		FeedPageErrors,
		EngagementToggles,
		EngagementRollbacks,
		StaleResponses,
		ActiveSessions,
		BackendRequestDuration,
		BackendRequestTotal,
	)
}

// ObserveBackendRequest записывает длительность и статус запроса к бэкенду.
func ObserveBackendRequest(operation string, start time.Time, err error) {
	if operation == "" {
		operation = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	BackendRequestDuration.WithLabelValues(operation, status).Observe(duration)
	BackendRequestTotal.WithLabelValues(operation, status).Inc()
}
