package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics структура для метрик Prometheus
type Metrics struct {
	UpdatesTotal         *prometheus.CounterVec
	UpdateProcessingTime prometheus.Histogram
	ErrorsTotal          prometheus.Counter
	RateLimited          prometheus.Counter
	BookingsCreated      *prometheus.CounterVec
	CommitFailures       *prometheus.CounterVec
	AdminDecisions       *prometheus.CounterVec
	RemindersSent        prometheus.Counter
}

// NewMetrics создает метрики бота в reg. nil reg оставляет их незарегистрированными.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UpdatesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_bot_updates_total",
			Help: "Total number of processed updates by kind",
		}, []string{"kind"}),

		UpdateProcessingTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "telegram_bot_update_processing_time_seconds",
			Help:    "Time spent processing updates",
			Buckets: prometheus.DefBuckets,
		}),

		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "telegram_bot_errors_total",
			Help: "Total number of recovered handler panics",
		}),

		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "telegram_bot_rate_limited_total",
			Help: "Total number of updates dropped by the per-user rate limit",
		}),

		BookingsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_bot_bookings_created_total",
			Help: "Total number of bookings created",
		}, []string{"service"}),

		CommitFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_bot_commit_failures_total",
			Help: "Total number of booking commits that failed",
		}, []string{"reason"}),

		AdminDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_bot_admin_decisions_total",
			Help: "Total number of admin decisions on bookings",
		}, []string{"decision"}),

		RemindersSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "telegram_bot_reminders_sent_total",
			Help: "Total number of reminders sent to requesters",
		}),
	}
}
