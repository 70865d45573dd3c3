package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "feedback"

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "http_requests_total", Help: "Served API requests",
	}, []string{"method", "code"})
	BotUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "bot_updates_total", Help: "Processed telegram updates",
	})
	HandlerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "handler_errors_total", Help: "Handler errors",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
	Logins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "logins_total", Help: "Login attempts by outcome",
	}, []string{"outcome"})
	ResponsesSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "responses_submitted_total", Help: "Stored feedback responses",
	})
	ResponsesDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "responses_deleted_total", Help: "Feedback responses removed by students",
	})
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "active_sessions", Help: "Live login sessions",
	})
	SessionsExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "sessions_expired_total", Help: "Sessions removed by the sweep job",
	})

	// фоновые задачи, метка job: имя задачи в jobs.Runner
	JobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "job", Name: "runs_total", Help: "Background job runs",
	}, []string{"job"})
	JobErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "job", Name: "errors_total", Help: "Failed background job runs",
	}, []string{"job"})
	JobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "job", Name: "duration_seconds", Help: "Background job duration",
		Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
	}, []string{"job"})
)

func init() {
	prometheus.MustRegister(HTTPRequests, BotUpdates, HandlerErrors, DBPing,
		Logins, ResponsesSubmitted, ResponsesDeleted, ActiveSessions, SessionsExpired,
		JobRuns, JobErrors, JobDuration)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

func ObserveJob(name string, d time.Duration, err error) {
	if err != nil {
		JobErrors.WithLabelValues(name).Inc()
	}
	JobRuns.WithLabelValues(name).Inc()
	JobDuration.WithLabelValues(name).Observe(d.Seconds())
}

// Исходы логина для метки outcome.
const (
	LoginOK       = "ok"
	LoginBadCreds = "auth_failure"
	LoginNoRole   = "not_found"
	LoginError    = "error"
)
