package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "counselportal"

var (
	once sync.Once

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "REST calls to the portal API by route and status code.",
		},
		[]string{"method", "route", "code"},
	)

	apiDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Latency of REST calls to the portal API.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 5, 10},
		},
		[]string{"route"},
	)

	apiCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_cache_total",
			Help:      "GET cache lookups by result.",
		},
		[]string{"result"},
	)

	tokenRefresh = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refresh_total",
			Help:      "Access token refresh attempts by outcome.",
		},
		[]string{"outcome"},
	)

	appointmentActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointment_actions_total",
			Help:      "Consultant actions on appointments by action and outcome.",
		},
		[]string{"action", "outcome"},
	)

	slotRegistrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_registrations_total",
			Help:      "Slot registration attempts by outcome.",
		},
		[]string{"outcome"},
	)

	refreshRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_runs_total",
			Help:      "Background refresh runs by task and outcome.",
		},
		[]string{"task", "outcome"},
	)

	refreshDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of background refresh runs.",
			Buckets:   []float64{.1, .25, .5, 1, 2, 5, 10, 30},
		},
		[]string{"task"},
	)

	remindersSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meeting_soon_notifications_total",
			Help:      "Meeting-soon notifications published.",
		},
	)

	rateLimitWaits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_waits_total",
			Help:      "Requests delayed by the client-side rate limiter.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			apiRequests, apiDuration, apiCache, tokenRefresh,
			appointmentActions, slotRegistrations,
			refreshRuns, refreshDuration,
			remindersSent, rateLimitWaits,
		)
	})
}

func ObserveAPIRequest(method, route, code string, elapsed time.Duration) {
	apiRequests.WithLabelValues(method, route, code).Inc()
	apiDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func IncCache(hit bool) {
	if hit {
		apiCache.WithLabelValues("hit").Inc()
		return
	}
	apiCache.WithLabelValues("miss").Inc()
}

func IncTokenRefresh(outcome string) {
	tokenRefresh.WithLabelValues(outcome).Inc()
}

func IncAppointmentAction(action, outcome string) {
	appointmentActions.WithLabelValues(action, outcome).Inc()
}

func IncSlotRegistration(outcome string) {
	slotRegistrations.WithLabelValues(outcome).Inc()
}

func ObserveRefresh(task, outcome string, elapsed time.Duration) {
	refreshRuns.WithLabelValues(task, outcome).Inc()
	refreshDuration.WithLabelValues(task).Observe(elapsed.Seconds())
}

func IncMeetingSoon() {
	remindersSent.Inc()
}

func IncRateLimitWait() {
	rateLimitWaits.Inc()
}

// Outcome maps an error to the "ok"/"error" label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
