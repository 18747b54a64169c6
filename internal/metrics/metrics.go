// Package metrics exposes Prometheus collectors for the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ProfileViews counts recorded (deduplicated) profile views.
	ProfileViews = promauto.NewCounter(prometheus.CounterOpts{
		Name: "biolinq_profile_views_total",
		Help: "Total number of recorded profile views",
	})

	// LinkClicks counts tracked link redirects.
	LinkClicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "biolinq_link_clicks_total",
		Help: "Total number of tracked link clicks",
	})

	// DomainVerifications counts DNS verification attempts by step and result.
	DomainVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "biolinq_domain_verifications_total",
		Help: "Custom domain verification attempts by step and result",
	}, []string{"step", "result"})

	// WebhookEvents counts payment webhook deliveries by event type and result.
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "biolinq_webhook_events_total",
		Help: "Payment webhook events by type and result",
	}, []string{"type", "result"})

	// VisitsFlushed counts visit rows written by the analytics collector.
	VisitsFlushed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "biolinq_visits_flushed_total",
		Help: "Total number of visits written to the visit log",
	})

	// VisitsDropped counts visits dropped because the collector buffer was full.
	VisitsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "biolinq_visits_dropped_total",
		Help: "Total number of visits dropped due to a full buffer",
	})

	// RateLimited counts requests rejected by the rate limiter by bucket.
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "biolinq_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	}, []string{"bucket"})

	// RequestDuration records request latency by route pattern.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "biolinq_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware observes RequestDuration. Unmatched routes are grouped under
// "unmatched" to keep label cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		RequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
