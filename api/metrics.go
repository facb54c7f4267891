package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/raushankrgupta/temple-connect/followup"
	"github.com/raushankrgupta/temple-connect/models"
)

// Metrics owns a private registry so tests can build as many routers as they like.
type Metrics struct {
	Registry *prometheus.Registry

	otpIssued       *prometheus.CounterVec
	otpVerified     *prometheus.CounterVec
	assigned        *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		otpIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "otp_issued_total",
			Help: "One-time codes issued.",
		}, []string{"channel", "purpose"}),
		otpVerified: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "otp_verifications_total",
			Help: "One-time code verification attempts by result.",
		}, []string{"result"}),
		assigned: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "followups_assigned_total",
			Help: "Follow-ups created by the scheduler.",
		}, []string{"mode"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

func (m *Metrics) Issued(channel models.Channel, purpose models.Purpose) {
	m.otpIssued.WithLabelValues(string(channel), string(purpose)).Inc()
}

func (m *Metrics) Verified(result string) {
	m.otpVerified.WithLabelValues(result).Inc()
}

func (m *Metrics) Assigned(mode followup.Mode, n int) {
	m.assigned.WithLabelValues(string(mode)).Add(float64(n))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Instrument records request counts and latency by route pattern.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
