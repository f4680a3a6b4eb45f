// Package telemetry exposes Prometheus metrics for HTTP traffic, the
// database pool and the clinic workflows (bookings, visit transitions,
// payments). A nil *Metrics is valid and records nothing.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace   = "mediqueue"
	MetricsPath = "/metrics"
)

type Metrics struct {
	gatherer prometheus.Gatherer

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge

	dbConns *prometheus.GaugeVec

	bookingsTotal    *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	paymentsTotal    *prometheus.CounterVec
	paymentAmount    *prometheus.CounterVec
	queueWaiting     *prometheus.GaugeVec
}

// NewMetrics registers every collector on reg. A nil reg uses a fresh
// registry, so repeated construction in tests never collides.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		gatherer: reg,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Requests currently being served",
		}),
		dbConns: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "pool_connections",
			Help:      "Database pool connections by state",
		}, []string{"state"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "bookings_total",
			Help:      "Tokens booked per department and patient outcome",
		}, []string{"department", "patient"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "visit_transitions_total",
			Help:      "Visit status changes",
		}, []string{"from", "to"}),
		paymentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "payments_total",
			Help:      "Payment transactions by method and outcome",
		}, []string{"method", "status"}),
		paymentAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "payment_amount_total",
			Help:      "Sum of completed payment amounts",
		}, []string{"method"}),
		queueWaiting: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "waiting",
			Help:      "Patients waiting per department at last status read",
		}, []string{"department"}),
	}
	reg.MustRegister(
		m.requestsTotal, m.requestDuration, m.inFlight, m.dbConns,
		m.bookingsTotal, m.transitionsTotal, m.paymentsTotal, m.paymentAmount, m.queueWaiting,
	)
	return m
}

// Middleware records request counts and latency keyed by the matched route
// template, not the raw path.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil || c.Request().URL.Path == MetricsPath {
				return next(c)
			}
			m.inFlight.Inc()
			start := time.Now()
			err := next(c)
			m.inFlight.Dec()

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			m.requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() echo.HandlerFunc {
	if m == nil {
		return func(c echo.Context) error { return c.NoContent(http.StatusNotFound) }
	}
	return echo.WrapHandler(promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
}

func (m *Metrics) SetDBConnections(total, idle, acquired int32) {
	if m == nil {
		return
	}
	m.dbConns.WithLabelValues("total").Set(float64(total))
	m.dbConns.WithLabelValues("idle").Set(float64(idle))
	m.dbConns.WithLabelValues("acquired").Set(float64(acquired))
}

// ObserveBooking counts a booked token. newPatient reports whether the
// booking created the patient record.
func (m *Metrics) ObserveBooking(department string, newPatient bool) {
	if m == nil {
		return
	}
	label := "existing"
	if newPatient {
		label = "new"
	}
	m.bookingsTotal.WithLabelValues(department, label).Inc()
}

func (m *Metrics) ObserveVisitTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ObservePayment(method, status string, amount float64) {
	if m == nil {
		return
	}
	m.paymentsTotal.WithLabelValues(method, status).Inc()
	if status == "completed" && amount > 0 {
		m.paymentAmount.WithLabelValues(method).Add(amount)
	}
}

func (m *Metrics) SetQueueWaiting(department string, waiting int) {
	if m == nil {
		return
	}
	m.queueWaiting.WithLabelValues(department).Set(float64(waiting))
}
