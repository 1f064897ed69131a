package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var httpMetricLabels = []string{"method", "route", "status"}

// HTTPMetricsOptions configures the HTTP metrics middleware. Zero values
// fall back to the service defaults and the global Prometheus registerer.
type HTTPMetricsOptions struct {
	Registerer prometheus.Registerer
	Namespace  string
	Subsystem  string
	Buckets    []float64
}

func (o HTTPMetricsOptions) withDefaults() HTTPMetricsOptions {
	if o.Namespace == "" {
		o.Namespace = "watchvibe"
	}
	if o.Subsystem == "" {
		o.Subsystem = "http"
	}
	if o.Registerer == nil {
		o.Registerer = prometheus.DefaultRegisterer
	}
	if len(o.Buckets) == 0 {
		o.Buckets = prometheus.DefBuckets
	}
	return o
}

// HTTPMetrics exposes Prometheus collectors for request instrumentation.
type HTTPMetrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	InFlight prometheus.Gauge
}

// register adds a collector to the registerer, reusing an already
// registered collector of the same identity when one exists.
func register[C prometheus.Collector](reg prometheus.Registerer, name string, collector C) (C, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var already prometheus.AlreadyRegisteredError
	if !errors.As(err, &already) {
		return collector, fmt.Errorf("register %s collector: %w", name, err)
	}

	existing, ok := already.ExistingCollector.(C)
	if !ok {
		return collector, fmt.Errorf("existing %s collector has unexpected type %T", name, already.ExistingCollector)
	}
	return existing, nil
}

// NewHTTPMetrics constructs the request counter, latency histogram, and
// in-flight gauge and registers them with the configured registerer.
func NewHTTPMetrics(opts HTTPMetricsOptions) (*HTTPMetrics, error) {
	opts = opts.withDefaults()

	requests, err := register(opts.Registerer, "requests", prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: opts.Namespace,
		Subsystem: opts.Subsystem,
		Name:      "requests_total",
		Help:      "Total number of HTTP requests partitioned by method, route, and status code.",
	}, httpMetricLabels))
	if err != nil {
		return nil, err
	}

	duration, err := register(opts.Registerer, "duration", prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: opts.Namespace,
		Subsystem: opts.Subsystem,
		Name:      "request_duration_seconds",
		Help:      "Histogram of HTTP request latencies in seconds partitioned by method, route, and status code.",
		Buckets:   opts.Buckets,
	}, httpMetricLabels))
	if err != nil {
		return nil, err
	}

	inFlight, err := register[prometheus.Gauge](opts.Registerer, "inflight", prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: opts.Namespace,
		Subsystem: opts.Subsystem,
		Name:      "in_flight_requests",
		Help:      "Current number of in-flight HTTP requests.",
	}))
	if err != nil {
		return nil, err
	}

	return &HTTPMetrics{Requests: requests, Duration: duration, InFlight: inFlight}, nil
}

// Handler returns a Gin middleware that records the HTTP metrics. A nil
// receiver yields a pass-through handler so callers can disable metrics
// without branching at the call site.
func (m *HTTPMetrics) Handler() gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		start := time.Now()
		m.InFlight.Inc()
		defer m.InFlight.Dec()

		c.Next()

		m.observe(c, time.Since(start))
	}
}

func (m *HTTPMetrics) observe(c *gin.Context, elapsed time.Duration) {
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}

	labels := prometheus.Labels{
		"method": c.Request.Method,
		"route":  route,
		"status": strconv.Itoa(c.Writer.Status()),
	}

	m.Requests.With(labels).Inc()
	m.Duration.With(labels).Observe(elapsed.Seconds())
}
