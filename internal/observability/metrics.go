package observability

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/czml-forge/czml"
)

// Collector bundles Prometheus metrics for the document service and
// provides helpers to wire them into HTTP handlers.
type Collector struct {
	gatherer prometheus.Gatherer

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec

	DocumentsBuilt     prometheus.Counter
	BuildFailures      *prometheus.CounterVec
	PacketsPerDocument prometheus.Histogram
	BuildDuration      prometheus.Histogram

	CatalogEntities prometheus.Gauge
}

// NewCollector registers the service metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "czml_http_requests_total",
		Help: "Total number of handled HTTP requests, labeled by handler, method, and status code.",
	}, []string{"handler", "method", "code"})
	requests, err := registerCounterVec(reg, requests, "czml_http_requests_total")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "czml_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"handler", "method"})
	durations, err = registerHistogramVec(reg, durations, "czml_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	built := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "czml_documents_built_total",
		Help: "Total number of documents assembled successfully.",
	})
	built, err = registerCounter(reg, built, "czml_documents_built_total")
	if err != nil {
		return nil, err
	}

	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "czml_build_failures_total",
		Help: "Total number of rejected builds and assemblies, labeled by failure reason.",
	}, []string{"reason"})
	failures, err = registerCounterVec(reg, failures, "czml_build_failures_total")
	if err != nil {
		return nil, err
	}

	packets := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "czml_packets_per_document",
		Help:    "Entity packet count of assembled documents.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
	packets, err = registerHistogram(reg, packets, "czml_packets_per_document")
	if err != nil {
		return nil, err
	}

	buildDur := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "czml_build_duration_seconds",
		Help:    "Time spent assembling and serialising a document.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})
	buildDur, err = registerHistogram(reg, buildDur, "czml_build_duration_seconds")
	if err != nil {
		return nil, err
	}

	entities, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "czml_catalog_entities",
		Help: "Current number of entity packets in the catalog.",
	}), "czml_catalog_entities")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:           gatherer,
		HTTPRequests:       requests,
		HTTPDurations:      durations,
		DocumentsBuilt:     built,
		BuildFailures:      failures,
		PacketsPerDocument: packets,
		BuildDuration:      buildDur,
		CatalogEntities:    entities,
	}, nil
}

// Middleware records request counts and durations for an HTTP handler,
// labeled by the given handler name.
func (c *Collector) Middleware(handler string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		if c.HTTPRequests != nil {
			c.HTTPRequests.WithLabelValues(handler, r.Method, strconv.Itoa(rec.code)).Inc()
		}
		if c.HTTPDurations != nil {
			c.HTTPDurations.WithLabelValues(handler, r.Method).Observe(time.Since(start).Seconds())
		}
	})
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveBuild records one successful assembly.
func (c *Collector) ObserveBuild(packets int, elapsed time.Duration) {
	if c == nil {
		return
	}
	if c.DocumentsBuilt != nil {
		c.DocumentsBuilt.Inc()
	}
	if c.PacketsPerDocument != nil {
		c.PacketsPerDocument.Observe(float64(packets))
	}
	if c.BuildDuration != nil {
		c.BuildDuration.Observe(elapsed.Seconds())
	}
}

// IncBuildFailure records one rejected build, classified by FailureReason.
func (c *Collector) IncBuildFailure(err error) {
	if c == nil || c.BuildFailures == nil {
		return
	}
	c.BuildFailures.WithLabelValues(FailureReason(err)).Inc()
}

// SetCatalogSize satisfies the catalog.SizeRecorder interface so the
// catalog can drive the gauge directly from its mutators.
func (c *Collector) SetCatalogSize(n int) {
	if c == nil || c.CatalogEntities == nil {
		return
	}
	c.CatalogEntities.Set(float64(n))
}

// FailureReason maps the builder/assembler error taxonomy to a stable
// label value.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, czml.ErrMalformedSample):
		return "malformed_sample"
	case errors.Is(err, czml.ErrInvalidInterval):
		return "invalid_interval"
	case errors.Is(err, czml.ErrDuplicateIdentifier):
		return "duplicate_identifier"
	case errors.Is(err, czml.ErrIntervalMismatch):
		return "interval_mismatch"
	case errors.Is(err, czml.ErrEmptyDocument):
		return "empty_document"
	default:
		return "other"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
