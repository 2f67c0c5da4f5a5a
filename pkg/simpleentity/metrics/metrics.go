// Package metrics exports entity events and HTTP traffic as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendant/simple-entity/pkg/simpleentity"
)

// Collector holds all Prometheus metrics for the service. It implements
// simpleentity.EventSink so it can be plugged in next to other sinks.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Entity metrics
	TermsCreated       prometheus.Counter
	TermsDeleted       prometheus.Counter
	NodesCreated       prometheus.Counter
	NodesUpdated       prometheus.Counter
	NodeUpdateFailures prometheus.Counter
	NodesDeleted       prometheus.Counter
	ParagraphsDeleted  prometheus.Counter
	FieldsAdded        *prometheus.CounterVec
}

var _ simpleentity.EventSink = (*Collector)(nil)

// NewCollector creates a collector with its own registry, so several
// collectors can coexist in tests.
func NewCollector(namespace string) *Collector {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		TermsCreated:       counter("terms_created_total", "Total number of taxonomy terms created"),
		TermsDeleted:       counter("terms_deleted_total", "Total number of taxonomy terms deleted"),
		NodesCreated:       counter("nodes_created_total", "Total number of nodes created"),
		NodesUpdated:       counter("nodes_updated_total", "Total number of nodes saved by updates"),
		NodeUpdateFailures: counter("node_update_failures_total", "Total number of node updates that failed to save"),
		NodesDeleted:       counter("nodes_deleted_total", "Total number of nodes deleted"),
		ParagraphsDeleted:  counter("paragraphs_deleted_total", "Total number of paragraphs deleted"),
		FieldsAdded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fields_added_total",
				Help:      "Total number of fields attached to bundles",
			},
			[]string{"entity_type", "type"},
		),
	}

	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.TermsCreated,
		c.TermsDeleted,
		c.NodesCreated,
		c.NodesUpdated,
		c.NodeUpdateFailures,
		c.NodesDeleted,
		c.ParagraphsDeleted,
		c.FieldsAdded,
	)
	return c
}

// Registry returns the collector's registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and durations by chi route pattern.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// EventSink implementation

func (c *Collector) TermCreated(ctx context.Context, term *simpleentity.Term) error {
	c.TermsCreated.Inc()
	return nil
}

func (c *Collector) TermDeleted(ctx context.Context, term *simpleentity.Term) error {
	c.TermsDeleted.Inc()
	return nil
}

func (c *Collector) NodeCreated(ctx context.Context, node *simpleentity.Node) error {
	c.NodesCreated.Inc()
	return nil
}

func (c *Collector) NodeUpdated(ctx context.Context, node *simpleentity.Node) error {
	c.NodesUpdated.Inc()
	return nil
}

func (c *Collector) NodeUpdateFailed(ctx context.Context, nodeID uuid.UUID, cause error) error {
	c.NodeUpdateFailures.Inc()
	return nil
}

func (c *Collector) NodeDeleted(ctx context.Context, nodeID uuid.UUID) error {
	c.NodesDeleted.Inc()
	return nil
}

func (c *Collector) ParagraphDeleted(ctx context.Context, paragraphID uuid.UUID) error {
	c.ParagraphsDeleted.Inc()
	return nil
}

func (c *Collector) FieldAdded(ctx context.Context, def *simpleentity.FieldDefinition) error {
	c.FieldsAdded.WithLabelValues(def.EntityType, string(def.Type)).Inc()
	return nil
}
