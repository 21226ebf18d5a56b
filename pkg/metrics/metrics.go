package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openagora/agora/internal/common/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the prometheus instruments for the chat subsystem and
// the HTTP surface.
type Metrics struct {
	registry *prometheus.Registry

	httpReqCnt *prometheus.CounterVec
	httpDur    *prometheus.HistogramVec

	connections  prometheus.Gauge
	msgRouted    *prometheus.CounterVec
	msgPublished prometheus.Counter
	msgDropped   prometheus.Counter
	cacheHits    prometheus.Counter
	cacheMisses  prometheus.Counter
}

// New builds a registry with process/Go collectors plus the chat
// instruments.
func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	if ns == "" {
		ns = "agora"
	}
	buckets := cfg.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Buckets: buckets}, []string{"method", "route", "status"})
	r.MustRegister(httpReqCnt, httpDur)

	connections := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: ns, Name: "chat_connections"})
	msgRouted := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "chat_messages_routed_total"}, []string{"context_type", "status"})
	msgPublished := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "chat_messages_published_total"})
	msgDropped := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "chat_messages_dropped_total"})
	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "chat_cache_hits_total"})
	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "chat_cache_misses_total"})
	r.MustRegister(connections, msgRouted, msgPublished, msgDropped, cacheHits, cacheMisses)

	return &Metrics{
		registry:     r,
		httpReqCnt:   httpReqCnt,
		httpDur:      httpDur,
		connections:  connections,
		msgRouted:    msgRouted,
		msgPublished: msgPublished,
		msgDropped:   msgDropped,
		cacheHits:    cacheHits,
		cacheMisses:  cacheMisses,
	}
}

func (m *Metrics) ConnOpened()  { m.connections.Inc() }
func (m *Metrics) ConnClosed()  { m.connections.Dec() }
func (m *Metrics) Published()   { m.msgPublished.Inc() }
func (m *Metrics) Dropped()     { m.msgDropped.Inc() }
func (m *Metrics) CacheHit()    { m.cacheHits.Inc() }
func (m *Metrics) CacheMiss()   { m.cacheMisses.Inc() }

// Routed records the outcome of a Route call per context type.
func (m *Metrics) Routed(contextType, status string) {
	m.msgRouted.WithLabelValues(contextType, status).Inc()
}

// Middleware instruments gin routes.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		m.httpReqCnt.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDur.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
