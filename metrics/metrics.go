// Package metrics 基于 rest.Observer 的 Prometheus 指标
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/neko233-com/iocrest-go/rest"
)

const DefaultNamespace = "iocrest"

// Collector 统计资源注册与请求处理，每个 Collector 持有独立的 Registry
type Collector struct {
	registry *prometheus.Registry

	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Resources       prometheus.Gauge
	Routes          *prometheus.GaugeVec
}

var _ rest.Observer = (*Collector)(nil)

func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of requests dispatched to resources",
		}, []string{"resource", "method", "route", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Resource request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource", "method", "route"}),
		Resources: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resources_registered",
			Help:      "Number of registered root resources",
		}),
		Routes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resource_routes",
			Help:      "Number of routes served by each registered resource",
		}, []string{"resource"}),
	}
}

func (c *Collector) ResourceRegistered(resource string, routes int) {
	c.Resources.Inc()
	c.Routes.WithLabelValues(resource).Set(float64(routes))
}

func (c *Collector) ResourceUnregistered(resource string) {
	c.Resources.Dec()
	c.Routes.DeleteLabelValues(resource)
}

func (c *Collector) RequestHandled(resource, method, pattern string, status int, elapsed time.Duration) {
	c.Requests.WithLabelValues(resource, method, pattern, strconv.Itoa(status)).Inc()
	c.RequestDuration.WithLabelValues(resource, method, pattern).Observe(elapsed.Seconds())
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler /metrics 处理器
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
