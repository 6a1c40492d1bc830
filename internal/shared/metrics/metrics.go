package metrics

import (
	"database/sql"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "jobmate"

// Registry owns the process collectors. A fresh Registry per App keeps
// tests isolated from the global default registerer.
type Registry struct {
	reg *prometheus.Registry

	requests     *prometheus.CounterVec
	authOutcomes *prometheus.CounterVec
}

// New builds a registry with Go runtime and HTTP collectors.
func New() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		reg: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		authOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_verifications_total",
			Help:      "Bearer token verification outcomes.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.requests,
		r.authOutcomes,
	)
	return r
}

// RegisterPool exports database/sql pool statistics and the live count of
// request sessions.
func (r *Registry) RegisterPool(db *sql.DB, activeSessions func() int64) {
	r.reg.MustRegister(collectors.NewDBStatsCollector(db, namespace))
	if activeSessions != nil {
		r.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_sessions_active",
			Help:      "Request-scoped database sessions currently checked out.",
		}, func() float64 { return float64(activeSessions()) }))
	}
}

// ObserveRequest counts one completed HTTP request.
func (r *Registry) ObserveRequest(method, route string, status int) {
	if route == "" {
		route = "unmatched"
	}
	r.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// ObserveAuth counts one verifier outcome: ok, bypass, expired, invalid, unknown.
func (r *Registry) ObserveAuth(outcome string) {
	r.authOutcomes.WithLabelValues(outcome).Inc()
}

// Handler exposes metrics in Prometheus text format.
func (r *Registry) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}))
}

// Gatherer exposes the registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
