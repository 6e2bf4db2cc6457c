// Package metrics holds Prometheus instruments used across the service.  All
// collectors are registered with the global registry, so importing this
// package is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ConfigLoadErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "config_load_errors_total",
			Help: "Cumulative number of failed configuration loads.",
		})

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route pattern, method, and status code.",
		}, []string{"route", "method", "code"})

	AuthFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_failures_total",
			Help: "Rejected requests by HTTP status of the auth failure.",
		}, []string{"code"})

	JWKSFetchTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jwks_fetch_total",
			Help: "Cumulative number of successful JWKS downloads.",
		})

	JWKSFetchErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jwks_fetch_errors_total",
			Help: "Cumulative number of failed JWKS downloads.",
		})

	Drinks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "drinks",
			Help: "Number of drinks returned by the most recent list query.",
		})
)

func init() {
	prometheus.MustRegister(
		ConfigLoadErrorsTotal,
		HTTPRequestsTotal,
		AuthFailuresTotal,
		JWKSFetchTotal,
		JWKSFetchErrorsTotal,
		Drinks,
	)
}
