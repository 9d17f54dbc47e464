package utils

import (
	"strconv"

	"github.com/kataras/iris/v12"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plateshare_http_requests_total",
			Help: "HTTP requests processed, by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plateshare_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// MetricsMiddleware records request counts and latency per route.
func MetricsMiddleware(ctx iris.Context) {
	path := ctx.Path()
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues(ctx.Method(), path))
	ctx.Next()
	timer.ObserveDuration()
	httpRequestsTotal.WithLabelValues(ctx.Method(), path, strconv.Itoa(ctx.GetStatusCode())).Inc()
}

// MetricsHandler exposes the prometheus registry.
func MetricsHandler() iris.Handler {
	return iris.FromStd(promhttp.Handler())
}
