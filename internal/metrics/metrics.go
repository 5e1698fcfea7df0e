// Package metrics holds Prometheus instruments that are used across the
// site.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizdir_backend_requests_total",
			Help: "Backend API calls by endpoint and outcome (ok, http_error, transport_error).",
		}, []string{"endpoint", "outcome"})

	BackendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bizdir_backend_request_duration_seconds",
			Help:    "Backend API latency by endpoint.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"})

	CatalogFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizdir_catalog_fetch_total",
			Help: "Category tree loads by result (fetched, cached, failed).",
		}, []string{"result"})

	CategoryResolveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizdir_category_resolve_total",
			Help: "Category path resolutions by result (matched, fallback, not_found).",
		}, []string{"result"})

	ListingFetchEmptyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizdir_listing_fetch_empty_total",
			Help: "Listing fetches that degraded to an empty result, by reason.",
		}, []string{"reason"})

	BusinessResolveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizdir_business_resolve_total",
			Help: "Business detail lookups by winning strategy (or not_found).",
		}, []string{"strategy"})

	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizdir_events_total",
			Help: "Domain events published on the in-process bus, by kind.",
		}, []string{"kind"})

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizdir_http_requests_total",
			Help: "Served HTTP requests by method and status class.",
		}, []string{"method", "class"})
)

func init() {
	prometheus.MustRegister(
		BackendRequestsTotal,
		BackendRequestDuration,
		CatalogFetchTotal,
		CategoryResolveTotal,
		ListingFetchEmptyTotal,
		BusinessResolveTotal,
		EventsTotal,
		HTTPRequestsTotal,
	)
}
