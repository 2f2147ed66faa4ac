package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the map service.
type Metrics struct {
	ViewRequests    *prometheus.CounterVec   // labels: view={map,geojson,programs}, outcome={ok,bad_request,not_ready}
	ViewDuration    *prometheus.HistogramVec // labels: view
	VisibleCities   *prometheus.HistogramVec // labels: view
	CatalogCities   prometheus.Gauge
	LocatedCities   prometheus.Gauge
	EnrollmentRows  prometheus.Gauge
	EnrollmentLoads *prometheus.CounterVec // labels: outcome={success,error}
	PipelineReady   prometheus.Gauge

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ViewRequests,
		m.ViewDuration,
		m.VisibleCities,
		m.CatalogCities,
		m.LocatedCities,
		m.EnrollmentRows,
		m.EnrollmentLoads,
		m.PipelineReady,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ViewRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "city_map",
			Name:      "view_requests_total",
			Help:      "View computations by view and outcome.",
		}, []string{"view", "outcome"}),
		ViewDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "city_map",
			Name:      "view_duration_seconds",
			Help:      "Time spent recomputing a view from the static tables.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"view"}),
		VisibleCities: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "city_map",
			Name:      "visible_cities",
			Help:      "Cities surviving the filter, per map view.",
			Buckets:   []float64{0, 1, 2, 5, 10, 15, 25, 50, 100},
		}, []string{"view"}),
		CatalogCities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "city_map",
			Name:      "catalog_cities",
			Help:      "Cities in the joined catalog.",
		}),
		LocatedCities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "city_map",
			Name:      "located_cities",
			Help:      "Catalog cities with a resolved coordinate.",
		}),
		EnrollmentRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "city_map",
			Name:      "enrollment_records",
			Help:      "Enrollment records currently loaded.",
		}),
		EnrollmentLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "city_map",
			Name:      "enrollment_loads_total",
			Help:      "Enrollment load attempts by outcome.",
		}, []string{"outcome"}),
		PipelineReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "city_map",
			Name:      "pipeline_ready",
			Help:      "1 once the catalogs are loaded, 0 before.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "city_map",
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "city_map",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "city_map",
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "city_map",
			Name:      "geocode_enabled",
			Help:      "1 when missing coordinates are resolved through Mapbox, 0 otherwise.",
		}),
	}
}
