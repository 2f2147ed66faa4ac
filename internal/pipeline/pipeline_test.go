package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/city-enrollment-map/internal/domain"
	"github.com/couchcryptid/city-enrollment-map/internal/observability"
	"github.com/couchcryptid/city-enrollment-map/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type flakySource struct {
	failures int
	calls    atomic.Int64
	records  []domain.EnrollmentRecord
}

func (m *flakySource) LoadEnrollment(_ context.Context) ([]domain.EnrollmentRecord, error) {
	n := int(m.calls.Add(1))
	if n <= m.failures {
		return nil, errors.New("broker unavailable")
	}
	return m.records, nil
}

type stubGeocoder struct {
	result domain.GeocodingResult
}

func (s stubGeocoder) ForwardGeocode(_ context.Context, _, _ string) (domain.GeocodingResult, error) {
	return s.result, nil
}

func rangeRequest(lo, hi int) pipeline.MapRequest {
	return pipeline.MapRequest{Min: &lo, Max: &hi}
}

var generatedAt = time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(t *testing.T, source domain.EnrollmentSource, opts pipeline.Options) (*pipeline.Pipeline, *observability.Metrics) {
	t.Helper()
	if opts.Clock == nil {
		opts.Clock = clockwork.NewFakeClockAt(generatedAt)
	}
	if opts.View == (pipeline.ViewSettings{}) {
		opts.View = pipeline.ViewSettings{Zoom: 5.2, Pitch: 30, MapStyleURL: "https://example.com/style.json"}
	}
	metrics := observability.NewMetricsForTesting()
	return pipeline.New(domain.DefaultCatalog(), source, opts, discardLogger(), metrics), metrics
}

// histogramSample returns the observation count and sum of one histogram series.
func histogramSample(t *testing.T, vec *prometheus.HistogramVec, label string) (uint64, float64) {
	t.Helper()
	h, ok := vec.WithLabelValues(label).(prometheus.Histogram)
	require.True(t, ok)
	var pb dto.Metric
	require.NoError(t, h.Write(&pb))
	return pb.GetHistogram().GetSampleCount(), pb.GetHistogram().GetSampleSum()
}

func loadedPipeline(t *testing.T) (*pipeline.Pipeline, *observability.Metrics) {
	t.Helper()
	p, m := newTestPipeline(t, domain.StaticEnrollment(domain.SampleEnrollment()), pipeline.Options{})
	require.NoError(t, p.Load(context.Background()))
	return p, m
}

// --- tests ---

func TestPipeline_NotReadyBeforeLoad(t *testing.T) {
	p, m := newTestPipeline(t, domain.StaticEnrollment(nil), pipeline.Options{})

	require.ErrorIs(t, p.CheckReadiness(context.Background()), pipeline.ErrNotReady)

	_, err := p.MapView(context.Background(), pipeline.MapRequest{})
	require.ErrorIs(t, err, pipeline.ErrNotReady)

	_, err = p.ProgramCharts(context.Background(), "Pasto")
	require.ErrorIs(t, err, pipeline.ErrNotReady)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ViewRequests.WithLabelValues("map", "not_ready")))
}

func TestPipeline_Load(t *testing.T) {
	p, m := loadedPipeline(t)

	require.NoError(t, p.CheckReadiness(context.Background()))
	assert.Equal(t, 15.0, testutil.ToFloat64(m.CatalogCities))
	assert.Equal(t, 15.0, testutil.ToFloat64(m.LocatedCities))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.EnrollmentRows))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PipelineReady))
}

func TestPipeline_Load_RetriesWithBackoff(t *testing.T) {
	clock := clockwork.NewFakeClockAt(generatedAt)
	src := &flakySource{failures: 2, records: domain.SampleEnrollment()}
	p, m := newTestPipeline(t, src, pipeline.Options{Clock: clock})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- p.Load(ctx) }()

	for range src.failures {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(5 * time.Second)
	}

	require.NoError(t, <-errCh)
	assert.Equal(t, int64(3), src.calls.Load())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EnrollmentLoads.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EnrollmentLoads.WithLabelValues("success")))
}

func TestPipeline_Load_StopsOnCancel(t *testing.T) {
	src := &flakySource{failures: 1000}
	p, _ := newTestPipeline(t, src, pipeline.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Load(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, p.CheckReadiness(context.Background()), pipeline.ErrNotReady)
}

func TestPipeline_Load_InvalidEnrollmentNotRetried(t *testing.T) {
	src := &flakySource{records: []domain.EnrollmentRecord{{City: "Pasto", Program: "", ElapsedMonths: 1}}}
	p, _ := newTestPipeline(t, src, pipeline.Options{})

	err := p.Load(context.Background())
	require.ErrorIs(t, err, domain.ErrInvalidEnrollment)
	assert.Equal(t, int64(1), src.calls.Load())
}

func TestPipeline_Load_ResolvesMissingCoordinates(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	cat := domain.DefaultCatalog()
	delete(cat.Coordinates, "Neiva")
	p := pipeline.New(cat, domain.StaticEnrollment(nil), pipeline.Options{
		Geocoder:      stubGeocoder{result: domain.GeocodingResult{Lat: 2.9, Lon: -75.3}},
		GeocodeRegion: "Colombia",
		Clock:         clockwork.NewFakeClockAt(generatedAt),
	}, discardLogger(), metrics)

	require.NoError(t, p.Load(context.Background()))

	view, err := p.MapView(context.Background(), rangeRequest(0, 0))
	require.NoError(t, err)
	require.Len(t, view.Plottable(), 4)
	assert.Equal(t, 15.0, testutil.ToFloat64(metrics.LocatedCities))
}

func TestPipeline_MapView_Defaults(t *testing.T) {
	p, m := loadedPipeline(t)

	view, err := p.MapView(context.Background(), pipeline.MapRequest{})
	require.NoError(t, err)

	assert.Len(t, view.Cities, 15)
	assert.Equal(t, 0, view.Controls.MinBound)
	assert.Equal(t, 188, view.Controls.MaxBound)
	assert.Equal(t, domain.FilterQuery{Min: 0, Max: 188}, view.Controls.Query)
	assert.Len(t, view.Controls.CityChoice, 15)
	assert.Equal(t, 5.2, view.View.Zoom)
	assert.Equal(t, 30.0, view.View.Pitch)
	assert.Equal(t, pipeline.TooltipTemplate, view.Tooltip)
	assert.Equal(t, "https://example.com/style.json", view.MapStyleURL)
	assert.Equal(t, generatedAt, view.GeneratedAt)
	count, sum := histogramSample(t, m.VisibleCities, pipeline.ViewMap)
	assert.Equal(t, uint64(1), count)
	assert.Equal(t, 15.0, sum)
}

func TestPipeline_MapView_VisibleCitiesPerRequest(t *testing.T) {
	p, m := loadedPipeline(t)

	_, err := p.MapView(context.Background(), pipeline.MapRequest{})
	require.NoError(t, err)
	_, err = p.MapView(context.Background(), rangeRequest(148, 188))
	require.NoError(t, err)
	_, err = p.MapView(context.Background(), pipeline.MapRequest{View: pipeline.ViewGeoJSON})
	require.NoError(t, err)

	count, sum := histogramSample(t, m.VisibleCities, pipeline.ViewMap)
	assert.Equal(t, uint64(2), count, "every request is observed, not just the last")
	assert.Equal(t, 17.0, sum)

	count, sum = histogramSample(t, m.VisibleCities, pipeline.ViewGeoJSON)
	assert.Equal(t, uint64(1), count)
	assert.Equal(t, 15.0, sum)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ViewRequests.WithLabelValues(pipeline.ViewMap, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ViewRequests.WithLabelValues(pipeline.ViewGeoJSON, "ok")))
}

func TestPipeline_MapView_FilterScenario(t *testing.T) {
	p, _ := loadedPipeline(t)

	view, err := p.MapView(context.Background(), rangeRequest(65, 188))
	require.NoError(t, err)

	want := []string{
		"Barranquilla", "Bogotá", "Medellín", "Villavicencio", "Santa Marta",
		"Manizales", "Pasto", "Cartagena", "Riohacha",
	}
	assert.Equal(t, want, view.Controls.CityChoice)
	for _, r := range view.Cities {
		assert.Equal(t, domain.Radius(r.Students), r.Radius)
		switch r.Students {
		case 65:
			assert.Equal(t, uint8(80), r.Color[0])
		case 188:
			assert.Equal(t, uint8(255), r.Color[0])
		}
	}
}

func TestPipeline_MapView_EmptyFallsBackToCatalogCenter(t *testing.T) {
	p, _ := loadedPipeline(t)

	full, err := p.MapView(context.Background(), pipeline.MapRequest{})
	require.NoError(t, err)
	empty, err := p.MapView(context.Background(), rangeRequest(100, 50))
	require.NoError(t, err)

	assert.Empty(t, empty.Cities)
	assert.Empty(t, empty.Controls.CityChoice)
	assert.Equal(t, full.View.Latitude, empty.View.Latitude)
	assert.Equal(t, full.View.Longitude, empty.View.Longitude)
}

func TestPipeline_MapView_RecomputesEachCall(t *testing.T) {
	p, _ := loadedPipeline(t)

	narrow, err := p.MapView(context.Background(), rangeRequest(65, 69))
	require.NoError(t, err)
	wide, err := p.MapView(context.Background(), pipeline.MapRequest{})
	require.NoError(t, err)
	again, err := p.MapView(context.Background(), rangeRequest(65, 69))
	require.NoError(t, err)

	if diff := cmp.Diff(narrow, again); diff != "" {
		t.Errorf("same query gave different views (-first +second):\n%s", diff)
	}
	// Cartagena is the minimum of the narrow set but not of the wide one.
	for _, r := range narrow.Cities {
		if r.Name == "Cartagena" {
			assert.Equal(t, uint8(80), r.Color[0])
		}
	}
	for _, r := range wide.Cities {
		if r.Name == "Cartagena" {
			assert.NotEqual(t, uint8(80), r.Color[0])
		}
	}
}

func TestPipeline_MapView_PartialBoundsAndExcludeZero(t *testing.T) {
	p, _ := loadedPipeline(t)
	lo := 0

	view, err := p.MapView(context.Background(), pipeline.MapRequest{Min: &lo, ExcludeZero: true})
	require.NoError(t, err)

	assert.Equal(t, domain.FilterQuery{Min: 0, Max: 188, ExcludeZero: true}, view.Controls.Query)
	assert.Len(t, view.Cities, 11)
	assert.NotContains(t, view.Controls.CityChoice, "Cali")
}

func TestPipeline_ProgramCharts(t *testing.T) {
	p, _ := loadedPipeline(t)

	charts, err := p.ProgramCharts(context.Background(), "Pasto")
	require.NoError(t, err)

	assert.Equal(t, "Pasto", charts.City)
	assert.Equal(t, []pipeline.Bar{
		{Program: "Derecho", Value: 22, Label: "22.0"},
		{Program: "Medicina", Value: 28, Label: "28.0"},
	}, charts.MeanMonths)
	require.Len(t, charts.Counts, 2)
	for _, b := range charts.Counts {
		assert.Equal(t, 1.0, b.Value)
		assert.Equal(t, "1", b.Label)
	}
	assert.Equal(t, generatedAt, charts.GeneratedAt)
}

func TestPipeline_ProgramCharts_NoEnrollment(t *testing.T) {
	p, _ := loadedPipeline(t)

	charts, err := p.ProgramCharts(context.Background(), "Armenia")
	require.NoError(t, err)

	assert.NotNil(t, charts.Counts)
	assert.Empty(t, charts.Counts)
	assert.Empty(t, charts.MeanMonths)
}
