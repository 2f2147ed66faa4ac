package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/city-enrollment-map/internal/domain"
	"github.com/couchcryptid/city-enrollment-map/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
)

// ErrNotReady is returned by view methods before Load has succeeded.
var ErrNotReady = errors.New("pipeline has not loaded its catalogs yet")

// Options configures the parts of a Pipeline that have sensible defaults.
type Options struct {
	Geocoder      domain.Geocoder // nil disables coordinate resolution
	GeocodeRegion string
	View          ViewSettings
	Clock         clockwork.Clock // nil uses the real clock
}

// ViewSettings is the static part of the map view handed to the renderer.
type ViewSettings struct {
	Zoom        float64
	Pitch       float64
	MapStyleURL string
}

// snapshot is the immutable state built by Load.
type snapshot struct {
	rows       []domain.JoinedCityRow
	enrollment []domain.EnrollmentRecord
}

// Pipeline recomputes map and chart views from the static catalogs on every
// call. Nothing derived from a previous call is reused.
type Pipeline struct {
	catalog  domain.Catalog
	source   domain.EnrollmentSource
	geocoder domain.Geocoder
	region   string
	view     ViewSettings
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics

	state atomic.Pointer[snapshot]
}

// New creates a Pipeline over the given catalog and enrollment source.
func New(catalog domain.Catalog, source domain.EnrollmentSource, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		catalog:  catalog,
		source:   source,
		geocoder: opts.Geocoder,
		region:   opts.GeocodeRegion,
		view:     opts.View,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
}

// CheckReadiness returns nil once Load has succeeded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.state.Load() == nil {
		return ErrNotReady
	}
	return nil
}

// Load joins the city catalog, resolves missing coordinates and fetches the
// enrollment table. Failed enrollment loads are retried with exponential
// backoff until they succeed or ctx is cancelled.
func (p *Pipeline) Load(ctx context.Context) error {
	rows := domain.BuildCatalog(p.catalog)
	rows = domain.ResolveMissingCoordinates(ctx, rows, p.geocoder, p.region, p.logger)

	located := 0
	for _, r := range rows {
		if r.HasCoordinate() {
			located++
		} else {
			p.logger.Warn("city has no coordinate and will not be plotted", "city_id", r.ID, "city", r.Name)
		}
	}
	p.metrics.CatalogCities.Set(float64(len(rows)))
	p.metrics.LocatedCities.Set(float64(located))

	enrollment, err := p.loadEnrollment(ctx)
	if err != nil {
		return err
	}

	p.state.Store(&snapshot{rows: rows, enrollment: enrollment})
	p.metrics.PipelineReady.Set(1)
	p.logger.Info("pipeline loaded",
		"cities", len(rows),
		"located", located,
		"enrollment_records", len(enrollment),
	)
	return nil
}

func (p *Pipeline) loadEnrollment(ctx context.Context) ([]domain.EnrollmentRecord, error) {
	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		records, err := p.source.LoadEnrollment(ctx)
		if err == nil {
			err = domain.ValidateEnrollment(records)
			if err != nil {
				// Bad data will not fix itself on retry.
				p.metrics.EnrollmentLoads.WithLabelValues("error").Inc()
				return nil, fmt.Errorf("load enrollment: %w", err)
			}
			p.metrics.EnrollmentLoads.WithLabelValues("success").Inc()
			p.metrics.EnrollmentRows.Set(float64(len(records)))
			return records, nil
		}

		p.metrics.EnrollmentLoads.WithLabelValues("error").Inc()
		if ctx.Err() != nil {
			return nil, fmt.Errorf("load enrollment: %w", ctx.Err())
		}
		p.logger.Error("load enrollment failed, retrying", "error", err, "backoff", backoff)
		if !p.sleepWithContext(ctx, backoff) {
			return nil, fmt.Errorf("load enrollment: %w", ctx.Err())
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

func (p *Pipeline) snapshot() (*snapshot, error) {
	s := p.state.Load()
	if s == nil {
		return nil, ErrNotReady
	}
	return s, nil
}

func (p *Pipeline) sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := p.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
