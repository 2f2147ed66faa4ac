package pipeline

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/couchcryptid/city-enrollment-map/internal/domain"
)

// TooltipTemplate is rendered by the map client with each row's fields.
const TooltipTemplate = "<b>{name}</b><br/>Students: {students}<br/>Code: {id}"

// ViewState is the initial camera of the map.
type ViewState struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      float64 `json:"zoom"`
	Pitch     float64 `json:"pitch"`
}

// Controls describes the state of the interactive controls.
type Controls struct {
	MinBound   int                `json:"min_bound"`
	MaxBound   int                `json:"max_bound"`
	Query      domain.FilterQuery `json:"query"`
	CityChoice []string           `json:"city_choices"`
}

// MapView is everything the geo-scatter renderer needs for one interaction.
type MapView struct {
	Cities      []domain.JoinedCityRow `json:"cities"`
	View        ViewState              `json:"view_state"`
	Controls    Controls               `json:"controls"`
	Tooltip     string                 `json:"tooltip"`
	MapStyleURL string                 `json:"map_style_url,omitempty"`
	GeneratedAt time.Time              `json:"generated_at"`
}

// Plottable returns the visible cities that have a coordinate.
func (v MapView) Plottable() []domain.JoinedCityRow {
	out := make([]domain.JoinedCityRow, 0, len(v.Cities))
	for _, r := range v.Cities {
		if r.HasCoordinate() {
			out = append(out, r)
		}
	}
	return out
}

// Bar is one labeled bar of a horizontal bar chart.
type Bar struct {
	Program string  `json:"program"`
	Value   float64 `json:"value"`
	Label   string  `json:"label"`
}

// ProgramCharts holds both per-program charts for a selected city.
type ProgramCharts struct {
	City        string    `json:"city"`
	Counts      []Bar     `json:"counts"`
	MeanMonths  []Bar     `json:"mean_months"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Metrics labels for the views served by a Pipeline.
const (
	ViewMap      = "map"
	ViewGeoJSON  = "geojson"
	ViewPrograms = "programs"
)

// MapRequest carries the control values of one interaction. A nil bound
// defaults to the global minimum or maximum of the catalog. View names the
// representation being rendered in metrics and defaults to ViewMap.
type MapRequest struct {
	Min         *int
	Max         *int
	ExcludeZero bool
	View        string
}

// MapView filters the catalog with req and derives radius, color and the
// map center for the visible cities.
func (p *Pipeline) MapView(_ context.Context, req MapRequest) (MapView, error) {
	start := time.Now()
	label := req.View
	if label == "" {
		label = ViewMap
	}
	s, err := p.snapshot()
	if err != nil {
		p.metrics.ViewRequests.WithLabelValues(label, "not_ready").Inc()
		return MapView{}, err
	}

	lo, hi := domain.StudentBounds(s.rows)
	query := domain.FilterQuery{Min: lo, Max: hi, ExcludeZero: req.ExcludeZero}
	if req.Min != nil {
		query.Min = *req.Min
	}
	if req.Max != nil {
		query.Max = *req.Max
	}

	visible := domain.MapVisuals(domain.Filter(s.rows, query))
	center := domain.Center(visible, s.rows)

	p.metrics.VisibleCities.WithLabelValues(label).Observe(float64(len(visible)))
	p.metrics.ViewRequests.WithLabelValues(label, "ok").Inc()
	p.metrics.ViewDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	p.logger.Debug("map view computed",
		"view", label,
		"min", query.Min,
		"max", query.Max,
		"exclude_zero", query.ExcludeZero,
		"visible", len(visible),
	)

	return MapView{
		Cities: visible,
		View: ViewState{
			Latitude:  center.Lat,
			Longitude: center.Lon,
			Zoom:      p.view.Zoom,
			Pitch:     p.view.Pitch,
		},
		Controls: Controls{
			MinBound:   lo,
			MaxBound:   hi,
			Query:      query,
			CityChoice: cityChoices(visible),
		},
		Tooltip:     TooltipTemplate,
		MapStyleURL: p.view.MapStyleURL,
		GeneratedAt: p.clock.Now().UTC(),
	}, nil
}

// ProgramCharts aggregates the enrollment table for city. A city with no
// enrollment yields two empty charts.
func (p *Pipeline) ProgramCharts(_ context.Context, city string) (ProgramCharts, error) {
	start := time.Now()
	s, err := p.snapshot()
	if err != nil {
		p.metrics.ViewRequests.WithLabelValues(ViewPrograms, "not_ready").Inc()
		return ProgramCharts{}, err
	}

	counts := domain.CountsByProgram(s.enrollment, city)
	means := domain.MeanMonthsByProgram(s.enrollment, city)

	charts := ProgramCharts{
		City:        city,
		Counts:      make([]Bar, len(counts)),
		MeanMonths:  make([]Bar, len(means)),
		GeneratedAt: p.clock.Now().UTC(),
	}
	for i, c := range counts {
		charts.Counts[i] = Bar{Program: c.Program, Value: float64(c.Count), Label: fmt.Sprintf("%d", c.Count)}
	}
	for i, m := range means {
		charts.MeanMonths[i] = Bar{Program: m.Program, Value: m.MeanMonths, Label: fmt.Sprintf("%.1f", m.MeanMonths)}
	}

	p.metrics.ViewRequests.WithLabelValues(ViewPrograms, "ok").Inc()
	p.metrics.ViewDuration.WithLabelValues(ViewPrograms).Observe(time.Since(start).Seconds())
	p.logger.Debug("program charts computed", "city", city, "programs", len(counts))
	return charts, nil
}

// cityChoices lists the visible city names once each, in visible order.
func cityChoices(visible []domain.JoinedCityRow) []string {
	out := make([]string, 0, len(visible))
	for _, r := range visible {
		if !slices.Contains(out, r.Name) {
			out = append(out, r.Name)
		}
	}
	return out
}
