// Package geojson encodes the visible cities as a GeoJSON point layer.
package geojson

import (
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/city-enrollment-map/internal/domain"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// ContentType is the media type of an encoded layer.
const ContentType = "application/geo+json"

// Layer builds a FeatureCollection with one Point per located row. Rows
// without a coordinate are left out.
func Layer(rows []domain.JoinedCityRow) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(rows))}
	for _, r := range rows {
		if !r.HasCoordinate() {
			continue
		}
		// GeoJSON positions are [lon, lat].
		pt := geom.NewPointFlat(geom.XY, []float64{r.Coordinate.Lon, r.Coordinate.Lat})
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       fmt.Sprintf("%d", r.ID),
			Geometry: pt,
			Properties: map[string]any{
				"id":       r.ID,
				"name":     r.Name,
				"students": r.Students,
				"radius":   r.Radius,
				"color":    []int{int(r.Color[0]), int(r.Color[1]), int(r.Color[2]), int(r.Color[3])},
			},
		})
	}
	return fc
}

// Encode marshals the layer for rows.
func Encode(rows []domain.JoinedCityRow) ([]byte, error) {
	data, err := json.Marshal(Layer(rows))
	if err != nil {
		return nil, fmt.Errorf("encode geojson layer: %w", err)
	}
	return data, nil
}
