package geojson

import (
	"encoding/json"
	"testing"

	"github.com/couchcryptid/city-enrollment-map/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decodedLayer struct {
	Type     string `json:"type"`
	Features []struct {
		Type     string `json:"type"`
		ID       string `json:"id"`
		Geometry struct {
			Type        string    `json:"type"`
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]any `json:"properties"`
	} `json:"features"`
}

func TestEncode_PointsAreLonLat(t *testing.T) {
	rows := domain.MapVisuals(domain.BuildCatalog(domain.DefaultCatalog()))[:2]

	data, err := Encode(rows)
	require.NoError(t, err)

	var layer decodedLayer
	require.NoError(t, json.Unmarshal(data, &layer))

	assert.Equal(t, "FeatureCollection", layer.Type)
	require.Len(t, layer.Features, 2)
	f := layer.Features[0]
	assert.Equal(t, "Feature", f.Type)
	assert.Equal(t, "5", f.ID)
	assert.Equal(t, "Point", f.Geometry.Type)
	assert.Equal(t, []float64{-74.7813, 10.9685}, f.Geometry.Coordinates)
	assert.Equal(t, "Barranquilla", f.Properties["name"])
	assert.Equal(t, 188.0, f.Properties["students"])
	assert.Equal(t, domain.Radius(188), f.Properties["radius"])
	assert.Equal(t, []any{255.0, 120.0, 120.0, 180.0}, f.Properties["color"])
}

func TestLayer_SkipsRowsWithoutCoordinate(t *testing.T) {
	rows := []domain.JoinedCityRow{
		{CityRecord: domain.CityRecord{ID: 1, Name: "Bogotá"}, Coordinate: &domain.Coordinate{Lat: 4.7, Lon: -74.1}},
		{CityRecord: domain.CityRecord{ID: 99, Name: "Nowhere"}},
	}

	fc := Layer(rows)

	require.Len(t, fc.Features, 1)
	assert.Equal(t, "1", fc.Features[0].ID)
}

func TestEncode_EmptyLayer(t *testing.T) {
	data, err := Encode(nil)
	require.NoError(t, err)

	var layer decodedLayer
	require.NoError(t, json.Unmarshal(data, &layer))
	assert.Equal(t, "FeatureCollection", layer.Type)
	assert.Empty(t, layer.Features)
}
