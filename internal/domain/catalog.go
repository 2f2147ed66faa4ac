package domain

import (
	"maps"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CityRecord is one row of the static city table.
type CityRecord struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Students int    `json:"students"`
}

// Coordinate represents a WGS-84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RGBA is a fill color with 0-255 channels.
type RGBA [4]uint8

// JoinedCityRow is a city merged with its resolved coordinate and the
// visual attributes derived for the current visible set.
type JoinedCityRow struct {
	CityRecord
	Coordinate *Coordinate `json:"coordinate"`

	Radius float64 `json:"radius"`
	Color  RGBA    `json:"color"`
}

// HasCoordinate reports whether the row can be placed on the map.
func (r JoinedCityRow) HasCoordinate() bool {
	return r.Coordinate != nil
}

// Catalog holds the static tables the map is built from.
type Catalog struct {
	Cities      []CityRecord
	Coordinates map[string]Coordinate // keyed by normalized name
	Corrections map[string]string     // misspelling → canonical name
}

// BuildCatalog joins every city with its coordinate by normalized name.
// Rows keep the insertion order of cat.Cities. A city without a coordinate
// is kept with a nil Coordinate.
func BuildCatalog(cat Catalog) []JoinedCityRow {
	rows := make([]JoinedCityRow, 0, len(cat.Cities))
	for _, c := range cat.Cities {
		c.Name = NormalizeName(c.Name, cat.Corrections)
		row := JoinedCityRow{CityRecord: c}
		if coord, ok := cat.Coordinates[c.Name]; ok {
			row.Coordinate = &coord
		}
		rows = append(rows, row)
	}
	return rows
}

// NormalizeName trims and NFC-normalizes a city name, then applies the
// correction table.
func NormalizeName(name string, corrections map[string]string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	if fixed, ok := corrections[name]; ok {
		return fixed
	}
	return name
}

// DefaultCatalog returns a fresh copy of the built-in Colombian city table.
func DefaultCatalog() Catalog {
	return Catalog{
		Cities:      slices.Clone(defaultCities),
		Coordinates: maps.Clone(defaultCoordinates),
		Corrections: maps.Clone(defaultCorrections),
	}
}

var defaultCities = []CityRecord{
	{ID: 5, Name: "Barranquilla", Students: 188},
	{ID: 1, Name: "Bogotá", Students: 148},
	{ID: 2, Name: "Medellín", Students: 138},
	{ID: 14, Name: "Villavicencio", Students: 69},
	{ID: 7, Name: "Santa Marta", Students: 68},
	{ID: 6, Name: "Manizales", Students: 67},
	{ID: 12, Name: "Pasto", Students: 67},
	{ID: 4, Name: "Cartagena", Students: 65},
	{ID: 15, Name: "Rioacha", Students: 65},
	{ID: 10, Name: "Popayán", Students: 64},
	{ID: 8, Name: "Pereira", Students: 61},
	{ID: 3, Name: "Cali", Students: 0},
	{ID: 9, Name: "Neiva", Students: 0},
	{ID: 11, Name: "Armenia", Students: 0},
	{ID: 13, Name: "Valledupar", Students: 0},
}

// Approximate city centers.
var defaultCoordinates = map[string]Coordinate{
	"Barranquilla":  {Lat: 10.9685, Lon: -74.7813},
	"Bogotá":        {Lat: 4.7110, Lon: -74.0721},
	"Medellín":      {Lat: 6.2442, Lon: -75.5812},
	"Villavicencio": {Lat: 4.1420, Lon: -73.6266},
	"Santa Marta":   {Lat: 11.2408, Lon: -74.1990},
	"Manizales":     {Lat: 5.0703, Lon: -75.5138},
	"Pasto":         {Lat: 1.2136, Lon: -77.2811},
	"Cartagena":     {Lat: 10.3910, Lon: -75.4794},
	"Riohacha":      {Lat: 11.5444, Lon: -72.9070},
	"Popayán":       {Lat: 2.4448, Lon: -76.6147},
	"Pereira":       {Lat: 4.8133, Lon: -75.6961},
	"Cali":          {Lat: 3.4516, Lon: -76.5320},
	"Neiva":         {Lat: 2.9386, Lon: -75.2819},
	"Armenia":       {Lat: 4.5339, Lon: -75.6811},
	"Valledupar":    {Lat: 10.4631, Lon: -73.2532},
}

var defaultCorrections = map[string]string{
	"Rioacha": "Riohacha",
}
