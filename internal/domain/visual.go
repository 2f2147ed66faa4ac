package domain

import "math"

const (
	// BaseRadius and ScaleRadius are in map distance units (meters).
	BaseRadius  = 5000
	ScaleRadius = 200

	FixedAlpha = 180
)

// FallbackColor is used when every visible city has the same count.
var FallbackColor = RGBA{200, 120, 120, FixedAlpha}

// Radius maps a student count to a circle radius. No upper cap is applied.
func Radius(students int) float64 {
	return BaseRadius + float64(students)*ScaleRadius
}

// ColorFor interpolates between a muted low color and a saturated red as
// students moves from vmin to vmax.
func ColorFor(students, vmin, vmax int) RGBA {
	if vmin == vmax {
		return FallbackColor
	}
	t := float64(students-vmin) / float64(vmax-vmin)
	r := uint8(math.Round(80 + t*(255-80)))
	gb := uint8(math.Round(120 + (1-t)*60))
	return RGBA{r, gb, gb, FixedAlpha}
}

// MapVisuals returns a copy of visible with Radius and Color set. The color
// scale is anchored on the min and max of visible itself.
func MapVisuals(visible []JoinedCityRow) []JoinedCityRow {
	vmin, vmax := StudentBounds(visible)
	out := make([]JoinedCityRow, len(visible))
	for i, r := range visible {
		r.Radius = Radius(r.Students)
		r.Color = ColorFor(r.Students, vmin, vmax)
		out[i] = r
	}
	return out
}

// Center averages the coordinates of the located rows in visible. If none
// of them has a coordinate it averages all instead, and returns the zero
// Coordinate when that fails too.
func Center(visible, all []JoinedCityRow) Coordinate {
	if c, ok := meanCoordinate(visible); ok {
		return c
	}
	c, _ := meanCoordinate(all)
	return c
}

func meanCoordinate(rows []JoinedCityRow) (Coordinate, bool) {
	var sumLat, sumLon float64
	n := 0
	for _, r := range rows {
		if r.Coordinate == nil {
			continue
		}
		sumLat += r.Coordinate.Lat
		sumLon += r.Coordinate.Lon
		n++
	}
	if n == 0 {
		return Coordinate{}, false
	}
	return Coordinate{Lat: sumLat / float64(n), Lon: sumLon / float64(n)}, true
}
