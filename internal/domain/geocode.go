package domain

import (
	"context"
	"log/slog"
)

// ResolveMissingCoordinates asks geocoder for the position of every row that
// has no coordinate. Rows that already have one are left alone. Failures are
// logged and the row keeps its nil coordinate (graceful degradation). A nil
// geocoder returns rows unchanged.
func ResolveMissingCoordinates(ctx context.Context, rows []JoinedCityRow, geocoder Geocoder, region string, logger *slog.Logger) []JoinedCityRow {
	if geocoder == nil {
		return rows
	}

	out := make([]JoinedCityRow, len(rows))
	copy(out, rows)
	for i := range out {
		if out[i].HasCoordinate() {
			continue
		}
		result, err := geocoder.ForwardGeocode(ctx, out[i].Name, region)
		if err != nil {
			logger.Warn("forward geocoding failed",
				"city_id", out[i].ID,
				"city", out[i].Name,
				"region", region,
				"error", err,
			)
			continue
		}
		if !result.Found() {
			logger.Warn("no geocoding match", "city_id", out[i].ID, "city", out[i].Name)
			continue
		}
		out[i].Coordinate = &Coordinate{Lat: result.Lat, Lon: result.Lon}
		logger.Info("resolved city coordinate",
			"city", out[i].Name,
			"lat", result.Lat,
			"lon", result.Lon,
			"place", result.FormattedAddress,
			"confidence", result.Confidence,
		)
	}
	return out
}
