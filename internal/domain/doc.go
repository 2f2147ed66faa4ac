// Package domain models the city enrollment map: a static table of cities
// with student counts, their coordinates, and a per-student enrollment table
// broken down by academic program.
//
// # Data Source
//
// City records and coordinates are fixed at process start and passed around
// as a [Catalog] value. The enrollment table stands in for an external
// source and is reached through [EnrollmentSource].
//
// # Joining
//
// Cities are joined to coordinates by normalized display name, not by id.
// [NormalizeName] trims the name, converts it to Unicode NFC and applies a
// fixed correction table:
//
//	"Rioacha" → "Riohacha"
//
// A city with no coordinate keeps a nil [JoinedCityRow.Coordinate]. It is
// dropped from the map layer but still counts for filtering, color scaling
// and the selection control.
//
// # Visual Encoding
//
// Each visible city gets a radius and an RGBA fill:
//
//	radius = 5000 + 200 × students
//	t      = (students − vmin) / (vmax − vmin)
//	R      = 80 + 175t,  G = B = 120 + 60(1 − t),  A = 180
//
// vmin and vmax are taken over the currently visible set, so the colors
// shift as the filter changes. When vmin == vmax every row gets
// [FallbackColor].
//
// # Aggregates
//
// For a selected city the enrollment rows are grouped by program into a
// count and a mean of elapsed months, each sorted ascending by value. Ties
// are ordered by program name.
package domain
