package domain

// FilterQuery is the active state of the range slider and zero toggle.
type FilterQuery struct {
	Min         int  `json:"min"`
	Max         int  `json:"max"`
	ExcludeZero bool `json:"exclude_zero"`
}

// Filter returns the rows whose student count lies in [q.Min, q.Max]. With
// ExcludeZero set, zero-count rows are dropped even when inside the range.
// A query with Min > Max matches nothing. The result never aliases rows.
func Filter(rows []JoinedCityRow, q FilterQuery) []JoinedCityRow {
	out := make([]JoinedCityRow, 0, len(rows))
	for _, r := range rows {
		if r.Students < q.Min || r.Students > q.Max {
			continue
		}
		if q.ExcludeZero && r.Students == 0 {
			continue
		}
		out = append(out, r)
	}
	return out
}

// StudentBounds returns the smallest and largest student count in rows, or
// (0, 0) when rows is empty.
func StudentBounds(rows []JoinedCityRow) (lo, hi int) {
	if len(rows) == 0 {
		return 0, 0
	}
	lo, hi = rows[0].Students, rows[0].Students
	for _, r := range rows[1:] {
		lo = min(lo, r.Students)
		hi = max(hi, r.Students)
	}
	return lo, hi
}

// DefaultQuery spans the full range of rows and keeps zero-count cities.
func DefaultQuery(rows []JoinedCityRow) FilterQuery {
	lo, hi := StudentBounds(rows)
	return FilterQuery{Min: lo, Max: hi}
}
