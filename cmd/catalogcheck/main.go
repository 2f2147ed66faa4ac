// Command catalogcheck verifies the built-in city catalog and an optional
// enrollment fixture: every city has a coordinate after name normalization,
// ids and names are unique, and enrollment rows name known cities.
//
// Usage:
//
//	go run ./cmd/catalogcheck -enrollment internal/adapter/fixture/testdata/enrollment.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/couchcryptid/city-enrollment-map/internal/adapter/fixture"
	"github.com/couchcryptid/city-enrollment-map/internal/domain"
)

// phase tracks pass/fail for a check.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	enrollmentPath := flag.String("enrollment", "", "JSON or YAML enrollment fixture (defaults to the built-in sample)")
	flag.Parse()

	os.Exit(run(*enrollmentPath))
}

func run(enrollmentPath string) int {
	fmt.Println("=== City Catalog Validation ===")
	fmt.Println()

	cat := domain.DefaultCatalog()
	rows := domain.BuildCatalog(cat)

	records := domain.SampleEnrollment()
	if enrollmentPath != "" {
		var err error
		records, err = fixture.File{Path: enrollmentPath}.LoadEnrollment(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load enrollment: %v\n", err)
			return 1
		}
	}

	phases := []*phase{
		checkCoordinates(rows),
		checkUniqueness(cat.Cities),
		checkEnrollment(records, rows),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-32s %s\n", p.name, status)
	}

	lo, hi := domain.StudentBounds(rows)
	located := 0
	for _, r := range rows {
		if r.HasCoordinate() {
			located++
		}
	}
	fmt.Println()
	fmt.Printf("Cities: %d (%d located), students %d..%d, enrollment rows: %d\n",
		len(rows), located, lo, hi, len(records))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll checks passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func checkCoordinates(rows []domain.JoinedCityRow) *phase {
	p := &phase{name: "Coordinate join"}
	for _, r := range rows {
		if !r.HasCoordinate() {
			p.errorf("city %d %q has no coordinate", r.ID, r.Name)
			continue
		}
		if r.Coordinate.Lat < -90 || r.Coordinate.Lat > 90 || r.Coordinate.Lon < -180 || r.Coordinate.Lon > 180 {
			p.errorf("city %q coordinate out of range: %v", r.Name, *r.Coordinate)
		}
	}
	return p
}

func checkUniqueness(cities []domain.CityRecord) *phase {
	p := &phase{name: "Unique ids and names"}
	ids := make(map[int]string, len(cities))
	names := make(map[string]int, len(cities))
	for _, c := range cities {
		if prev, ok := ids[c.ID]; ok {
			p.errorf("id %d used by %q and %q", c.ID, prev, c.Name)
		}
		ids[c.ID] = c.Name
		if prev, ok := names[c.Name]; ok {
			p.errorf("name %q used by ids %d and %d", c.Name, prev, c.ID)
		}
		names[c.Name] = c.ID
		if c.Students < 0 {
			p.errorf("city %q has negative student count %d", c.Name, c.Students)
		}
	}
	return p
}

func checkEnrollment(records []domain.EnrollmentRecord, rows []domain.JoinedCityRow) *phase {
	p := &phase{name: "Enrollment cities"}
	if err := domain.ValidateEnrollment(records); err != nil {
		p.errorf("%v", err)
	}
	known := make(map[string]bool, len(rows))
	for _, r := range rows {
		known[r.Name] = true
	}
	for i, rec := range records {
		if !known[rec.City] {
			p.errorf("row %d: unknown city %q (known: %s)", i, rec.City, strings.Join(sortedNames(known), ", "))
		}
	}
	return p
}

func sortedNames(known map[string]bool) []string {
	return slices.Sorted(maps.Keys(known))
}
