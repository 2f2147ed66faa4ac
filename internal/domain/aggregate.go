package domain

import (
	"cmp"
	"slices"
)

// ProgramCount is the number of enrolled students in one program.
type ProgramCount struct {
	Program string `json:"program"`
	Count   int    `json:"count"`
}

// ProgramMean is the mean elapsed months of the students in one program.
type ProgramMean struct {
	Program    string  `json:"program"`
	MeanMonths float64 `json:"mean_months"`
}

// CountsByProgram counts the records of city per program, ascending by count.
// The city match is exact and case-sensitive.
func CountsByProgram(records []EnrollmentRecord, city string) []ProgramCount {
	groups := groupByProgram(records, city)
	out := make([]ProgramCount, 0, len(groups))
	for program, months := range groups {
		out = append(out, ProgramCount{Program: program, Count: len(months)})
	}
	slices.SortFunc(out, func(a, b ProgramCount) int {
		return cmp.Or(cmp.Compare(a.Count, b.Count), cmp.Compare(a.Program, b.Program))
	})
	return out
}

// MeanMonthsByProgram averages elapsed months of city per program, ascending
// by mean. Programs with no records for the city are absent.
func MeanMonthsByProgram(records []EnrollmentRecord, city string) []ProgramMean {
	groups := groupByProgram(records, city)
	out := make([]ProgramMean, 0, len(groups))
	for program, months := range groups {
		sum := 0
		for _, m := range months {
			sum += m
		}
		out = append(out, ProgramMean{Program: program, MeanMonths: float64(sum) / float64(len(months))})
	}
	slices.SortFunc(out, func(a, b ProgramMean) int {
		return cmp.Or(cmp.Compare(a.MeanMonths, b.MeanMonths), cmp.Compare(a.Program, b.Program))
	})
	return out
}

func groupByProgram(records []EnrollmentRecord, city string) map[string][]int {
	groups := make(map[string][]int)
	for _, r := range records {
		if r.City != city {
			continue
		}
		groups[r.Program] = append(groups[r.Program], r.ElapsedMonths)
	}
	return groups
}
