package domain

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidEnrollment is returned by ValidateEnrollment.
var ErrInvalidEnrollment = errors.New("invalid enrollment record")

// EnrollmentRecord is one student enrolled in a program in a city.
type EnrollmentRecord struct {
	City          string `json:"city" yaml:"city"`
	Program       string `json:"program" yaml:"program"`
	ElapsedMonths int    `json:"elapsed_months" yaml:"elapsed_months"`
}

// EnrollmentSource fetches the enrollment table.
type EnrollmentSource interface {
	LoadEnrollment(ctx context.Context) ([]EnrollmentRecord, error)
}

// StaticEnrollment serves a fixed in-memory table.
type StaticEnrollment []EnrollmentRecord

// LoadEnrollment returns a copy of the table.
func (s StaticEnrollment) LoadEnrollment(_ context.Context) ([]EnrollmentRecord, error) {
	return slices.Clone([]EnrollmentRecord(s)), nil
}

// ValidateEnrollment checks that every record names a city and a program
// and has a non-negative elapsed month count.
func ValidateEnrollment(records []EnrollmentRecord) error {
	for i, r := range records {
		switch {
		case strings.TrimSpace(r.City) == "":
			return fmt.Errorf("%w: record %d: empty city", ErrInvalidEnrollment, i)
		case strings.TrimSpace(r.Program) == "":
			return fmt.Errorf("%w: record %d: empty program", ErrInvalidEnrollment, i)
		case r.ElapsedMonths < 0:
			return fmt.Errorf("%w: record %d: negative elapsed months %d", ErrInvalidEnrollment, i, r.ElapsedMonths)
		}
	}
	return nil
}

// SampleEnrollment returns the built-in sample table.
func SampleEnrollment() []EnrollmentRecord {
	return []EnrollmentRecord{
		{City: "Bogotá", Program: "Ingeniería", ElapsedMonths: 24},
		{City: "Bogotá", Program: "Medicina", ElapsedMonths: 30},
		{City: "Bogotá", Program: "Derecho", ElapsedMonths: 18},
		{City: "Medellín", Program: "Ingeniería", ElapsedMonths: 20},
		{City: "Medellín", Program: "Derecho", ElapsedMonths: 25},
		{City: "Pasto", Program: "Medicina", ElapsedMonths: 28},
		{City: "Pasto", Program: "Derecho", ElapsedMonths: 22},
	}
}
