// Package fixture loads enrollment tables from JSON or YAML files.
package fixture

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/city-enrollment-map/internal/domain"
	"gopkg.in/yaml.v3"
)

// File implements domain.EnrollmentSource over a fixture file. The format
// is chosen by extension: .json, or .yaml/.yml.
type File struct {
	Path string
}

// LoadEnrollment reads and decodes the file on every call.
func (f File) LoadEnrollment(_ context.Context) ([]domain.EnrollmentRecord, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read enrollment fixture: %w", err)
	}
	return Decode(filepath.Ext(f.Path), data)
}

// Decode parses an enrollment table encoded as a JSON or YAML list.
func Decode(ext string, data []byte) ([]domain.EnrollmentRecord, error) {
	var records []domain.EnrollmentRecord
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("decode enrollment json: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("decode enrollment yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported enrollment fixture extension %q", ext)
	}
	if records == nil {
		records = []domain.EnrollmentRecord{}
	}
	return records, nil
}
