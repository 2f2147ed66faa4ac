package fixture

import (
	"context"
	"testing"

	"github.com/couchcryptid/city-enrollment-map/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile_LoadYAML(t *testing.T) {
	records, err := File{Path: "testdata/enrollment.yaml"}.LoadEnrollment(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.SampleEnrollment(), records)
}

func TestFile_LoadJSON(t *testing.T) {
	records, err := File{Path: "testdata/enrollment.json"}.LoadEnrollment(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []domain.EnrollmentRecord{
		{City: "Pasto", Program: "Medicina", ElapsedMonths: 28},
		{City: "Pasto", Program: "Derecho", ElapsedMonths: 22},
	}, records)
}

func TestFile_Missing(t *testing.T) {
	_, err := File{Path: "testdata/nope.yaml"}.LoadEnrollment(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read enrollment fixture")
}

func TestDecode_UnsupportedExtension(t *testing.T) {
	_, err := Decode(".csv", []byte("city,program"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".csv")
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode(".json", []byte(`{"city":`))
	require.Error(t, err)

	_, err = Decode(".yml", []byte("- city: [unterminated"))
	require.Error(t, err)
}

func TestDecode_EmptyList(t *testing.T) {
	records, err := Decode(".yaml", []byte(""))
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}
