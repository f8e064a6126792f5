package market

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSVWithHeaderAndPrices(t *testing.T) {
	path := writeCSV(t, `timestamp,value,up_price,down_price
2025-01-01T00:00:00Z,10.5,1.25,2.50
2025-01-01T01:00:00Z,-3.2,0.75,1.00
2025-01-01T02:00:00Z,42,3.00,0.10
`)

	ds, err := LoadCSV(path)
	require.NoError(t, err)

	require.Equal(t, 3, ds.Len())
	assert.True(t, ds.HasPrices())
	assert.InDelta(t, 10.5, ds.Observations[0].Value, 1e-9)
	assert.InDelta(t, -3.2, ds.Observations[1].Value, 1e-9)
	assert.Equal(t, 2025, ds.Observations[0].Timestamp.Year())
	assert.Equal(t, "1.25", ds.Prices[0].Up.String())
	assert.Equal(t, "0.1", ds.Prices[2].Down.String())
}

func TestLoadCSVWithoutHeader(t *testing.T) {
	path := writeCSV(t, `2025-01-01T00:00:00Z,1.0
2025-01-01T01:00:00Z,2.0
`)

	ds, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
	assert.False(t, ds.HasPrices())
}

func TestLoadCSVRejectsBadValue(t *testing.T) {
	path := writeCSV(t, `2025-01-01T00:00:00Z,not-a-number
`)
	_, err := LoadCSV(path)
	assert.Error(t, err)
}

func TestLoadCSVRejectsBadTimestampPastHeader(t *testing.T) {
	path := writeCSV(t, `timestamp,value
2025-01-01T00:00:00Z,1.0
yesterday,2.0
`)
	_, err := LoadCSV(path)
	assert.Error(t, err)
}

func TestLoadCSVRejectsPartialPriceColumns(t *testing.T) {
	path := writeCSV(t, `2025-01-01T00:00:00Z,1.0,2.0,3.0
2025-01-01T01:00:00Z,1.5
`)
	_, err := LoadCSV(path)
	assert.Error(t, err)
}

func TestLoadCSVMissingFile(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}
