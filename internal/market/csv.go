package market

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// LoadCSV reads a dataset from a CSV file with columns:
//
//	timestamp,value[,up_price,down_price]
//
// The timestamp column is RFC3339. A header row is detected by a failed
// timestamp parse on the first line and skipped. Price columns are optional;
// when present they must appear on every row.
func LoadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // validated per row below

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	ds := &Dataset{}
	for i, rec := range records {
		if len(rec) < 2 {
			return nil, fmt.Errorf("row %d: expected at least 2 columns, got %d", i+1, len(rec))
		}

		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			if i == 0 {
				continue // header row
			}
			return nil, fmt.Errorf("row %d: parse timestamp %q: %w", i+1, rec[0], err)
		}

		value, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: parse value %q: %w", i+1, rec[1], err)
		}
		ds.Observations = append(ds.Observations, Observation{Timestamp: ts, Value: value})

		if len(rec) >= 4 {
			up, err := decimal.NewFromString(rec[2])
			if err != nil {
				return nil, fmt.Errorf("row %d: parse up price %q: %w", i+1, rec[2], err)
			}
			down, err := decimal.NewFromString(rec[3])
			if err != nil {
				return nil, fmt.Errorf("row %d: parse down price %q: %w", i+1, rec[3], err)
			}
			ds.Prices = append(ds.Prices, ClearingPrice{Up: up, Down: down})
		}
	}

	if len(ds.Prices) > 0 && len(ds.Prices) != len(ds.Observations) {
		return nil, fmt.Errorf("price columns present on %d of %d rows", len(ds.Prices), len(ds.Observations))
	}

	return ds, nil
}
