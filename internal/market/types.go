// Package market holds the shared data types of the regulation-capacity
// analysis pipeline: the contracting-regime state alphabet, observation
// series, and clearing prices.
package market

import (
	"time"

	"github.com/gridstate-labs/gridstate/internal/faults"
	"github.com/shopspring/decimal"
)

// State is a contracting-regime label. The whole pipeline uses this one
// zero-based alphabet; categorizer output, Viterbi paths, and emission
// columns all index with it.
type State int

const (
	// StateUnder: the market is under-contracted; up-regulation capacity clears.
	StateUnder State = 0
	// StateBalanced: contracted capacity matches demand; nothing clears.
	StateBalanced State = 1
	// StateOver: the market is over-contracted; down-regulation capacity clears.
	StateOver State = 2
)

// NumStates is the size of the regime alphabet.
const NumStates = 3

func (s State) String() string {
	switch s {
	case StateUnder:
		return "UNDER"
	case StateBalanced:
		return "BALANCED"
	case StateOver:
		return "OVER"
	default:
		return "INVALID"
	}
}

// Valid reports whether s is inside the regime alphabet.
func (s State) Valid() bool {
	return s >= 0 && s < NumStates
}

// Observation is a single point of the input signal.
type Observation struct {
	Timestamp time.Time `json:"ts"`
	Value     float64   `json:"value"`
}

// ClearingPrice holds the up/down regulation clearing prices for one period.
// Prices are decimal so revenue sums stay exact.
type ClearingPrice struct {
	Up   decimal.Decimal `json:"up"`
	Down decimal.Decimal `json:"down"`
}

// Dataset is the in-memory input to the engine: an ordered observation
// sequence, optionally paired with one clearing price per period.
type Dataset struct {
	Observations []Observation   `json:"observations"`
	Prices       []ClearingPrice `json:"prices,omitempty"`
}

// Values extracts the raw observation values in order.
func (d *Dataset) Values() []float64 {
	values := make([]float64, len(d.Observations))
	for i, obs := range d.Observations {
		values[i] = obs.Value
	}
	return values
}

// Len returns the number of observation periods.
func (d *Dataset) Len() int { return len(d.Observations) }

// HasPrices reports whether clearing prices are available for revenue
// computation.
func (d *Dataset) HasPrices() bool { return len(d.Prices) > 0 }

// Validate checks the dataset against the minimum size and the
// parallel-sequence requirement. Prices are optional; when present they must
// align one-to-one with observations.
func (d *Dataset) Validate(minDataPoints int) error {
	if len(d.Observations) == 0 {
		return faults.Input("observation sequence is empty")
	}
	if len(d.Observations) < minDataPoints {
		return faults.Input("observation sequence has %d points, need at least %d",
			len(d.Observations), minDataPoints)
	}
	if len(d.Prices) > 0 && len(d.Prices) != len(d.Observations) {
		return faults.Input("clearing price sequence length %d does not match observation length %d",
			len(d.Prices), len(d.Observations))
	}
	return nil
}
