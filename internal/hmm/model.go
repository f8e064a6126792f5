// Package hmm implements the hidden-Markov machinery of the engine: the
// discrete-state model, the empirical model builder, log-domain Viterbi
// decoding, and Baum-Welch parameter re-estimation with per-step scaling.
package hmm

import (
	"math"

	"github.com/gridstate-labs/gridstate/internal/faults"
)

// emissionFloor replaces zero or out-of-alphabet emission probabilities
// during decoding so log-domain recursions never see log(0).
const emissionFloor = 0.001

// probFloor is the smoothing floor applied to re-estimated rows: no
// transition or emission entry may be exactly zero.
const probFloor = 1e-6

// rowSumTolerance is the accepted deviation of a stochastic row sum from 1.
const rowSumTolerance = 1e-9

// Model is a discrete-observation hidden Markov model. All three parameter
// blocks are row-stochastic; Validate enforces the row-sum and no-zero-entry
// invariants.
type Model struct {
	// Initial[i] = P(state i at t=0). Length NumStates.
	Initial []float64 `json:"initial"`
	// Transition[i][j] = P(state j at t+1 | state i at t). NumStates x NumStates.
	Transition [][]float64 `json:"transition"`
	// Emission[i][k] = P(symbol k | state i). NumStates x NumSymbols.
	Emission [][]float64 `json:"emission"`
}

// NumStates returns the hidden-state alphabet size.
func (m Model) NumStates() int { return len(m.Transition) }

// NumSymbols returns the observation alphabet size.
func (m Model) NumSymbols() int {
	if len(m.Emission) == 0 {
		return 0
	}
	return len(m.Emission[0])
}

// UniformInitial returns a uniform initial distribution over n states.
func UniformInitial(n int) []float64 {
	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1.0 / float64(n)
	}
	return initial
}

// Clone returns a deep copy of the model.
func (m Model) Clone() Model {
	out := Model{
		Initial:    append([]float64(nil), m.Initial...),
		Transition: make([][]float64, len(m.Transition)),
		Emission:   make([][]float64, len(m.Emission)),
	}
	for i, row := range m.Transition {
		out.Transition[i] = append([]float64(nil), row...)
	}
	for i, row := range m.Emission {
		out.Emission[i] = append([]float64(nil), row...)
	}
	return out
}

// Validate checks the structural and stochastic invariants: square
// transition matrix, matching emission rows, initial length, every row
// summing to 1 within tolerance, and no entry equal to zero.
func (m Model) Validate() error {
	n := m.NumStates()
	if n == 0 {
		return faults.Input("model has no states")
	}
	if len(m.Initial) != n {
		return faults.Input("initial distribution has %d entries, want %d", len(m.Initial), n)
	}
	if len(m.Emission) != n {
		return faults.Input("emission matrix has %d rows, want %d", len(m.Emission), n)
	}

	if err := checkStochasticRow("initial", m.Initial); err != nil {
		return err
	}
	for i, row := range m.Transition {
		if len(row) != n {
			return faults.Input("transition row %d has %d entries, want %d", i, len(row), n)
		}
		if err := checkStochasticRow("transition", row); err != nil {
			return err
		}
	}
	k := m.NumSymbols()
	for i, row := range m.Emission {
		if len(row) != k {
			return faults.Input("emission row %d has %d entries, want %d", i, len(row), k)
		}
		if err := checkStochasticRow("emission", row); err != nil {
			return err
		}
	}
	return nil
}

func checkStochasticRow(name string, row []float64) error {
	sum := 0.0
	for _, p := range row {
		if p <= 0 || math.IsNaN(p) {
			return faults.Numerical("%s row contains a non-positive probability %v", name, p)
		}
		sum += p
	}
	if math.Abs(sum-1.0) > rowSumTolerance {
		return faults.Numerical("%s row sums to %v, want 1", name, sum)
	}
	return nil
}

// emissionProb returns the emission probability for a state/symbol pair,
// floored so decoding stays defined for degenerate matrices and symbols
// outside the alphabet.
func (m Model) emissionProb(state, symbol int) float64 {
	if symbol < 0 || symbol >= m.NumSymbols() {
		return emissionFloor
	}
	p := m.Emission[state][symbol]
	if p <= 0 {
		return emissionFloor
	}
	return p
}

// normalizeWithFloor renormalizes a row of non-negative weights into a
// stochastic row with no entry below the floor. A row of all-zero weights
// becomes uniform.
func normalizeWithFloor(row []float64, floor float64) {
	sum := 0.0
	for _, w := range row {
		sum += w
	}
	if sum <= 0 {
		for i := range row {
			row[i] = 1.0 / float64(len(row))
		}
		return
	}
	for i := range row {
		row[i] /= sum
		if row[i] < floor {
			row[i] = floor
		}
	}
	// Flooring may have pushed the sum above 1; renormalize once more.
	sum = 0.0
	for _, p := range row {
		sum += p
	}
	for i := range row {
		row[i] /= sum
	}
}
