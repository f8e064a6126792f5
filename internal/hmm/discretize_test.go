package hmm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBinnerCutPoints(t *testing.T) {
	b := NewBinner([]float64{0, 100})

	assert.Equal(t, 0, b.Symbol(0))
	assert.Equal(t, 0, b.Symbol(33), "norm 0.33 stays in the low bin")
	assert.Equal(t, 1, b.Symbol(34))
	assert.Equal(t, 1, b.Symbol(67), "norm 0.67 stays in the middle bin")
	assert.Equal(t, 2, b.Symbol(68))
	assert.Equal(t, 2, b.Symbol(100))
}

func TestBinnerClampsOutOfRangeValues(t *testing.T) {
	b := NewBinner([]float64{10, 20})

	assert.Equal(t, 0, b.Symbol(-50), "below the fitted range lands in the low bin")
	assert.Equal(t, 2, b.Symbol(500), "above the fitted range lands in the high bin")
}

func TestBinnerDegenerateRange(t *testing.T) {
	b := NewBinner([]float64{5, 5, 5})

	assert.Equal(t, 1, b.Symbol(5))
	assert.Equal(t, 1, b.Symbol(-100))
	assert.Equal(t, 1, b.Symbol(100))
}

func TestSymbolsMapsWholeSequence(t *testing.T) {
	values := []float64{0, 50, 100, 25, 75}
	b := NewBinner(values)

	symbols := Symbols(values, b)
	assert.Equal(t, []int{0, 1, 2, 0, 2}, symbols)
}
