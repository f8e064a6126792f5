package hmm

// SymbolMapper turns continuous observation values into discrete symbols for
// training and decoding. The default implementation bins on a min-max
// normalized scale; callers with domain-specific binning supply their own.
type SymbolMapper interface {
	// Symbol maps one value to a symbol in [0, NumSymbols).
	Symbol(value float64) int
	// NumSymbols returns the symbol alphabet size.
	NumSymbols() int
}

// Binner is the default SymbolMapper: values are min-max normalized to
// [0, 1] and thresholded at the 0.33 / 0.67 cut points into three bins.
type Binner struct {
	min, max float64
}

// NewBinner fits a Binner to the range of the given values.
func NewBinner(values []float64) Binner {
	if len(values) == 0 {
		return Binner{}
	}
	b := Binner{min: values[0], max: values[0]}
	for _, v := range values[1:] {
		if v < b.min {
			b.min = v
		}
		if v > b.max {
			b.max = v
		}
	}
	return b
}

func (b Binner) NumSymbols() int { return 3 }

// Symbol maps a value to its bin. A degenerate range (max == min) maps
// everything to the middle bin.
func (b Binner) Symbol(value float64) int {
	if b.max <= b.min {
		return 1
	}
	norm := (value - b.min) / (b.max - b.min)
	switch {
	case norm <= 0.33:
		return 0
	case norm <= 0.67:
		return 1
	default:
		return 2
	}
}

// Symbols maps a whole value sequence through a SymbolMapper.
func Symbols(values []float64, mapper SymbolMapper) []int {
	symbols := make([]int, len(values))
	for i, v := range values {
		symbols[i] = mapper.Symbol(v)
	}
	return symbols
}
