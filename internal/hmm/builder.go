package hmm

import (
	"github.com/gridstate-labs/gridstate/internal/faults"
	"github.com/gridstate-labs/gridstate/internal/market"
)

// Laplace smoothing constants for the empirical transition matrix:
// P(j|i) = (count_ij + transitionAlpha) / (rowTotal_i + NumStates*transitionAlpha).
// A label with no observed outgoing transitions therefore gets a uniform row.
const transitionAlpha = 0.1

// Implied-action alphabet for the heuristic emission builder. Each
// observation implies one bidding action from its position relative to the
// global mean.
const (
	actionBidUp = iota
	actionNoBid
	actionBidDown
	numActions
)

// Mean-relative cutoffs for implied-action classification.
const (
	actionLowFactor  = 0.8
	actionHighFactor = 1.2
)

// BuildTransition derives a smoothed transition matrix from a labeled
// sequence by counting consecutive label pairs. Every row sums to 1 and no
// entry is zero.
func BuildTransition(labels []market.State) ([][]float64, error) {
	if len(labels) == 0 {
		return nil, faults.Input("cannot build a transition matrix from an empty label sequence")
	}

	n := market.NumStates
	counts := make([][]float64, n)
	for i := range counts {
		counts[i] = make([]float64, n)
	}

	for t := 0; t+1 < len(labels); t++ {
		from, to := labels[t], labels[t+1]
		if !from.Valid() || !to.Valid() {
			return nil, faults.Input("label sequence contains state outside the alphabet at t=%d", t)
		}
		counts[from][to]++
	}

	transition := make([][]float64, n)
	for i := range counts {
		rowTotal := 0.0
		for _, c := range counts[i] {
			rowTotal += c
		}
		row := make([]float64, n)
		for j, c := range counts[i] {
			row[j] = (c + transitionAlpha) / (rowTotal + float64(n)*transitionAlpha)
		}
		transition[i] = row
	}
	return transition, nil
}

// BuildEmissionHeuristic derives an emission matrix from the observation
// values and their labels. Each value implies a bidding action by comparison
// with 0.8x/1.2x the global mean; per-label action counts are normalized
// with +1 Laplace smoothing. This is the fast-path initializer for the
// Baum-Welch trainer.
func BuildEmissionHeuristic(values []float64, labels []market.State) ([][]float64, error) {
	if len(values) == 0 {
		return nil, faults.Input("cannot build an emission matrix from an empty value sequence")
	}
	if len(values) != len(labels) {
		return nil, faults.Input("value sequence length %d does not match label length %d",
			len(values), len(labels))
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	n := market.NumStates
	counts := make([][]float64, n)
	for i := range counts {
		counts[i] = make([]float64, numActions)
	}

	for t, v := range values {
		if !labels[t].Valid() {
			return nil, faults.Input("label sequence contains state outside the alphabet at t=%d", t)
		}
		counts[labels[t]][impliedAction(v, mean)]++
	}

	emission := make([][]float64, n)
	for i := range counts {
		total := 0.0
		for _, c := range counts[i] {
			total += c
		}
		row := make([]float64, numActions)
		for k, c := range counts[i] {
			row[k] = (c + 1) / (total + numActions)
		}
		emission[i] = row
	}
	return emission, nil
}

// impliedAction classifies the bidding action a value suggests relative to
// the global mean.
func impliedAction(v, mean float64) int {
	switch {
	case v <= actionLowFactor*mean:
		return actionBidUp
	case v >= actionHighFactor*mean:
		return actionBidDown
	default:
		return actionNoBid
	}
}

// BuildModel assembles a full model from a labeled observation sequence:
// empirical smoothed transitions, heuristic emissions, uniform initial
// distribution.
func BuildModel(values []float64, labels []market.State) (Model, error) {
	transition, err := BuildTransition(labels)
	if err != nil {
		return Model{}, err
	}
	emission, err := BuildEmissionHeuristic(values, labels)
	if err != nil {
		return Model{}, err
	}
	return Model{
		Initial:    UniformInitial(market.NumStates),
		Transition: transition,
		Emission:   emission,
	}, nil
}
