package hmm

import (
	"math"

	"github.com/gridstate-labs/gridstate/internal/market"
)

// Decode runs log-domain Viterbi over a discrete observation sequence and
// returns the maximum-a-posteriori hidden-state path. The path has exactly
// one state per observation; an empty sequence decodes to an empty path.
// With a fixed model and sequence the output is fully deterministic.
//
// A nil or mis-sized Initial on the model falls back to uniform. Emission
// probabilities of zero (and symbols outside the alphabet) are floored at
// emissionFloor so the recursion never evaluates log(0).
//
// Complexity: O(T * N^2).
func Decode(observations []int, m Model) []market.State {
	if len(observations) == 0 {
		return []market.State{}
	}

	n := m.NumStates()
	t0 := len(observations)

	initial := m.Initial
	if len(initial) != n {
		initial = UniformInitial(n)
	}

	// delta[s]: best log probability of any path ending in s at time t.
	// backptr[t][s]: the argmax predecessor of s at time t.
	delta := make([]float64, n)
	next := make([]float64, n)
	backptr := make([][]int, t0)

	for s := 0; s < n; s++ {
		delta[s] = math.Log(initial[s]) + math.Log(m.emissionProb(s, observations[0]))
	}

	for t := 1; t < t0; t++ {
		backptr[t] = make([]int, n)
		for s := 0; s < n; s++ {
			bestPrev := 0
			bestScore := delta[0] + math.Log(m.Transition[0][s])
			for i := 1; i < n; i++ {
				if score := delta[i] + math.Log(m.Transition[i][s]); score > bestScore {
					bestScore = score
					bestPrev = i
				}
			}
			next[s] = bestScore + math.Log(m.emissionProb(s, observations[t]))
			backptr[t][s] = bestPrev
		}
		delta, next = next, delta
	}

	// Termination: pick the best final state, then follow backpointers.
	last := 0
	for s := 1; s < n; s++ {
		if delta[s] > delta[last] {
			last = s
		}
	}

	path := make([]market.State, t0)
	path[t0-1] = market.State(last)
	for t := t0 - 1; t > 0; t-- {
		last = backptr[t][last]
		path[t-1] = market.State(last)
	}
	return path
}
