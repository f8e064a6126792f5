package hmm

import (
	"testing"

	"github.com/gridstate-labs/gridstate/internal/faults"
	"github.com/gridstate-labs/gridstate/internal/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTransitionKnownCounts(t *testing.T) {
	// Pairs: 0->0, 0->1, 1->1, 1->2, 2->2, 2->0. With alpha 0.1 smoothing a
	// row with total 2 becomes (count+0.1)/2.3.
	labels := []market.State{
		market.StateUnder, market.StateUnder,
		market.StateBalanced, market.StateBalanced,
		market.StateOver, market.StateOver,
		market.StateUnder,
	}

	transition, err := BuildTransition(labels)
	require.NoError(t, err)
	require.Len(t, transition, market.NumStates)

	assert.InDelta(t, 1.1/2.3, transition[0][0], 1e-12)
	assert.InDelta(t, 1.1/2.3, transition[0][1], 1e-12)
	assert.InDelta(t, 0.1/2.3, transition[0][2], 1e-12)

	assert.InDelta(t, 0.1/2.3, transition[1][0], 1e-12)
	assert.InDelta(t, 1.1/2.3, transition[1][1], 1e-12)
	assert.InDelta(t, 1.1/2.3, transition[1][2], 1e-12)

	assert.InDelta(t, 1.1/2.3, transition[2][0], 1e-12)
	assert.InDelta(t, 0.1/2.3, transition[2][1], 1e-12)
	assert.InDelta(t, 1.1/2.3, transition[2][2], 1e-12)
}

func TestBuildTransitionRowInvariants(t *testing.T) {
	labels := []market.State{
		market.StateUnder, market.StateBalanced, market.StateOver,
		market.StateOver, market.StateBalanced, market.StateUnder,
		market.StateUnder, market.StateUnder,
	}

	transition, err := BuildTransition(labels)
	require.NoError(t, err)

	for i, row := range transition {
		sum := 0.0
		for j, p := range row {
			assert.Greater(t, p, 0.0, "entry [%d][%d] must not be zero", i, j)
			sum += p
		}
		assert.InDelta(t, 1.0, sum, rowSumTolerance, "row %d must sum to 1", i)
	}
}

func TestBuildTransitionUnseenStateGetsUniformRow(t *testing.T) {
	// No transitions ever leave OVER; smoothing alone fills its row, which
	// degenerates to uniform.
	labels := []market.State{
		market.StateUnder, market.StateBalanced,
		market.StateUnder, market.StateBalanced,
	}

	transition, err := BuildTransition(labels)
	require.NoError(t, err)

	for j := 0; j < market.NumStates; j++ {
		assert.InDelta(t, 1.0/3, transition[market.StateOver][j], 1e-12)
	}
}

func TestBuildTransitionEmptyInput(t *testing.T) {
	_, err := BuildTransition(nil)
	require.Error(t, err)
	assert.True(t, faults.IsKind(err, faults.KindInput))
}

func TestBuildTransitionRejectsInvalidLabel(t *testing.T) {
	labels := []market.State{market.StateUnder, market.State(7)}
	_, err := BuildTransition(labels)
	require.Error(t, err)
	assert.True(t, faults.IsKind(err, faults.KindInput))
}

func TestBuildEmissionHeuristicKnownCounts(t *testing.T) {
	// Global mean 10.25, cuts at 8.2 and 12.3. Implied actions: 1 -> bid-up,
	// 10 -> no-bid, 20 -> bid-down, 10 -> no-bid. With +1 Laplace smoothing
	// each row is (count+1)/(total+3).
	values := []float64{1, 10, 20, 10}
	labels := []market.State{
		market.StateUnder, market.StateBalanced,
		market.StateOver, market.StateBalanced,
	}

	emission, err := BuildEmissionHeuristic(values, labels)
	require.NoError(t, err)
	require.Len(t, emission, market.NumStates)

	assert.InDelta(t, 2.0/4, emission[0][actionBidUp], 1e-12)
	assert.InDelta(t, 1.0/4, emission[0][actionNoBid], 1e-12)
	assert.InDelta(t, 1.0/4, emission[0][actionBidDown], 1e-12)

	assert.InDelta(t, 1.0/5, emission[1][actionBidUp], 1e-12)
	assert.InDelta(t, 3.0/5, emission[1][actionNoBid], 1e-12)
	assert.InDelta(t, 1.0/5, emission[1][actionBidDown], 1e-12)

	assert.InDelta(t, 1.0/4, emission[2][actionBidUp], 1e-12)
	assert.InDelta(t, 1.0/4, emission[2][actionNoBid], 1e-12)
	assert.InDelta(t, 2.0/4, emission[2][actionBidDown], 1e-12)
}

func TestBuildEmissionHeuristicLengthMismatch(t *testing.T) {
	_, err := BuildEmissionHeuristic([]float64{1, 2, 3}, []market.State{market.StateUnder})
	require.Error(t, err)
	assert.True(t, faults.IsKind(err, faults.KindInput))
}

func TestImpliedActionCutoffs(t *testing.T) {
	// Cut points are inclusive on both sides: exactly 0.8x mean still
	// implies bid-up, exactly 1.2x mean already implies bid-down.
	mean := 100.0
	assert.Equal(t, actionBidUp, impliedAction(79, mean))
	assert.Equal(t, actionBidUp, impliedAction(80, mean))
	assert.Equal(t, actionNoBid, impliedAction(81, mean))
	assert.Equal(t, actionNoBid, impliedAction(119, mean))
	assert.Equal(t, actionBidDown, impliedAction(120, mean))
	assert.Equal(t, actionBidDown, impliedAction(121, mean))
}

func TestBuildModelProducesValidModel(t *testing.T) {
	values := []float64{10, 12, 50, 55, 90, 95, 11, 52, 93}
	labels := []market.State{
		market.StateUnder, market.StateUnder,
		market.StateBalanced, market.StateBalanced,
		market.StateOver, market.StateOver,
		market.StateUnder, market.StateBalanced, market.StateOver,
	}

	m, err := BuildModel(values, labels)
	require.NoError(t, err)
	assert.NoError(t, m.Validate())
	assert.Equal(t, market.NumStates, m.NumStates())
	assert.Equal(t, numActions, m.NumSymbols())
}
