package hmm

import (
	"context"
	"math"

	"github.com/gridstate-labs/gridstate/internal/faults"
	"github.com/rs/zerolog/log"
)

// TrainConfig bounds a Baum-Welch run.
type TrainConfig struct {
	// MaxIterations caps the EM loop. Hitting the cap without meeting the
	// tolerance is reported on the result, not returned as an error.
	MaxIterations int
	// Tolerance is the absolute log-likelihood improvement below which
	// training is considered converged.
	Tolerance float64
}

// DefaultTrainConfig returns the standard training bounds.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{MaxIterations: 100, Tolerance: 1e-6}
}

// TrainResult reports how a training run ended.
type TrainResult struct {
	Iterations    int     `json:"iterations"`
	Converged     bool    `json:"converged"`
	LogLikelihood float64 `json:"log_likelihood"`
}

// Train re-estimates model parameters with the Baum-Welch algorithm: scaled
// forward/backward passes, gamma/xi expectation, and re-estimation of the
// initial, transition, and emission parameters, iterated until the
// log-likelihood improvement drops below the tolerance or MaxIterations is
// reached. The starting model is not modified; a refined copy is returned.
//
// Training checks ctx between iterations and returns its error when
// cancelled. Each iteration costs O(T * N^2).
func Train(ctx context.Context, observations []int, start Model, cfg TrainConfig) (Model, TrainResult, error) {
	if len(observations) == 0 {
		return Model{}, TrainResult{}, faults.Input("cannot train on an empty observation sequence")
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultTrainConfig().MaxIterations
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTrainConfig().Tolerance
	}

	n := start.NumStates()
	k := start.NumSymbols()
	if n == 0 || k == 0 {
		return Model{}, TrainResult{}, faults.Input("starting model has no states or symbols")
	}
	for t, o := range observations {
		if o < 0 || o >= k {
			return Model{}, TrainResult{}, faults.Input("observation symbol %d at t=%d outside alphabet [0,%d)", o, t, k)
		}
	}

	m := start.Clone()
	if len(m.Initial) != n {
		m.Initial = UniformInitial(n)
	}

	bigT := len(observations)
	log.Info().
		Int("observations", bigT).
		Int("max_iterations", cfg.MaxIterations).
		Float64("tolerance", cfg.Tolerance).
		Msg("baum-welch: training started")

	result := TrainResult{LogLikelihood: math.Inf(-1)}
	prevLogL := math.Inf(-1)

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return Model{}, result, err
		}

		alpha, scales := forward(observations, m)
		beta := backward(observations, m, scales)

		logL := 0.0
		for _, s := range scales {
			logL += math.Log(s)
		}

		// Accumulators for the M-step.
		transNum := zeros(n, n)
		transDen := make([]float64, n)
		emitNum := zeros(n, k)
		emitDen := make([]float64, n)
		gamma0 := make([]float64, n)

		gamma := make([]float64, n)
		for t := 0; t < bigT; t++ {
			gammaSum := 0.0
			for i := 0; i < n; i++ {
				gamma[i] = alpha[t][i] * beta[t][i]
				gammaSum += gamma[i]
			}
			if gammaSum > 0 {
				for i := 0; i < n; i++ {
					gamma[i] /= gammaSum
				}
			}

			if t == 0 {
				copy(gamma0, gamma)
			}
			for i := 0; i < n; i++ {
				emitNum[i][observations[t]] += gamma[i]
				emitDen[i] += gamma[i]
				if t < bigT-1 {
					transDen[i] += gamma[i]
				}
			}

			if t < bigT-1 {
				xiSum := 0.0
				xi := zeros(n, n)
				for i := 0; i < n; i++ {
					for j := 0; j < n; j++ {
						xi[i][j] = alpha[t][i] * m.Transition[i][j] *
							m.emissionProb(j, observations[t+1]) * beta[t+1][j]
						xiSum += xi[i][j]
					}
				}
				if xiSum > 0 {
					for i := 0; i < n; i++ {
						for j := 0; j < n; j++ {
							transNum[i][j] += xi[i][j] / xiSum
						}
					}
				}
			}
		}

		// M-step: re-estimate all three parameter blocks, keeping the
		// no-zero-entry invariant via the smoothing floor.
		copy(m.Initial, gamma0)
		normalizeWithFloor(m.Initial, probFloor)

		for i := 0; i < n; i++ {
			if transDen[i] > 0 {
				for j := 0; j < n; j++ {
					m.Transition[i][j] = transNum[i][j] / transDen[i]
				}
			}
			normalizeWithFloor(m.Transition[i], probFloor)

			if emitDen[i] > 0 {
				for sym := 0; sym < k; sym++ {
					m.Emission[i][sym] = emitNum[i][sym] / emitDen[i]
				}
			}
			normalizeWithFloor(m.Emission[i], probFloor)
		}

		result.Iterations = iter + 1
		result.LogLikelihood = logL

		if iter > 0 && math.Abs(logL-prevLogL) < cfg.Tolerance {
			result.Converged = true
			break
		}
		prevLogL = logL
	}

	if !result.Converged {
		log.Warn().
			Int("iterations", result.Iterations).
			Float64("log_likelihood", result.LogLikelihood).
			Msg("baum-welch: max iterations reached without convergence")
	} else {
		log.Info().
			Int("iterations", result.Iterations).
			Float64("log_likelihood", result.LogLikelihood).
			Msg("baum-welch: training converged")
	}

	return m, result, nil
}

// forward computes the scaled forward variables. alpha[t] is normalized to
// sum to 1 at every step; scales[t] holds the pre-normalization sums, so
// sum(log(scales)) is the sequence log-likelihood.
func forward(observations []int, m Model) (alpha [][]float64, scales []float64) {
	n := m.NumStates()
	bigT := len(observations)
	alpha = zeros(bigT, n)
	scales = make([]float64, bigT)

	for i := 0; i < n; i++ {
		alpha[0][i] = m.Initial[i] * m.emissionProb(i, observations[0])
	}
	scales[0] = scaleRow(alpha[0])

	for t := 1; t < bigT; t++ {
		for j := 0; j < n; j++ {
			sum := 0.0
			for i := 0; i < n; i++ {
				sum += alpha[t-1][i] * m.Transition[i][j]
			}
			alpha[t][j] = sum * m.emissionProb(j, observations[t])
		}
		scales[t] = scaleRow(alpha[t])
	}
	return alpha, scales
}

// backward computes the scaled backward variables using the forward scaling
// factors.
func backward(observations []int, m Model, scales []float64) [][]float64 {
	n := m.NumStates()
	bigT := len(observations)
	beta := zeros(bigT, n)

	for i := 0; i < n; i++ {
		beta[bigT-1][i] = 1.0 / scales[bigT-1]
	}

	for t := bigT - 2; t >= 0; t-- {
		for i := 0; i < n; i++ {
			sum := 0.0
			for j := 0; j < n; j++ {
				sum += m.Transition[i][j] * m.emissionProb(j, observations[t+1]) * beta[t+1][j]
			}
			beta[t][i] = sum / scales[t]
		}
	}
	return beta
}

// scaleRow normalizes a row in place and returns its pre-normalization sum.
// An all-zero row is left untouched with a scale of 1 so the recursion stays
// finite.
func scaleRow(row []float64) float64 {
	sum := 0.0
	for _, v := range row {
		sum += v
	}
	if sum <= 0 {
		return 1
	}
	for i := range row {
		row[i] /= sum
	}
	return sum
}

func zeros(rows, cols int) [][]float64 {
	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, cols)
	}
	return out
}
