package categorize

import (
	"math"
	"math/rand"
	"sort"

	"github.com/gridstate-labs/gridstate/internal/market"
)

// KMeansOptions configures the 1-D k-means strategy.
type KMeansOptions struct {
	MaxIterations int     // assign/update rounds before giving up
	Tolerance     float64 // stop once the largest centroid shift is below this
	Seed          int64   // seeds the k-means++ initialization
}

func DefaultKMeansOptions() KMeansOptions {
	return KMeansOptions{MaxIterations: 100, Tolerance: 1e-6, Seed: 1}
}

// categorizeKMeans clusters the values into three groups with 1-D k-means
// and labels each value by the rank of its centroid: the lowest centroid is
// UNDER, the middle BALANCED, the highest OVER. Ranking by sorted centroid
// value keeps the label meaning stable no matter which order the centroids
// converged in.
func categorizeKMeans(values []float64, opts KMeansOptions) ([]market.State, error) {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultKMeansOptions().MaxIterations
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultKMeansOptions().Tolerance
	}

	const k = market.NumStates
	rng := rand.New(rand.NewSource(opts.Seed))

	centroids := initPlusPlus(values, k, rng)
	assignments := make([]int, len(values))

	for iter := 0; iter < opts.MaxIterations; iter++ {
		// Assign each value to its nearest centroid.
		for i, v := range values {
			best := 0
			bestDist := math.Abs(v - centroids[0])
			for c := 1; c < k; c++ {
				if d := math.Abs(v - centroids[c]); d < bestDist {
					bestDist = d
					best = c
				}
			}
			assignments[i] = best
		}

		// Update centroids to the mean of their members. An empty cluster
		// keeps its previous centroid (zero-weight update).
		shift := 0.0
		for c := 0; c < k; c++ {
			sum := 0.0
			count := 0
			for i, v := range values {
				if assignments[i] == c {
					sum += v
					count++
				}
			}
			if count == 0 {
				continue
			}
			next := sum / float64(count)
			if d := math.Abs(next - centroids[c]); d > shift {
				shift = d
			}
			centroids[c] = next
		}

		if shift < opts.Tolerance {
			break
		}
	}

	// Rank centroids by value so cluster index order does not leak into
	// the label meaning.
	type rankedCentroid struct {
		cluster int
		value   float64
	}
	ranked := make([]rankedCentroid, k)
	for c := 0; c < k; c++ {
		ranked[c] = rankedCentroid{cluster: c, value: centroids[c]}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].value < ranked[j].value })

	clusterToState := make([]market.State, k)
	for rank, rc := range ranked {
		clusterToState[rc.cluster] = market.State(rank)
	}

	labels := make([]market.State, len(values))
	for i, c := range assignments {
		labels[i] = clusterToState[c]
	}
	return labels, nil
}

// initPlusPlus picks k initial centroids with k-means++ seeding: the first
// uniformly, each subsequent one with probability proportional to its squared
// distance from the nearest centroid chosen so far.
func initPlusPlus(values []float64, k int, rng *rand.Rand) []float64 {
	centroids := make([]float64, 0, k)
	centroids = append(centroids, values[rng.Intn(len(values))])

	dists := make([]float64, len(values))
	for len(centroids) < k {
		total := 0.0
		for i, v := range values {
			nearest := math.Inf(1)
			for _, c := range centroids {
				if d := (v - c) * (v - c); d < nearest {
					nearest = d
				}
			}
			dists[i] = nearest
			total += nearest
		}

		if total == 0 {
			// All values coincide with existing centroids; duplicate one.
			centroids = append(centroids, centroids[0])
			continue
		}

		target := rng.Float64() * total
		cum := 0.0
		picked := len(values) - 1
		for i, d := range dists {
			cum += d
			if cum >= target {
				picked = i
				break
			}
		}
		centroids = append(centroids, values[picked])
	}
	return centroids
}
