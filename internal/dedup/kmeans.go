package dedup

import (
	"math"
	"math/rand"
)

// trainCentroids runs k-means over unit vectors and returns k centroids,
// renormalized so inner product stays the similarity measure. K-means++
// seeding keeps the coarse quantizer from collapsing onto dense regions.
func trainCentroids(vectors [][]float64, k, maxIter int, seed int64) [][]float64 {
	if len(vectors) == 0 || k <= 0 {
		return nil
	}
	if k > len(vectors) {
		k = len(vectors)
	}
	if maxIter <= 0 {
		maxIter = 25
	}

	rng := rand.New(rand.NewSource(seed))
	dims := len(vectors[0])
	centroids := seedCentroids(vectors, k, dims, rng)

	assignments := make([]int, len(vectors))
	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, v := range vectors {
			best := nearestCentroid(v, centroids)
			if assignments[i] != best || iter == 0 {
				assignments[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for i := range sums {
			sums[i] = make([]float64, dims)
		}
		for i, v := range vectors {
			c := assignments[i]
			counts[c]++
			for j, x := range v {
				sums[c][j] += x
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				// Dead centroid; reseed from a random vector.
				copy(centroids[c], vectors[rng.Intn(len(vectors))])
				continue
			}
			for j := range sums[c] {
				sums[c][j] /= float64(counts[c])
			}
			centroids[c] = unit(sums[c])
		}
	}
	return centroids
}

// seedCentroids is K-means++ initialization: the first pick is uniform, the
// rest proportional to squared distance from the nearest chosen centroid.
func seedCentroids(vectors [][]float64, k, dims int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, k)
	first := rng.Intn(len(vectors))
	centroids[0] = append([]float64(nil), vectors[first]...)

	for i := 1; i < k; i++ {
		weights := make([]float64, len(vectors))
		var total float64
		for j, v := range vectors {
			minDist := math.Inf(1)
			for c := 0; c < i; c++ {
				if d := 1 - dot(v, centroids[c]); d < minDist {
					minDist = d
				}
			}
			weights[j] = minDist * minDist
			total += weights[j]
		}

		if total == 0 {
			centroids[i] = append([]float64(nil), vectors[rng.Intn(len(vectors))]...)
			continue
		}
		target := rng.Float64() * total
		var cumulative float64
		pick := len(vectors) - 1
		for j, w := range weights {
			cumulative += w
			if cumulative >= target {
				pick = j
				break
			}
		}
		centroids[i] = append([]float64(nil), vectors[pick]...)
	}
	return centroids
}

func nearestCentroid(v []float64, centroids [][]float64) int {
	best, bestScore := 0, math.Inf(-1)
	for i, c := range centroids {
		if s := dot(v, c); s > bestScore {
			bestScore = s
			best = i
		}
	}
	return best
}

// nearestCentroids returns the indices of the n closest centroids, best
// first. n is clamped to the centroid count.
func nearestCentroids(v []float64, centroids [][]float64, n int) []int {
	if n > len(centroids) {
		n = len(centroids)
	}
	type scored struct {
		idx   int
		score float64
	}
	all := make([]scored, len(centroids))
	for i, c := range centroids {
		all[i] = scored{idx: i, score: dot(v, c)}
	}
	out := make([]int, 0, n)
	used := make([]bool, len(all))
	for len(out) < n {
		best, bestScore := -1, math.Inf(-1)
		for i, s := range all {
			if !used[i] && s.score > bestScore {
				best, bestScore = i, s.score
			}
		}
		used[best] = true
		out = append(out, all[best].idx)
	}
	return out
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func unit(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] /= norm
	}
	return v
}
