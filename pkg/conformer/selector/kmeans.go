package selector

import (
	"math"
	"math/rand/v2"
)

// KMeans partitions points into at most k clusters. Centroids are seeded
// with k-means++ from rng, then refined until the assignment is stable or
// maxIter rounds have run. Ties go to the lowest cluster index. Clusters can
// end up empty when points are duplicated.
func KMeans(points [][]float64, k int, rng *rand.Rand, maxIter int) (assign []int, centroids [][]float64) {
	if len(points) == 0 || k <= 0 {
		return nil, nil
	}

	k = min(k, len(points))
	centroids = seedCentroids(points, k, rng)
	assign = make([]int, len(points))

	for iter := 0; iter < maxIter; iter++ {
		changed := false

		for i, p := range points {
			c := nearest(p, centroids)
			if iter == 0 || c != assign[i] {
				changed = true
			}
			assign[i] = c
		}

		if !changed {
			break
		}

		updateCentroids(points, assign, centroids)
	}

	return assign, centroids
}

func seedCentroids(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	chosen := make([]bool, len(points))
	first := rng.IntN(len(points))
	chosen[first] = true
	centroids := [][]float64{clone(points[first])}

	dist := make([]float64, len(points))
	for len(centroids) < k {
		total := 0.0
		for i, p := range points {
			_, d := nearestDistance(p, centroids)
			dist[i] = d
			total += d
		}

		next := -1
		if total > 0 {
			target := rng.Float64() * total
			for i, d := range dist {
				if d == 0 {
					continue
				}
				// rounding can leave target slightly positive after the last point
				next = i
				target -= d
				if target <= 0 {
					break
				}
			}
		}

		if next < 0 {
			// every remaining point sits on a centroid
			for i := range points {
				if !chosen[i] {
					next = i

					break
				}
			}
		}

		chosen[next] = true
		centroids = append(centroids, clone(points[next]))
	}

	return centroids
}

func updateCentroids(points [][]float64, assign []int, centroids [][]float64) {
	counts := make([]int, len(centroids))
	sums := make([][]float64, len(centroids))
	for c := range sums {
		sums[c] = make([]float64, len(centroids[c]))
	}

	for i, p := range points {
		c := assign[i]
		counts[c]++
		for j, v := range p {
			sums[c][j] += v
		}
	}

	for c := range centroids {
		// an empty cluster keeps its previous centroid
		if counts[c] == 0 {
			continue
		}
		for j := range centroids[c] {
			centroids[c][j] = sums[c][j] / float64(counts[c])
		}
	}
}

func nearest(p []float64, centroids [][]float64) int {
	c, _ := nearestDistance(p, centroids)

	return c
}

func nearestDistance(p []float64, centroids [][]float64) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		d := squaredDistance(p, centroid)
		if d < bestDist {
			best, bestDist = c, d
		}
	}

	return best, bestDist
}

func squaredDistance(a, b []float64) float64 {
	total := 0.0
	for i := range a {
		d := a[i] - b[i]
		total += d * d
	}

	return total
}

func clone(p []float64) []float64 {
	return append([]float64(nil), p...)
}
